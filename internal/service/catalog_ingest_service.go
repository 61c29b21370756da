package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"pc-build-advisor-be/internal/dto"
	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/pkg/catalog"
	"pc-build-advisor-be/pkg/document"
	"pc-build-advisor-be/pkg/embedding"
	"pc-build-advisor-be/pkg/store"
)

type ICatalogIngestService interface {
	// Consume starts the batch worker. Call once before IngestDump.
	Consume(ctx context.Context) error

	// IngestDump parses a catalog dump, fans the documents out in batches,
	// and waits for the worker to finish them all.
	IngestDump(ctx context.Context, r io.Reader, rebuild bool) (*dto.IngestReport, error)
}

type catalogIngestService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	parser      *catalog.Parser
	batchClient *embedding.BatchClient
	index       contract.VectorIndexRepository

	batchSize      int
	maxPerCategory int // 0 = unlimited

	results chan batchResult
}

type batchResult struct {
	indexed int
	err     error
}

func NewCatalogIngestService(
	pubSub *gochannel.GoChannel,
	topicName string,
	parser *catalog.Parser,
	batchClient *embedding.BatchClient,
	index contract.VectorIndexRepository,
	batchSize int,
	maxPerCategory int,
) ICatalogIngestService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &catalogIngestService{
		pubSub:         pubSub,
		topicName:      topicName,
		parser:         parser,
		batchClient:    batchClient,
		index:          index,
		batchSize:      batchSize,
		maxPerCategory: maxPerCategory,
		results:        make(chan batchResult, 64),
	}
}

func (cs *catalogIngestService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *catalogIngestService) IngestDump(ctx context.Context, r io.Reader, rebuild bool) (*dto.IngestReport, error) {
	components, err := cs.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	stats := cs.parser.Stats()

	components = cs.capPerCategory(components)
	docs := document.BuildAll(components)

	if rebuild {
		log.Printf("[INFO] Rebuild requested, dropping existing index")
		if err := cs.index.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("drop index: %w", err)
		}
	}

	var batches [][]store.Document
	for start := 0; start < len(docs); start += cs.batchSize {
		end := start + cs.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, docs[start:end])
	}

	for i, batch := range batches {
		payload, err := json.Marshal(dto.EmbedComponentBatchMessage{
			Documents: batch,
			Batch:     i + 1,
			Total:     len(batches),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal batch %d: %w", i+1, err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		if err := cs.pubSub.Publish(cs.topicName, msg); err != nil {
			return nil, fmt.Errorf("publish batch %d: %w", i+1, err)
		}
	}

	report := &dto.IngestReport{
		ComponentsParsed: len(components),
		RowErrors:        stats.RowErrors,
		Batches:          len(batches),
	}
	for range batches {
		select {
		case res := <-cs.results:
			if res.err != nil {
				report.Failed++
				log.Printf("[ERROR] Batch failed: %v", res.err)
			} else {
				report.Indexed += res.indexed
			}
		case <-ctx.Done():
			return report, ctx.Err()
		}
	}

	log.Printf("[SUCCESS] Catalog ingested: %d components in %d batches (%d failed)",
		report.Indexed, report.Batches, report.Failed)
	return report, nil
}

func (cs *catalogIngestService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedComponentBatchMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal batch message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Embedding batch %d/%d (%d documents)",
		payload.Batch, payload.Total, len(payload.Documents))

	texts := make([]string, len(payload.Documents))
	for i, d := range payload.Documents {
		texts[i] = d.Text
	}

	vectors, err := cs.batchClient.EmbedBatch(ctx, texts, embedding.TaskRetrievalDocument)
	if err != nil {
		log.Printf("[ERROR] Failed to embed batch %d: %v", payload.Batch, err)
		msg.Ack() // retries already happened inside the batch client
		cs.results <- batchResult{err: err}
		return
	}

	indexed := make([]*entity.ComponentEmbedding, len(payload.Documents))
	for i, d := range payload.Documents {
		indexed[i] = &entity.ComponentEmbedding{
			Id:             d.ID,
			Document:       d.Text,
			EmbeddingValue: vectors[i],
			Category:       d.Category,
			Name:           d.Name,
			Price:          d.Price,
			Specs:          d.Specs,
		}
	}
	if err := cs.index.UpsertBulk(ctx, indexed); err != nil {
		log.Printf("[ERROR] Failed to store batch %d: %v", payload.Batch, err)
		msg.Nack() // storage errors are retriable
		return
	}

	msg.Ack()
	cs.results <- batchResult{indexed: len(indexed)}
}

// capPerCategory bounds how many rows of each category make it into the
// index, preserving dump order within a category.
func (cs *catalogIngestService) capPerCategory(components []entity.Component) []entity.Component {
	if cs.maxPerCategory <= 0 {
		return components
	}
	counts := make(map[string]int)
	kept := components[:0]
	for _, c := range components {
		if counts[c.Category] >= cs.maxPerCategory {
			continue
		}
		counts[c.Category]++
		kept = append(kept, c)
	}
	return kept
}
