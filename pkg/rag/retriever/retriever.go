package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/pkg/embedding"
	"pc-build-advisor-be/pkg/store"
)

// ErrIndexQuery wraps vector index failures so the session layer can tell
// a broken index from an empty result.
var ErrIndexQuery = errors.New("retriever: index query failed")

// ErrEmptyQuery means there was neither query text nor a category to
// derive one from.
var ErrEmptyQuery = errors.New("retriever: empty query and no filters")

// Query is one retrieval request. Category and MaxPrice are optional
// metadata filters; Text may be empty when Category is set.
type Query struct {
	Text     string
	Limit    int
	Category string
	MaxPrice *int
}

// Result is one ranked retrieval hit. Transient, never persisted.
type Result struct {
	Document store.Document
	Score    float64
	Rank     int
}

// Config tunes retrieval behavior.
type Config struct {
	TopK     int     // default result count when a query has no limit
	MinScore float64 // similarity floor; near-zero matches are noise
}

func DefaultConfig() Config {
	return Config{
		TopK:     5,
		MinScore: 0.15,
	}
}

// Retriever answers free-text or filtered queries against the vector
// index. It never mutates the index.
type Retriever struct {
	provider embedding.EmbeddingProvider
	index    contract.VectorIndexRepository
	config   Config
	logger   *log.Logger
}

func NewRetriever(provider embedding.EmbeddingProvider, index contract.VectorIndexRepository, config Config, logger *log.Logger) *Retriever {
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	return &Retriever{
		provider: provider,
		index:    index,
		config:   config,
		logger:   logger,
	}
}

// Retrieve embeds the query text, runs the filtered nearest-neighbor
// search, and returns at most Limit ranked results above the similarity
// floor.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]Result, error) {
	text := q.Text
	if text == "" {
		// Filter-only retrieval degrades to the canonical category
		// description instead of erroring.
		desc, ok := constant.CategoryDescription[q.Category]
		if !ok {
			return nil, ErrEmptyQuery
		}
		text = desc
	}

	limit := q.Limit
	if limit <= 0 {
		limit = r.config.TopK
	}

	embeddingRes, err := r.provider.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := r.index.Search(ctx, embeddingRes.Embedding.Values, limit, contract.SearchFilter{
		Category: q.Category,
		MaxPrice: q.MaxPrice,
		MinScore: r.config.MinScore,
	})
	if err != nil {
		r.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}

	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = Result{
			Document: toDocument(s.Document),
			Score:    s.Similarity,
			Rank:     i + 1,
		}
	}

	r.logger.Printf("[DEBUG] Retrieved %d documents (category=%q limit=%d)", len(results), q.Category, limit)
	return results, nil
}

// Fetch loads documents by id, in no particular order. Ids that no
// longer exist in the index are simply absent from the result.
func (r *Retriever) Fetch(ctx context.Context, ids []string) ([]store.Document, error) {
	found, err := r.index.FindByIds(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	docs := make([]store.Document, len(found))
	for i, e := range found {
		docs[i] = toDocument(e)
	}
	return docs, nil
}

// CheckRetrievable reports which of the given ids still exist in the
// index. Resumed sessions re-validate prior selections through this.
func (r *Retriever) CheckRetrievable(ctx context.Context, ids []string) (map[string]bool, error) {
	found, err := r.index.FindByIds(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexQuery, err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = false
	}
	for _, doc := range found {
		out[doc.Id] = true
	}
	return out, nil
}

func toDocument(e *entity.ComponentEmbedding) store.Document {
	return store.Document{
		ID:       e.Id,
		Category: e.Category,
		Name:     e.Name,
		Price:    e.Price,
		Text:     e.Document,
		Specs:    e.Specs,
	}
}
