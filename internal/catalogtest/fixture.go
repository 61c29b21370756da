// Package catalogtest provides a small indexed catalog fixture shared by
// retrieval and session tests.
package catalogtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
	"pc-build-advisor-be/pkg/catalog"
	"pc-build-advisor-be/pkg/document"
	"pc-build-advisor-be/pkg/embedding"
	"pc-build-advisor-be/pkg/store"
)

// FixtureDump is a miniature catalog dump covering the categories the
// guided flow steps through, with deliberately varied sockets and prices.
const FixtureDump = `
CREATE TABLE cpu (id int, name varchar(255), price int, socket varchar(32), cores varchar(8), tdp varchar(8));
INSERT INTO cpu VALUES
(1,'AMD Ryzen 7 7800X3D gaming processor',429000,'AM5','8','120'),
(2,'Intel Core i5-14600K fast processor',359000,'LGA1700','14','125'),
(3,'AMD Ryzen 5 7600 budget processor',229000,'AM5','6','65');

CREATE TABLE mainboard (id int, name varchar(255), price int, socket varchar(32), memory_type varchar(16), form_factor varchar(16));
INSERT INTO mainboard VALUES
(1,'ASUS TUF B650-PLUS motherboard',219000,'AM5','DDR5','ATX'),
(2,'MSI PRO Z790-P motherboard',259000,'LGA1700','DDR5','ATX');

CREATE TABLE ram (id int, name varchar(255), price int, memory_type varchar(16), capacity varchar(16));
INSERT INTO ram VALUES
(1,'G.SKILL Trident Z5 DDR5 32GB memory kit',149000,'DDR5','32GB'),
(2,'Samsung DDR4 16GB memory module',59000,'DDR4','16GB');

CREATE TABLE vga (id int, name varchar(255), price int, vram varchar(16), length_mm varchar(8), tdp varchar(8));
INSERT INTO vga VALUES
(1,'NVIDIA GeForce RTX 4070 graphics card',589000,'12GB','242','200'),
(2,'AMD Radeon RX 7600 graphics card',329000,'8GB','204','165');

CREATE TABLE ssd (id int, name varchar(255), price int, capacity varchar(16), interface varchar(16));
INSERT INTO ssd VALUES
(1,'Samsung 990 PRO 1TB NVMe solid state drive',129000,'1TB','NVMe');

CREATE TABLE power (id int, name varchar(255), price int, wattage varchar(8), form_factor varchar(16));
INSERT INTO power VALUES
(1,'Corsair RM750e power supply unit',109000,'750','ATX');
`

// Components parses the fixture dump.
func Components(t *testing.T) []entity.Component {
	t.Helper()
	parsed, err := catalog.NewParser().Parse(strings.NewReader(FixtureDump))
	if err != nil {
		t.Fatalf("parse fixture dump: %v", err)
	}
	return parsed
}

// IndexedFixture parses, renders, embeds, and upserts the fixture catalog
// into the given index, returning the documents in ingestion order.
func IndexedFixture(t *testing.T, ctx context.Context, provider embedding.EmbeddingProvider, index contract.VectorIndexRepository) []store.Document {
	t.Helper()

	docs := document.BuildAll(Components(t))

	client := embedding.NewBatchClient(provider, embedding.DefaultBatchConfig())
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := client.EmbedBatch(ctx, texts, embedding.TaskRetrievalDocument)
	if err != nil {
		t.Fatalf("embed fixture: %v", err)
	}

	indexed := make([]*entity.ComponentEmbedding, len(docs))
	for i, d := range docs {
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
	if err := index.UpsertBulk(ctx, indexed); err != nil {
		t.Fatalf("upsert fixture: %v", err)
	}
	return docs
}

// HashProvider is a deterministic local embedder for tests: a normalized
// bag-of-words hash vector. Identical texts map to identical vectors and
// overlapping texts to nearby ones.
type HashProvider struct{}

const hashDim = 64

func (HashProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	vec := make([]float32, hashDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%hashDim]++
	}
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if mag > 0 {
		mag = math.Sqrt(mag)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / mag)
		}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}
