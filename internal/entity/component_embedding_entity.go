package entity

import "time"

// ComponentEmbedding is one indexed retrieval document: the rendered text,
// its vector, and the metadata subset used for filtered search. Keyed by the
// component id so re-ingestion upserts instead of duplicating.
type ComponentEmbedding struct {
	Id             string
	Document       string
	EmbeddingValue []float32
	Category       string
	Name           string
	Price          *int
	Specs          map[string]string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
