package contract

import (
	"context"

	"pc-build-advisor-be/internal/entity"
)

// ScoredDocument wraps an indexed document with its similarity score
type ScoredDocument struct {
	Document   *entity.ComponentEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

// SearchFilter is a conjunction of metadata predicates applied alongside
// the nearest-neighbor search.
type SearchFilter struct {
	Category string   // equality; empty matches all
	MaxPrice *int     // price <= MaxPrice; documents with unknown price pass
	MinScore float64  // similarity floor
}

// VectorIndexRepository is the persistent key-vector-metadata store. The
// online path treats it as a read-mostly capability; only the ingestion
// pipeline writes. Each Upsert is atomic per document, keyed by the stable
// component id so re-ingestion never duplicates.
type VectorIndexRepository interface {
	Upsert(ctx context.Context, doc *entity.ComponentEmbedding) error
	UpsertBulk(ctx context.Context, docs []*entity.ComponentEmbedding) error
	// Search returns at most limit documents ranked by similarity desc,
	// ties broken by insertion order. Fewer matches than limit is not an
	// error.
	Search(ctx context.Context, vector []float32, limit int, filter SearchFilter) ([]*ScoredDocument, error)
	FindByIds(ctx context.Context, ids []string) ([]*entity.ComponentEmbedding, error)
	Count(ctx context.Context) (int64, error)
	// DeleteAll drops the whole index as a single operation (full rebuild).
	DeleteAll(ctx context.Context) error
}
