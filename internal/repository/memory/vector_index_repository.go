package memory

import (
	"context"
	"sort"
	"sync"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"
)

// VectorIndexRepository is a brute-force cosine in-memory index. It backs
// tests and local development; production uses the pgvector implementation
// behind the same contract.
type VectorIndexRepository struct {
	mu    sync.RWMutex
	docs  []*entity.ComponentEmbedding
	byId  map[string]int
	order map[string]int // insertion sequence, for deterministic tie breaks
	seq   int
}

func NewVectorIndexRepository() *VectorIndexRepository {
	return &VectorIndexRepository{
		byId:  make(map[string]int),
		order: make(map[string]int),
	}
}

func (r *VectorIndexRepository) Upsert(ctx context.Context, doc *entity.ComponentEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(doc)
	return nil
}

func (r *VectorIndexRepository) UpsertBulk(ctx context.Context, docs []*entity.ComponentEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		r.upsertLocked(doc)
	}
	return nil
}

func (r *VectorIndexRepository) upsertLocked(doc *entity.ComponentEmbedding) {
	copied := *doc
	if i, ok := r.byId[doc.Id]; ok {
		// replace in place: the original insertion position keeps tie
		// breaks stable across re-ingestion
		r.docs[i] = &copied
		return
	}
	r.byId[doc.Id] = len(r.docs)
	r.order[doc.Id] = r.seq
	r.seq++
	r.docs = append(r.docs, &copied)
}

func (r *VectorIndexRepository) Search(ctx context.Context, vector []float32, limit int, filter contract.SearchFilter) ([]*contract.ScoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	var scored []*contract.ScoredDocument
	for _, doc := range r.docs {
		if filter.Category != "" && doc.Category != filter.Category {
			continue
		}
		if filter.MaxPrice != nil && doc.Price != nil && *doc.Price > *filter.MaxPrice {
			continue
		}
		sim := cosine(doc.EmbeddingValue, vector)
		if sim < filter.MinScore {
			continue
		}
		scored = append(scored, &contract.ScoredDocument{Document: doc, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return r.order[scored[i].Document.Id] < r.order[scored[j].Document.Id]
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *VectorIndexRepository) FindByIds(ctx context.Context, ids []string) ([]*entity.ComponentEmbedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.ComponentEmbedding
	for _, id := range ids {
		if i, ok := r.byId[id]; ok {
			out = append(out, r.docs[i])
		}
	}
	return out, nil
}

func (r *VectorIndexRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.docs)), nil
}

func (r *VectorIndexRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = nil
	r.byId = make(map[string]int)
	r.order = make(map[string]int)
	r.seq = 0
	return nil
}

// cosine assumes unit vectors (the embedding client normalizes), so the
// dot product is the cosine similarity.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
