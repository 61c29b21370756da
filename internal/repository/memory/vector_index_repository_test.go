package memory

import (
	"context"
	"testing"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id, category string, price *int, vec []float32) *entity.ComponentEmbedding {
	return &entity.ComponentEmbedding{
		Id:             id,
		Category:       category,
		Name:           id,
		Price:          price,
		EmbeddingValue: vec,
	}
}

func intp(v int) *int { return &v }

func TestSearch_FewerMatchesThanLimit(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	require.NoError(t, r.UpsertBulk(ctx, []*entity.ComponentEmbedding{
		doc("cpu-1", "cpu", intp(100), []float32{1, 0, 0}),
		doc("cpu-2", "cpu", intp(200), []float32{0.9, 0.1, 0}),
		doc("gpu-1", "gpu", intp(300), []float32{0, 1, 0}),
	}))

	results, err := r.Search(ctx, []float32{1, 0, 0}, 5, contract.SearchFilter{Category: "cpu"})
	require.NoError(t, err)
	// 3 documents indexed, 2 match the filter, k=5: all matches, no error
	assert.Len(t, results, 2)
	assert.Equal(t, "cpu-1", results[0].Document.Id)
}

func TestSearch_MaxPriceFilter(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	require.NoError(t, r.UpsertBulk(ctx, []*entity.ComponentEmbedding{
		doc("cpu-cheap", "cpu", intp(100), []float32{1, 0, 0}),
		doc("cpu-pricey", "cpu", intp(900), []float32{1, 0, 0}),
		doc("cpu-unknown", "cpu", nil, []float32{1, 0, 0}),
	}))

	results, err := r.Search(ctx, []float32{1, 0, 0}, 10, contract.SearchFilter{MaxPrice: intp(500)})
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.Document.Id
	}
	// unknown price passes the ceiling; only the overpriced one is dropped
	assert.ElementsMatch(t, []string{"cpu-cheap", "cpu-unknown"}, ids)
}

func TestSearch_TieBreakByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	// identical vectors: first inserted must win the tie every time
	require.NoError(t, r.Upsert(ctx, doc("b-second", "cpu", nil, []float32{1, 0, 0})))
	require.NoError(t, r.Upsert(ctx, doc("a-first", "cpu", nil, []float32{1, 0, 0})))

	for i := 0; i < 10; i++ {
		results, err := r.Search(ctx, []float32{1, 0, 0}, 2, contract.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "b-second", results[0].Document.Id)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	batch := []*entity.ComponentEmbedding{
		doc("cpu-1", "cpu", intp(100), []float32{1, 0, 0}),
		doc("cpu-2", "cpu", intp(200), []float32{0, 1, 0}),
	}
	require.NoError(t, r.UpsertBulk(ctx, batch))
	require.NoError(t, r.UpsertBulk(ctx, batch))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	require.NoError(t, r.Upsert(ctx, doc("cpu-1", "cpu", nil, []float32{1, 0, 0})))
	require.NoError(t, r.DeleteAll(ctx))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearch_MinScoreThreshold(t *testing.T) {
	ctx := context.Background()
	r := NewVectorIndexRepository()

	require.NoError(t, r.UpsertBulk(ctx, []*entity.ComponentEmbedding{
		doc("close", "cpu", nil, []float32{1, 0, 0}),
		doc("orthogonal", "cpu", nil, []float32{0, 0, 1}),
	}))

	results, err := r.Search(ctx, []float32{1, 0, 0}, 10, contract.SearchFilter{MinScore: 0.15})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].Document.Id)
}
