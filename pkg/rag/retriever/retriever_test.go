package retriever

import (
	"context"
	"io"
	"log"
	"testing"

	"pc-build-advisor-be/internal/catalogtest"
	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetriever(t *testing.T) (*Retriever, *memory.VectorIndexRepository) {
	t.Helper()
	index := memory.NewVectorIndexRepository()
	r := NewRetriever(catalogtest.HashProvider{}, index, DefaultConfig(), log.New(io.Discard, "", 0))
	return r, index
}

func TestRetrieve_SelfRetrievalTop1(t *testing.T) {
	ctx := context.Background()
	r, index := newTestRetriever(t)

	docs := catalogtest.IndexedFixture(t, ctx, catalogtest.HashProvider{}, index)
	require.NotEmpty(t, docs)

	// querying by a document's own exact text must put it at rank 1
	for _, doc := range docs[:3] {
		results, err := r.Retrieve(ctx, Query{Text: doc.Text, Limit: 5})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, doc.ID, results[0].Document.ID, "self-retrieval missed for %s", doc.ID)
		assert.Equal(t, 1, results[0].Rank)
	}
}

func TestRetrieve_CategoryFilter(t *testing.T) {
	ctx := context.Background()
	r, index := newTestRetriever(t)
	catalogtest.IndexedFixture(t, ctx, catalogtest.HashProvider{}, index)

	results, err := r.Retrieve(ctx, Query{Text: "fast gaming processor", Category: constant.CategoryCPU, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, res := range results {
		assert.Equal(t, constant.CategoryCPU, res.Document.Category)
	}
}

func TestRetrieve_FilterOnlyQueryDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	r, index := newTestRetriever(t)
	catalogtest.IndexedFixture(t, ctx, catalogtest.HashProvider{}, index)

	// no text, category present: canonical description substitutes
	results, err := r.Retrieve(ctx, Query{Category: constant.CategoryGPU, Limit: 5})
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, constant.CategoryGPU, res.Document.Category)
	}

	// no text, no category: genuine error
	_, err = r.Retrieve(ctx, Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRetrieve_PriceCeiling(t *testing.T) {
	ctx := context.Background()
	r, index := newTestRetriever(t)
	catalogtest.IndexedFixture(t, ctx, catalogtest.HashProvider{}, index)

	ceiling := 400000
	results, err := r.Retrieve(ctx, Query{Category: constant.CategoryCPU, MaxPrice: &ceiling, Limit: 10})
	require.NoError(t, err)
	for _, res := range results {
		if res.Document.Price != nil {
			assert.LessOrEqual(t, *res.Document.Price, ceiling)
		}
	}
}

func TestCheckRetrievable(t *testing.T) {
	ctx := context.Background()
	r, index := newTestRetriever(t)
	docs := catalogtest.IndexedFixture(t, ctx, catalogtest.HashProvider{}, index)

	status, err := r.CheckRetrievable(ctx, []string{docs[0].ID, "ghost-component"})
	require.NoError(t, err)
	assert.True(t, status[docs[0].ID])
	assert.False(t, status["ghost-component"])
}
