package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-build-advisor-be/internal/catalogtest"
	"pc-build-advisor-be/internal/repository/memory"
	"pc-build-advisor-be/pkg/catalog"
	"pc-build-advisor-be/pkg/embedding"
)

func newIngestFixture(t *testing.T, batchSize, maxPerCategory int) (ICatalogIngestService, *memory.VectorIndexRepository) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	t.Cleanup(func() { pubSub.Close() })

	index := memory.NewVectorIndexRepository()
	svc := NewCatalogIngestService(
		pubSub,
		"embed_component_batch_test",
		catalog.NewParser(),
		embedding.NewBatchClient(catalogtest.HashProvider{}, embedding.DefaultBatchConfig()),
		index,
		batchSize,
		maxPerCategory,
	)
	return svc, index
}

func TestIngestDump_EndToEnd(t *testing.T) {
	svc, index := newIngestFixture(t, 4, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, svc.Consume(ctx))

	report, err := svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), false)
	require.NoError(t, err)

	assert.Equal(t, 11, report.ComponentsParsed)
	assert.Equal(t, 0, report.RowErrors)
	assert.Equal(t, 3, report.Batches) // 11 documents in batches of 4
	assert.Equal(t, 11, report.Indexed)
	assert.Equal(t, 0, report.Failed)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 11, count)
}

func TestIngestDump_RebuildDropsOldIndex(t *testing.T) {
	svc, index := newIngestFixture(t, 100, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, svc.Consume(ctx))

	_, err := svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), false)
	require.NoError(t, err)

	// second run with rebuild must not duplicate anything
	report, err := svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), true)
	require.NoError(t, err)
	assert.Equal(t, 11, report.Indexed)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 11, count)
}

func TestIngestDump_ReingestIsIdempotent(t *testing.T) {
	svc, index := newIngestFixture(t, 100, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, svc.Consume(ctx))

	_, err := svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), false)
	require.NoError(t, err)
	_, err = svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), false)
	require.NoError(t, err)

	// same ids upsert in place without rebuild
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 11, count)
}

func TestIngestDump_CapsPerCategory(t *testing.T) {
	svc, index := newIngestFixture(t, 100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, svc.Consume(ctx))

	report, err := svc.IngestDump(ctx, strings.NewReader(catalogtest.FixtureDump), false)
	require.NoError(t, err)

	// six categories in the fixture, one row kept from each
	assert.Equal(t, 6, report.ComponentsParsed)
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)
}
