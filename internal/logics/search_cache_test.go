package logics_test

import (
	"context"
	"testing"

	"dopple-server/internal/logics"
	"dopple-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := logics.NewSearchCache(newFakeRedis())

	items := []models.Item{{ID: 1, OwnerID: 1, Name: "report.pdf", MimeType: "application/pdf", Path: "/1/"}}

	assert.Nil(t, cache.Get(ctx, 1, "report"))

	cache.Set(ctx, 1, "report", items)
	cached := cache.Get(ctx, 1, "report")
	require.Len(t, cached, 1)
	assert.Equal(t, int64(1), cached[0].ID)

	t.Run("query is case-normalized", func(t *testing.T) {
		assert.Len(t, cache.Get(ctx, 1, "REPORT"), 1)
	})

	t.Run("owners do not share entries", func(t *testing.T) {
		assert.Nil(t, cache.Get(ctx, 2, "report"))
	})
}

func TestSearchCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := logics.NewSearchCache(newFakeRedis())

	cache.Set(ctx, 1, "report", []models.Item{{ID: 1, Name: "report.pdf"}})
	cache.Set(ctx, 2, "report", []models.Item{{ID: 2, Name: "report.pdf"}})
	require.Len(t, cache.Get(ctx, 1, "report"), 1)

	cache.Invalidate(ctx, 1)

	assert.Nil(t, cache.Get(ctx, 1, "report"))
	// Other owners keep their generation.
	assert.Len(t, cache.Get(ctx, 2, "report"), 1)
}

func TestSearchCacheDisabled(t *testing.T) {
	ctx := context.Background()
	cache := logics.NewSearchCache(nil)

	// Every operation must be a safe no-op without a client.
	cache.Set(ctx, 1, "report", []models.Item{{ID: 1}})
	cache.Invalidate(ctx, 1)
	assert.Nil(t, cache.Get(ctx, 1, "report"))
}

// Cached search results must never outlive a mutation of the owner's
// tree: deletes, renames and creates all have to be visible to the next
// search even inside the cache TTL.
func TestSearchSeesMutationsThroughCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := env.mustFile(t, 1, "annual-report.pdf", nil)
	env.mustFile(t, 1, "notes.txt", nil)

	warm := func() []models.Item {
		items, err := env.listing.Search(ctx, 1, "report")
		require.NoError(t, err)
		return items
	}

	require.Len(t, warm(), 1)

	t.Run("delete drops the item from search", func(t *testing.T) {
		require.NoError(t, env.items.Delete(ctx, 1, report.ID))
		assert.Empty(t, warm())
	})

	t.Run("create shows up immediately", func(t *testing.T) {
		env.mustFile(t, 1, "quarterly-report.pdf", nil)
		items := warm()
		require.Len(t, items, 1)
		assert.Equal(t, "quarterly-report.pdf", items[0].Name)
	})

	t.Run("rename is reflected", func(t *testing.T) {
		items := warm()
		require.Len(t, items, 1)

		_, err := env.items.Rename(ctx, 1, items[0].ID, "summary.pdf")
		require.NoError(t, err)

		assert.Empty(t, warm())

		bySummary, err := env.listing.Search(ctx, 1, "summary")
		require.NoError(t, err)
		assert.Len(t, bySummary, 1)
	})
}
