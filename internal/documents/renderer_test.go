package documents

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() Document {
	return Document{
		Kind:       "proposal",
		Title:      "Proposal: Website relaunch",
		Reference:  "PROP-202503-0007",
		ClientName: "Acme Holdings",
		Date:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:     "SENT",
		Notes:      "Valid for 30 days.",
		Lines: []DocumentLine{
			{Label: "Discovery workshop", Quantity: 2, UnitPrice: 10, Amount: 20},
			{Label: "Implementation", Quantity: 1, UnitPrice: 480, Amount: 480},
		},
		Total:     500,
		UpdatedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderFallsBackWithoutGotenberg(t *testing.T) {
	r := NewRenderer(slog.Default(), nil, nil)

	pdf, err := r.Render(context.Background(), testDocument())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")), "fallback output should be a PDF")
}

func TestRenderCachesResult(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	r := NewRenderer(slog.Default(), nil, cache)
	doc := testDocument()
	ctx := context.Background()

	pdf, err := r.Render(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)

	key := fmt.Sprintf("pdf:%s:%s:%d", doc.Kind, doc.Reference, doc.UpdatedAt.Unix())
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, string(pdf), cached)

	// plant a sentinel to prove the second call is served from the cache
	require.NoError(t, mr.Set(key, "cached-bytes"))
	again, err := r.Render(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached-bytes"), again)
}

func TestRenderCacheKeyTracksUpdatedAt(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	r := NewRenderer(slog.Default(), nil, cache)
	ctx := context.Background()

	doc := testDocument()
	_, err := r.Render(ctx, doc)
	require.NoError(t, err)

	stale := fmt.Sprintf("pdf:%s:%s:%d", doc.Kind, doc.Reference, doc.UpdatedAt.Unix())
	require.NoError(t, mr.Set(stale, "stale-bytes"))

	// a newer updated_at must miss the old entry and render fresh
	doc.UpdatedAt = doc.UpdatedAt.Add(time.Hour)
	pdf, err := r.Render(ctx, doc)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale-bytes"), pdf)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
