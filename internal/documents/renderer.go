package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheTTL = 15 * time.Minute

// Renderer turns documents into PDF bytes. Rendering goes through Gotenberg
// when a client is configured and falls back to a local renderer otherwise.
// Results are cached in Redis keyed on the source row's updated_at, and
// concurrent requests for the same key share one render.
type Renderer struct {
	logger    *slog.Logger
	gotenberg *GotenbergClient
	cache     *redis.Client
	group     singleflight.Group
}

// NewRenderer constructs a Renderer. Both gotenberg and cache may be nil.
func NewRenderer(logger *slog.Logger, gotenberg *GotenbergClient, cache *redis.Client) *Renderer {
	return &Renderer{
		logger:    logger,
		gotenberg: gotenberg,
		cache:     cache,
	}
}

// Render produces the PDF for doc. The cache key embeds the source's
// updated_at so stale entries age out on their own.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	key := fmt.Sprintf("pdf:%s:%s:%d", doc.Kind, doc.Reference, doc.UpdatedAt.Unix())

	if cached, err := r.cacheGet(ctx, key); err == nil {
		return cached, nil
	}

	resultChan := r.group.DoChan(key, func() (interface{}, error) {
		pdf, err := r.render(ctx, doc)
		if err != nil {
			return nil, err
		}
		r.cacheSet(context.WithoutCancel(ctx), key, pdf)
		return pdf, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (r *Renderer) render(ctx context.Context, doc Document) ([]byte, error) {
	if r.gotenberg != nil {
		html, err := RenderDocumentHTML(doc)
		if err != nil {
			return nil, fmt.Errorf("render document html: %w", err)
		}
		pdf, err := r.gotenberg.RenderHTML(ctx, html)
		if err == nil {
			return pdf, nil
		}
		r.logger.Warn("gotenberg render failed, using fallback", "error", err, "reference", doc.Reference)
	}
	return renderFallbackPDF(doc)
}

func (r *Renderer) cacheGet(ctx context.Context, key string) ([]byte, error) {
	if r.cache == nil {
		return nil, redis.Nil
	}
	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("pdf cache read failed", "error", err, "key", key)
		}
		return nil, err
	}
	return data, nil
}

func (r *Renderer) cacheSet(ctx context.Context, key string, data []byte) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		r.logger.Warn("pdf cache write failed", "error", err, "key", key)
	}
}
