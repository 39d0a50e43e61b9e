package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"pdfedit/internal/apperr"
	"pdfedit/internal/config"
	"pdfedit/internal/docstore"
	"pdfedit/internal/pdf"
	"pdfedit/internal/raster"
	"pdfedit/internal/rendercache"
)

// RenderService serves page rasters through the render cache.
type RenderService interface {
	// Render returns the PNG of a page at scale and whether it came from the cache.
	Render(ctx context.Context, id string, page int, scale float64) ([]byte, bool, error)

	// DefaultScale is used when the client does not ask for one.
	DefaultScale() float64
}

type renderService struct {
	store *docstore.Store
	cache *rendercache.Cache
	slots *semaphore.Weighted
	cfg   config.RenderConfig
}

// NewRenderService wires rendering. slots bounds how many rasterizations run at once.
func NewRenderService(store *docstore.Store, cache *rendercache.Cache, slots *semaphore.Weighted, cfg config.RenderConfig) RenderService {
	return &renderService{store: store, cache: cache, slots: slots, cfg: cfg}
}

func (s *renderService) DefaultScale() float64 { return s.cfg.DefaultScale }

func (s *renderService) Render(ctx context.Context, id string, page int, scale float64) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "RenderService.Render")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id), attribute.Int("page.index", page), attribute.Float64("render.scale", scale))

	if !(scale > 0 && scale <= s.cfg.MaxScale) {
		return nil, false, apperr.Invalid("scale %g not in (0,%g]", scale, s.cfg.MaxScale)
	}
	meta, err := s.store.Meta(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if page < 0 || page >= meta.PageCount {
		return nil, false, apperr.Invalid("page index %d out of range [0,%d)", page, meta.PageCount)
	}

	key := rendercache.Key{DocID: id, Page: page, Scale: scale}
	b, hit, err := s.cache.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.rasterize(ctx, id, page, scale)
	})
	span.SetAttributes(attribute.Bool("render.cache_hit", hit))
	return b, hit, err
}

func (s *renderService) rasterize(ctx context.Context, id string, page int, scale float64) ([]byte, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)

	h, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := h.Doc.Rasterize(page, scale)
	switch {
	case errors.Is(err, pdf.ErrPageRange):
		return nil, apperr.Invalid("page index %d out of range [0,%d)", page, h.Doc.PageCount())
	case errors.Is(err, raster.ErrTooLarge):
		return nil, apperr.Invalid("scale %g makes page %d too large to render", scale, page)
	case err != nil:
		return nil, fmt.Errorf("rasterize page %d: %w", page, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}
