package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"pdfedit/internal/apperr"
	"pdfedit/internal/docstore"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
	"pdfedit/internal/rendercache"
)

// PageService changes the page structure of a document. Every operation validates before writing and
// drops the affected renders before returning.
type PageService interface {
	// Rotate sets the absolute rotation of a page. The angle is normalized to [0, 360) and must be a multiple of 90.
	Rotate(ctx context.Context, id string, page, angle int) (*model.Document, error)

	// Duplicate inserts a copy of a page right after it.
	Duplicate(ctx context.Context, id string, page int) (*model.Document, error)

	// DeletePage removes a page. The last remaining page cannot be deleted.
	DeletePage(ctx context.Context, id string, page int) (*model.Document, error)

	// Reorder rearranges pages so that new page i is old page order[i].
	Reorder(ctx context.Context, id string, order []int) (*model.Document, error)
}

type pageService struct {
	store *docstore.Store
	cache *rendercache.Cache
	log   logrus.FieldLogger
}

func NewPageService(store *docstore.Store, cache *rendercache.Cache, log logrus.FieldLogger) PageService {
	return &pageService{store: store, cache: cache, log: log}
}

func checkPage(d *pdf.Document, page int) error {
	if n := d.PageCount(); page < 0 || page >= n {
		return apperr.Invalid("page index %d out of range [0,%d)", page, n)
	}
	return nil
}

// invalidate builds the hook that drops renders chosen by sel once the new source is stored.
func (s *pageService) invalidate(id string, sel rendercache.Selector) docstore.Hook {
	return func(ctx context.Context, _ *model.Document) error {
		if _, err := s.cache.Invalidate(ctx, id, sel); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"document_id": id,
				"selector":    sel.String(),
			}).Error("render_cache_invalidation_failed")
			return apperr.Persistence("invalidate renders", err)
		}
		return nil
	}
}

func (s *pageService) Rotate(ctx context.Context, id string, page, angle int) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "PageService.Rotate")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id), attribute.Int("page.index", page), attribute.Int("page.angle", angle))

	return s.store.Mutate(ctx, id, func(d *pdf.Document) error {
		if err := checkPage(d, page); err != nil {
			return err
		}
		if err := d.SetRotation(page, angle); err != nil {
			if errors.Is(err, pdf.ErrRotation) {
				return apperr.Invalid("angle %d is not a multiple of 90", angle)
			}
			return err
		}
		return nil
	}, s.invalidate(id, rendercache.Page(page)))
}

func (s *pageService) Duplicate(ctx context.Context, id string, page int) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "PageService.Duplicate")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id), attribute.Int("page.index", page))

	return s.store.Mutate(ctx, id, func(d *pdf.Document) error {
		if err := checkPage(d, page); err != nil {
			return err
		}
		return d.InsertCopy(page+1, page)
	}, s.invalidate(id, rendercache.From(page)))
}

func (s *pageService) DeletePage(ctx context.Context, id string, page int) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "PageService.DeletePage")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id), attribute.Int("page.index", page))

	return s.store.Mutate(ctx, id, func(d *pdf.Document) error {
		if err := checkPage(d, page); err != nil {
			return err
		}
		if d.PageCount() == 1 {
			return apperr.Invalid("cannot delete the only page")
		}
		return d.DeletePage(page)
	}, s.invalidate(id, rendercache.From(page)))
}

func (s *pageService) Reorder(ctx context.Context, id string, order []int) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "PageService.Reorder")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id), attribute.IntSlice("page.order", order))

	return s.store.Mutate(ctx, id, func(d *pdf.Document) error {
		if err := pdf.ValidatePermutation(order, d.PageCount()); err != nil {
			return apperr.Invalid("order %v is not a permutation of [0,%d): %v", order, d.PageCount(), unwrapDetail(err))
		}
		return d.Reorder(order)
	}, s.invalidate(id, rendercache.All()))
}

// unwrapDetail strips the sentinel prefix from a pdf validation error.
func unwrapDetail(err error) string {
	msg := err.Error()
	p := pdf.ErrPermutation.Error() + ": "
	if len(msg) > len(p) && msg[:len(p)] == p {
		return msg[len(p):]
	}
	return msg
}
