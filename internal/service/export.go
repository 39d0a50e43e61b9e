package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"pdfedit/internal/apperr"
	"pdfedit/internal/compose"
	"pdfedit/internal/docstore"
	"pdfedit/internal/metrics"
	"pdfedit/internal/model"
	"pdfedit/internal/repository"
)

// ExportResult is a composed document ready to be sent.
type ExportResult struct {
	Filename string
	Data     []byte
	Painted  int
	Skipped  int
	Failures []compose.Failure
}

// ExportService bakes the edit model into a new PDF. The source document is never modified.
type ExportService interface {
	Export(ctx context.Context, id string) (*ExportResult, error)
}

type exportService struct {
	store   *docstore.Store
	edits   repository.EditModelRepository
	engine  *compose.Engine
	slots   *semaphore.Weighted
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewExportService(store *docstore.Store, edits repository.EditModelRepository, engine *compose.Engine, slots *semaphore.Weighted, m *metrics.Metrics, log logrus.FieldLogger) ExportService {
	return &exportService{store: store, edits: edits, engine: engine, slots: slots, metrics: m, log: log}
}

func (s *exportService) Export(ctx context.Context, id string) (*ExportResult, error) {
	ctx, span := tracer.Start(ctx, "ExportService.Export")
	defer span.End()
	start := time.Now()

	h, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	edits, err := s.loadModel(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &ExportResult{Filename: "edited_" + h.Meta.OriginalName, Data: h.Raw}
	if edits.AnnotationCount() > 0 {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		composed := s.engine.Compose(h.Doc, edits)
		out, err := h.Doc.Bytes(ctx)
		s.slots.Release(1)
		if err != nil {
			return nil, fmt.Errorf("serialize export of %s: %w", id, err)
		}
		res.Data = out
		res.Painted = composed.Painted
		res.Skipped = len(composed.Failures)
		res.Failures = composed.Failures
		s.report(id, composed.Failures)
	}

	if _, err := s.store.PutArtifact(ctx, docstore.ExportKey(id), res.Data, docstore.ContentTypePDF); err != nil {
		return nil, err
	}
	s.metrics.ExportDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("document.id", id),
		attribute.Int("export.painted", res.Painted),
		attribute.Int("export.skipped", res.Skipped),
	)
	return res, nil
}

func (s *exportService) loadModel(ctx context.Context, id string) (*model.EditModel, error) {
	rec, err := s.edits.Find(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewEditModel(), nil
	}
	if err != nil {
		return nil, apperr.Persistence("load edit model", err)
	}
	return &rec.Model, nil
}

func (s *exportService) report(id string, failures []compose.Failure) {
	for _, f := range failures {
		s.metrics.AnnotationFailures.WithLabelValues(f.Type).Inc()
		s.log.WithFields(logrus.Fields{
			"document_id": id,
			"page":        f.Page,
			"index":       f.Index,
			"type":        f.Type,
		}).WithError(f.Err).Warn("annotation_skipped")
	}
}
