package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pdfedit/internal/apperr"
	"pdfedit/internal/docstore"
	"pdfedit/internal/model"
	"pdfedit/internal/repository"
)

// EditService stores the annotation overlay of a document. Saves replace the whole model.
type EditService interface {
	// Load returns the saved model, or an empty version 1 model when none was saved.
	Load(ctx context.Context, id string) (*model.EditModel, error)

	// Save validates and stores m, returning what was stored.
	Save(ctx context.Context, id string, m *model.EditModel) (*model.EditModel, error)
}

type editService struct {
	store *docstore.Store
	edits repository.EditModelRepository
	now   func() time.Time
}

func NewEditService(store *docstore.Store, edits repository.EditModelRepository) EditService {
	return &editService{store: store, edits: edits, now: func() time.Time { return time.Now().UTC() }}
}

// Load does not look the document up: an id with no saved model, known or not, reads as the empty model.
func (s *editService) Load(ctx context.Context, id string) (*model.EditModel, error) {
	rec, err := s.edits.Find(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewEditModel(), nil
	}
	if err != nil {
		return nil, apperr.Persistence("load edit model", err)
	}
	m := rec.Model
	if m.Pages == nil {
		m.Pages = map[string][]json.RawMessage{}
	}
	return &m, nil
}

func (s *editService) Save(ctx context.Context, id string, m *model.EditModel) (*model.EditModel, error) {
	ctx, span := tracer.Start(ctx, "EditService.Save")
	defer span.End()

	if m == nil {
		return nil, apperr.Invalid("edit model is required")
	}
	if err := validateEditModel(m); err != nil {
		return nil, err
	}
	if _, err := s.store.Meta(ctx, id); err != nil {
		return nil, err
	}
	out := *m
	if out.Version == 0 {
		out.Version = 1
	}
	if out.Pages == nil {
		out.Pages = map[string][]json.RawMessage{}
	}
	if err := s.edits.Save(ctx, &model.EditRecord{DocumentID: id, Model: out, UpdatedAt: s.now()}); err != nil {
		return nil, apperr.Persistence("save edit model", err)
	}
	return &out, nil
}

// validateEditModel checks shape only: every record must be a JSON object. Kinds and geometry are
// checked when the model is composed.
func validateEditModel(m *model.EditModel) error {
	if m.Version < 0 {
		return apperr.Invalid("version %d must not be negative", m.Version)
	}
	for page, recs := range m.Pages {
		for i, r := range recs {
			if t := bytes.TrimSpace(r); len(t) == 0 || t[0] != '{' {
				return apperr.Invalid("pages[%q][%d] must be a JSON object", page, i)
			}
		}
	}
	return nil
}
