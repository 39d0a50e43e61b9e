package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"pdfedit/internal/model"
	"pdfedit/internal/repository"
)

// EditModelPostgres stores edit models as a JSON document per row.
type EditModelPostgres struct {
	db *sql.DB
}

func NewEditModelPostgres(db *sql.DB) *EditModelPostgres {
	return &EditModelPostgres{db: db}
}

var _ repository.EditModelRepository = (*EditModelPostgres)(nil)

func (r *EditModelPostgres) Find(ctx context.Context, documentID string) (*model.EditRecord, error) {
	const q = `
		SELECT document_id, version, pages, updated_at
		FROM edit_models
		WHERE document_id = $1
	`
	var (
		rec   model.EditRecord
		pages []byte
	)
	if err := r.db.QueryRowContext(ctx, q, documentID).Scan(
		&rec.DocumentID,
		&rec.Model.Version,
		&pages,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pages, &rec.Model.Pages); err != nil {
		return nil, fmt.Errorf("decode pages: %w", err)
	}
	if rec.Model.Pages == nil {
		rec.Model.Pages = map[string][]json.RawMessage{}
	}
	return &rec, nil
}

func (r *EditModelPostgres) Save(ctx context.Context, rec *model.EditRecord) error {
	pages := rec.Model.Pages
	if pages == nil {
		pages = map[string][]json.RawMessage{}
	}
	b, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}
	const q = `
		INSERT INTO edit_models (document_id, version, pages, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE
		SET version = excluded.version, pages = excluded.pages, updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, q, rec.DocumentID, rec.Model.Version, string(b), rec.UpdatedAt)
	return err
}

func (r *EditModelPostgres) Delete(ctx context.Context, documentID string) error {
	const q = `DELETE FROM edit_models WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, q, documentID)
	return err
}
