package repository

import (
	"context"

	"pdfedit/internal/model"
)

// EditModelRepository persists one edit model per document.
type EditModelRepository interface {
	// Find returns the stored model for a document, or sql.ErrNoRows when none was saved.
	Find(ctx context.Context, documentID string) (*model.EditRecord, error)

	// Save replaces the stored model (insert or update).
	Save(ctx context.Context, rec *model.EditRecord) error

	// Delete removes the model. Missing rows are not an error.
	Delete(ctx context.Context, documentID string) error
}
