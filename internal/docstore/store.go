// Package docstore owns the canonical PDF of every document: the source object in storage and its
// metadata row. Structural changes go through Mutate, which serializes writers per document.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfedit/internal/apperr"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
	"pdfedit/internal/repository"
	"pdfedit/internal/storage"
)

const (
	ContentTypePDF = "application/pdf"
	sourcePrefix   = "documents/"
	exportPrefix   = "exports/"
)

// Handle is an opened document: metadata, the stored bytes and their parsed form.
type Handle struct {
	Meta *model.Document
	Raw  []byte
	Doc  *pdf.Document
}

// Hook runs after a successful write while the document is still locked.
type Hook func(ctx context.Context, meta *model.Document) error

// Store pairs document metadata with the PDF object it describes and serializes writes per document.
type Store struct {
	repo    repository.DocumentRepository
	objects storage.Storage
	locks   *keyedMutex
	now     func() time.Time
}

// New returns a Store reading metadata from repo and PDF bytes from objects.
func New(repo repository.DocumentRepository, objects storage.Storage) *Store {
	return &Store{
		repo:    repo,
		objects: objects,
		locks:   newKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ExportKey is where the composed output of a document is written.
func ExportKey(id string) string {
	return exportPrefix + id + ".pdf"
}

// Meta loads the metadata row only.
func (s *Store) Meta(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("document %s", id)
		}
		return nil, apperr.Persistence("load document", err)
	}
	return doc, nil
}

// Open loads and parses the current source of a document.
func (s *Store) Open(ctx context.Context, id string) (*Handle, error) {
	meta, err := s.Meta(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, _, err := storage.ReadAll(ctx, s.objects, meta.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperr.NotFound("source of document %s", id)
		}
		return nil, apperr.Persistence("read source", err)
	}
	doc, err := pdf.Open(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("parse stored document %s: %w", id, err)
	}
	return &Handle{Meta: meta, Raw: raw, Doc: doc}, nil
}

// PageCount is the number of pages of an opened document.
func (s *Store) PageCount(h *Handle) int {
	return h.Doc.PageCount()
}

// Mutate applies fn to the document and persists the result. An error from fn aborts before anything
// is written. The source object is replaced with a single Put, then the row is updated and hooks run,
// all before the next writer of the same document may start.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*pdf.Document) error, hooks ...Hook) (*model.Document, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	h, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(h.Doc); err != nil {
		return nil, err
	}
	out, err := h.Doc.Bytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("serialize document %s: %w", id, err)
	}
	if _, err := storage.PutBytes(ctx, s.objects, h.Meta.StoragePath, out, ContentTypePDF); err != nil {
		return nil, apperr.Persistence("write source", err)
	}

	meta := *h.Meta
	meta.PageCount = h.Doc.PageCount()
	meta.Size = int64(len(out))
	meta.UpdatedAt = s.now()
	if err := s.repo.UpdateStructure(ctx, id, meta.PageCount, meta.Size, meta.UpdatedAt); err != nil {
		return nil, apperr.Persistence("update document", err)
	}
	for _, hook := range hooks {
		if err := hook(ctx, &meta); err != nil {
			return nil, err
		}
	}
	return &meta, nil
}

// Create validates data as a PDF, stores it and inserts its metadata. The object is removed again when
// the insert fails.
func (s *Store) Create(ctx context.Context, originalName, contentType string, data []byte) (*model.Document, error) {
	parsed, err := pdf.Open(ctx, data)
	if err != nil {
		return nil, apperr.Invalid("file is not a readable PDF")
	}

	id := uuid.NewString()
	filename := id + ".pdf"
	key := sourcePrefix + filename
	info, err := storage.PutBytes(ctx, s.objects, key, data, ContentTypePDF)
	if err != nil {
		return nil, apperr.Persistence("store source", err)
	}

	now := s.now()
	doc := &model.Document{
		ID:           id,
		Filename:     filename,
		OriginalName: cleanName(originalName),
		StoragePath:  info.Key,
		Size:         info.Size,
		ContentType:  contentType,
		PageCount:    parsed.PageCount(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			return nil, apperr.Persistence("save document", fmt.Errorf("%v; rollback delete failed: %w", err, delErr))
		}
		return nil, apperr.Persistence("save document", err)
	}
	return stored, nil
}

// Remove deletes the source and export objects, runs hooks for the derived state kept elsewhere,
// then deletes the row. The row goes last so a failed attempt can be retried.
func (s *Store) Remove(ctx context.Context, id string, hooks ...Hook) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	meta, err := s.Meta(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range []string{meta.StoragePath, ExportKey(id)} {
		if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return apperr.Persistence("delete object", err)
		}
	}
	for _, hook := range hooks {
		if err := hook(ctx, meta); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Persistence("delete document", err)
	}
	return nil
}

// PutArtifact stores a derived file such as an export.
func (s *Store) PutArtifact(ctx context.Context, key string, data []byte, contentType string) (storage.ObjectInfo, error) {
	info, err := storage.PutBytes(ctx, s.objects, key, data, contentType)
	if err != nil {
		return storage.ObjectInfo{}, apperr.Persistence("store artifact", err)
	}
	return info, nil
}

// PresignSource returns a time-limited download URL for the current source.
func (s *Store) PresignSource(ctx context.Context, id string, expiry time.Duration) (string, error) {
	meta, err := s.Meta(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.objects.PresignGet(ctx, meta.StoragePath, expiry)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", apperr.NotFound("source of document %s", id)
		}
		return "", apperr.Persistence("presign source", err)
	}
	return u, nil
}

// cleanName keeps the base name of an uploaded file, defaulting to document.pdf.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
