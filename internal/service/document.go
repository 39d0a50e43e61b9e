package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdfedit/internal/apperr"
	"pdfedit/internal/docstore"
	"pdfedit/internal/model"
	"pdfedit/internal/rendercache"
	"pdfedit/internal/repository"
)

var tracer = otel.Tracer("pdfedit/internal/service")

var (
	ErrIDRequired = fmt.Errorf("%w: id is required", apperr.ErrInvalidArgument)
	ErrReaderNil  = fmt.Errorf("%w: reader is nil", apperr.ErrInvalidArgument)
	ErrNotFound   = apperr.ErrNotFound
)

// acceptedUploadTypes are the declared content types an upload may carry. The bytes are parsed
// regardless, so octet-stream is accepted for clients that do not label files.
var acceptedUploadTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true,
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload validates the content as a PDF, stores it and saves its metadata.
	// Storage is rolled back when the metadata cannot be saved.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Delete removes a document with its renders, export and edit model.
	Delete(ctx context.Context, id string) error

	// DownloadURL returns a presigned URL for the current source PDF.
	DownloadURL(ctx context.Context, id string) (string, error)
}

type documentService struct {
	store         *docstore.Store
	repo          repository.DocumentRepository
	edits         repository.EditModelRepository
	cache         *rendercache.Cache
	maxBytes      int64
	presignExpiry time.Duration
}

// DocumentOptions bounds uploads and download links.
type DocumentOptions struct {
	MaxUploadBytes int64
	PresignExpiry  time.Duration
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store *docstore.Store, repo repository.DocumentRepository, edits repository.EditModelRepository, cache *rendercache.Cache, opts DocumentOptions) DocumentService {
	return &documentService{
		store:         store,
		repo:          repo,
		edits:         edits,
		cache:         cache,
		maxBytes:      opts.MaxUploadBytes,
		presignExpiry: opts.PresignExpiry,
	}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer span.End()

	if r == nil {
		return nil, ErrReaderNil
	}
	if mt, _, err := mime.ParseMediaType(contentType); contentType != "" && (err != nil || !acceptedUploadTypes[strings.ToLower(mt)]) {
		return nil, apperr.Invalid("content type %q is not a PDF", contentType)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, apperr.Invalid("file size %d exceeds limit of %d bytes", size, s.maxBytes)
	}

	var buf bytes.Buffer
	limit := s.maxBytes
	if limit <= 0 {
		limit = 1 << 62
	}
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return nil, apperr.Invalid("file exceeds limit of %d bytes", s.maxBytes)
	}

	doc, err := s.store.Create(ctx, originalFilename, "application/pdf", buf.Bytes())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("document.id", doc.ID), attribute.Int("document.page_count", doc.PageCount))
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return s.store.Meta(ctx, id)
}

// Delete removes the source and export first, then renders and the edit model, and the row last.
func (s *documentService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete")
	defer span.End()

	if id == "" {
		return ErrIDRequired
	}
	return s.store.Remove(ctx, id,
		func(ctx context.Context, _ *model.Document) error {
			if _, err := s.cache.Invalidate(ctx, id, rendercache.All()); err != nil {
				return apperr.Persistence("delete renders", err)
			}
			return nil
		},
		func(ctx context.Context, _ *model.Document) error {
			if err := s.edits.Delete(ctx, id); err != nil {
				return apperr.Persistence("delete edit model", err)
			}
			return nil
		},
	)
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	return s.store.PresignSource(ctx, id, s.presignExpiry)
}
