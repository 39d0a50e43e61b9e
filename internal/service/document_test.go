package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/apperr"
	"pdfedit/internal/docstore"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf/pdftest"
	"pdfedit/internal/repository"
)

func documentSetup(t *testing.T, maxBytes int64) (*testEnv, DocumentService) {
	t.Helper()
	e := newEnv(t, "A")
	return e, NewDocumentService(e.store, e.repo, e.edits, e.cache, DocumentOptions{
		MaxUploadBytes: maxBytes,
		PresignExpiry:  time.Minute,
	})
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	valid := pdftest.Build(t, "A", "B", "C")

	tests := []struct {
		name        string
		body        func() io.Reader
		contentType string
		size        int64
		maxBytes    int64
		setupMocks  func(e *testEnv)
		wantErr     error
		check       func(t *testing.T, e *testEnv, doc *model.Document)
	}{
		{
			name:        "happy path",
			body:        func() io.Reader { return bytes.NewReader(valid) },
			contentType: "application/pdf",
			size:        int64(len(valid)),
			setupMocks: func(e *testEnv) {
				e.repo.On("Create", mock.Anything, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.PageCount == 3 && doc.OriginalName == "scan.pdf" &&
						strings.HasPrefix(doc.StoragePath, "documents/") && strings.HasSuffix(doc.StoragePath, ".pdf")
				})).Return(&model.Document{ID: "gen-id", PageCount: 3}, nil)
			},
			check: func(t *testing.T, e *testEnv, doc *model.Document) {
				assert.Equal(t, 3, doc.PageCount)
				assert.Len(t, e.mem.Keys(), 2)
			},
		},
		{
			name:        "octet-stream is accepted",
			body:        func() io.Reader { return bytes.NewReader(valid) },
			contentType: "application/octet-stream",
			setupMocks: func(e *testEnv) {
				e.repo.On("Create", mock.Anything, mock.Anything).Return(&model.Document{ID: "gen-id"}, nil)
			},
		},
		{
			name:       "validation error - nil reader",
			body:       func() io.Reader { return nil },
			setupMocks: func(e *testEnv) {},
			wantErr:    ErrReaderNil,
		},
		{
			name:        "wrong content type",
			body:        func() io.Reader { return strings.NewReader("hello") },
			contentType: "text/plain",
			setupMocks:  func(e *testEnv) {},
			wantErr:     apperr.ErrInvalidArgument,
		},
		{
			name:        "not a pdf",
			body:        func() io.Reader { return strings.NewReader("hello world") },
			contentType: "application/pdf",
			setupMocks:  func(e *testEnv) {},
			wantErr:     apperr.ErrInvalidArgument,
		},
		{
			name:        "declared size over limit",
			body:        func() io.Reader { return bytes.NewReader(valid) },
			contentType: "application/pdf",
			size:        100,
			maxBytes:    10,
			setupMocks:  func(e *testEnv) {},
			wantErr:     apperr.ErrInvalidArgument,
		},
		{
			name:        "body over limit",
			body:        func() io.Reader { return bytes.NewReader(valid) },
			contentType: "application/pdf",
			size:        -1,
			maxBytes:    10,
			setupMocks:  func(e *testEnv) {},
			wantErr:     apperr.ErrInvalidArgument,
		},
		{
			name:        "repository error with rollback",
			body:        func() io.Reader { return bytes.NewReader(valid) },
			contentType: "application/pdf",
			setupMocks: func(e *testEnv) {
				e.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
			check: func(t *testing.T, e *testEnv, _ *model.Document) {
				assert.Len(t, e.mem.Keys(), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := documentSetup(t, tt.maxBytes)
			tt.setupMocks(e)

			doc, err := svc.Upload(ctx, tt.body(), "scan.pdf", tt.contentType, tt.size)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, doc)
			}
			if tt.check != nil {
				tt.check(t, e, doc)
			}
			e.repo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(e *testEnv)
		wantErr    bool
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:   "happy path",
			limit:  10,
			offset: 0,
			setupMocks: func(e *testEnv) {
				e.repo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{
						Items: []model.Document{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 2, len(res.Items))
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(e *testEnv) {
				e.repo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(e *testEnv) {
				e.repo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := documentSetup(t, 0)
			tt.setupMocks(e)

			res, err := svc.List(ctx, tt.limit, tt.offset)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			e.repo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(e *testEnv)
		wantErr    error
	}{
		{
			name:       "happy path",
			id:         testDocID,
			setupMocks: func(e *testEnv) {},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(e *testEnv) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   "missing-id",
			setupMocks: func(e *testEnv) {
				e.repo.On("FindByID", mock.Anything, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   "error-id",
			setupMocks: func(e *testEnv) {
				e.repo.On("FindByID", mock.Anything, "error-id").Return(nil, errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := documentSetup(t, 0)
			tt.setupMocks(e)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, doc.ID)
				assert.Equal(t, 1, doc.PageCount)
			}
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(e *testEnv)
		wantErr    error
		check      func(t *testing.T, e *testEnv)
	}{
		{
			name: "removes source, renders, export and edits",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Delete", mock.Anything, testDocID).Return(nil)
				e.repo.On("Delete", mock.Anything, testDocID).Return(nil)
			},
			check: func(t *testing.T, e *testEnv) {
				assert.Empty(t, e.mem.Keys())
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(e *testEnv) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing-id",
			setupMocks: func(e *testEnv) {
				e.repo.On("FindByID", mock.Anything, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "edit model delete error keeps row",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Delete", mock.Anything, testDocID).Return(errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
		},
		{
			name: "repository delete error",
			id:   testDocID,
			setupMocks: func(e *testEnv) {
				e.edits.On("Delete", mock.Anything, testDocID).Return(nil)
				e.repo.On("Delete", mock.Anything, testDocID).Return(errors.New("db fail"))
			},
			wantErr: apperr.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, svc := documentSetup(t, 0)
			renders := NewRenderService(e.store, e.cache, e.slots, testRenderConfig)
			e.warm(t, renders, 1)
			_, err := e.store.PutArtifact(ctx, docstore.ExportKey(testDocID), []byte("%PDF-"), docstore.ContentTypePDF)
			require.NoError(t, err)
			tt.setupMocks(e)

			err = svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.check != nil {
				tt.check(t, e)
			}
			e.edits.AssertExpectations(t)
		})
	}
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()
	e, svc := documentSetup(t, 0)

	u, err := svc.DownloadURL(ctx, testDocID)
	require.NoError(t, err)
	assert.Contains(t, u, e.meta.StoragePath)

	_, err = svc.DownloadURL(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)

	require.NoError(t, e.mem.Delete(ctx, e.meta.StoragePath))
	_, err = svc.DownloadURL(ctx, testDocID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
