package docstore

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/apperr"
	"pdfedit/internal/model"
	"pdfedit/internal/pdf"
	"pdfedit/internal/pdf/pdftest"
	repoMocks "pdfedit/internal/repository/mocks"
	"pdfedit/internal/storage"
)

const docID = "7c3a4a2e-0d7c-4a8e-9c55-1d2f3b4c5d6e"

func seeded(t *testing.T, labels ...string) (*Store, *repoMocks.MockDocumentRepository, *storage.Memory, *model.Document) {
	t.Helper()
	repo := new(repoMocks.MockDocumentRepository)
	mem := storage.NewMemory()
	data := pdftest.Build(t, labels...)
	_, err := storage.PutBytes(context.Background(), mem, "documents/"+docID+".pdf", data, ContentTypePDF)
	require.NoError(t, err)
	meta := &model.Document{
		ID:          docID,
		Filename:    docID + ".pdf",
		StoragePath: "documents/" + docID + ".pdf",
		Size:        int64(len(data)),
		PageCount:   len(labels),
	}
	return New(repo, mem), repo, mem, meta
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, repo, mem, meta := seeded(t, "A", "B")

	t.Run("ok", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, docID).Return(meta, nil).Once()
		h, err := s.Open(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, 2, s.PageCount(h))
		assert.NotEmpty(t, h.Raw)
	})

	t.Run("missing row", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, "nope").Return(nil, sql.ErrNoRows).Once()
		_, err := s.Open(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		repo.On("FindByID", mock.Anything, "broken").Return(nil, errors.New("conn reset")).Once()
		_, err := s.Open(ctx, "broken")
		assert.ErrorIs(t, err, apperr.ErrPersistence)
	})

	t.Run("missing object", func(t *testing.T) {
		require.NoError(t, mem.Delete(ctx, meta.StoragePath))
		repo.On("FindByID", mock.Anything, docID).Return(meta, nil).Once()
		_, err := s.Open(ctx, docID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
	repo.AssertExpectations(t)
}

func TestMutate(t *testing.T) {
	ctx := context.Background()
	s, repo, mem, meta := seeded(t, "A", "B", "C")
	repo.On("FindByID", mock.Anything, docID).Return(meta, nil)
	repo.On("UpdateStructure", mock.Anything, docID, 2, mock.AnythingOfType("int64"), mock.Anything).Return(nil).Once()

	var hookCount int
	out, err := s.Mutate(ctx, docID, func(d *pdf.Document) error {
		return d.DeletePage(0)
	}, func(_ context.Context, m *model.Document) error {
		hookCount = m.PageCount
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.PageCount)
	assert.Equal(t, 2, hookCount)
	assert.False(t, out.UpdatedAt.IsZero())

	raw, _, err := storage.ReadAll(ctx, mem, meta.StoragePath)
	require.NoError(t, err)
	d, err := pdf.Open(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, 2, d.PageCount())
	assert.Equal(t, 0, s.locks.size())
	repo.AssertExpectations(t)
}

func TestMutate_ValidationErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, repo, mem, meta := seeded(t, "A")
	repo.On("FindByID", mock.Anything, docID).Return(meta, nil)
	before, _, _ := storage.ReadAll(ctx, mem, meta.StoragePath)

	hookRan := false
	_, err := s.Mutate(ctx, docID, func(d *pdf.Document) error {
		return apperr.Invalid("page index 5 out of range")
	}, func(context.Context, *model.Document) error {
		hookRan = true
		return nil
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.False(t, hookRan)

	after, _, _ := storage.ReadAll(ctx, mem, meta.StoragePath)
	assert.Equal(t, before, after)
	repo.AssertNotCalled(t, "UpdateStructure", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMutate_SerializesWriters(t *testing.T) {
	ctx := context.Background()
	s, repo, _, meta := seeded(t, "A")
	repo.On("FindByID", mock.Anything, docID).Return(meta, nil)
	repo.On("UpdateStructure", mock.Anything, docID, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Mutate(ctx, docID, func(d *pdf.Document) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				err := d.SetRotation(0, 90)
				mu.Lock()
				inside--
				mu.Unlock()
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockDocumentRepository)
	mem := storage.NewMemory()
	s := New(repo, mem)

	t.Run("ok", func(t *testing.T) {
		var doc *model.Document
		repo.On("Create", mock.Anything, mock.AnythingOfType("*model.Document")).
			Run(func(args mock.Arguments) { doc = args.Get(1).(*model.Document) }).
			Return(&model.Document{}, nil).Once()

		_, err := s.Create(ctx, `C:\Users\me\report.pdf`, ContentTypePDF, pdftest.Build(t, "A", "B"))
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, 2, doc.PageCount)
		assert.Equal(t, "report.pdf", doc.OriginalName)
		assert.Equal(t, "documents/"+doc.ID+".pdf", doc.StoragePath)
		assert.Contains(t, mem.Keys(), doc.StoragePath)
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, err := s.Create(ctx, "x.pdf", ContentTypePDF, []byte("hello"))
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	t.Run("rollback on insert failure", func(t *testing.T) {
		before := len(mem.Keys())
		repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed")).Once()
		_, err := s.Create(ctx, "x.pdf", ContentTypePDF, pdftest.Build(t, "A"))
		assert.ErrorIs(t, err, apperr.ErrPersistence)
		assert.Len(t, mem.Keys(), before)
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, repo, mem, meta := seeded(t, "A")
	_, err := s.PutArtifact(ctx, ExportKey(docID), []byte("%PDF-"), ContentTypePDF)
	require.NoError(t, err)
	repo.On("FindByID", mock.Anything, docID).Return(meta, nil).Once()
	repo.On("Delete", mock.Anything, docID).Return(nil).Once()

	var hooked bool
	err = s.Remove(ctx, docID, func(context.Context, *model.Document) error {
		hooked = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, hooked)
	assert.Empty(t, mem.Keys())
	repo.AssertExpectations(t)
}

func TestPresignSource(t *testing.T) {
	ctx := context.Background()
	s, repo, _, meta := seeded(t, "A")
	repo.On("FindByID", mock.Anything, docID).Return(meta, nil).Once()
	u, err := s.PresignSource(ctx, docID, 60)
	require.NoError(t, err)
	assert.Contains(t, u, meta.StoragePath)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "a.pdf", cleanName("dir/a.pdf"))
	assert.Equal(t, "a.pdf", cleanName(`dir\a.pdf`))
	assert.Equal(t, "document.pdf", cleanName(""))
	assert.Equal(t, "document.pdf", cleanName("  "))
}
