package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/apperr"
	"pdfedit/internal/config"
	"pdfedit/internal/pdf/pdftest"
)

var testRenderConfig = config.RenderConfig{DefaultScale: 2, MaxScale: 8, MaxConcurrency: 2}

func pageSetup(t *testing.T, labels ...string) (*testEnv, PageService, RenderService) {
	t.Helper()
	e := newEnv(t, labels...)
	return e, NewPageService(e.store, e.cache, e.log), NewRenderService(e.store, e.cache, e.slots, testRenderConfig)
}

func keysWithPage(keys []string, page string) []string {
	var out []string
	for _, k := range keys {
		if strings.Contains(k, "/p"+page+"_") {
			out = append(out, k)
		}
	}
	return out
}

func TestPageService_Rotate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		angle   int
		want    int
		wantErr error
	}{
		{name: "quarter turn", angle: 90, want: 90},
		{name: "wraps past 360", angle: 450, want: 90},
		{name: "negative", angle: -90, want: 270},
		{name: "full turn", angle: 360, want: 0},
		{name: "not a right angle", angle: 45, wantErr: apperr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, pages, renders := pageSetup(t, "A", "B")
			e.warm(t, renders, 1, 2)
			before := e.source(t)

			doc, err := pages.Rotate(ctx, testDocID, 1, tt.angle)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, e.source(t))
				assert.Len(t, e.renderKeys(t), 4)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, doc.PageCount)

			rot, err := e.open(t).Rotation(1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rot)

			keys := e.renderKeys(t)
			assert.Empty(t, keysWithPage(keys, "1"))
			assert.Len(t, keysWithPage(keys, "0"), 2)
		})
	}
}

func TestPageService_RotateChangesRender(t *testing.T) {
	ctx := context.Background()
	_, pages, renders := pageSetup(t, "A")

	b, _, err := renders.Render(ctx, testDocID, 0, 1)
	require.NoError(t, err)
	w, h := pngSize(t, b)
	assert.Equal(t, [2]int{int(pdftest.PageWidth), int(pdftest.PageHeight)}, [2]int{w, h})

	_, err = pages.Rotate(ctx, testDocID, 0, 90)
	require.NoError(t, err)

	b, hit, err := renders.Render(ctx, testDocID, 0, 1)
	require.NoError(t, err)
	assert.False(t, hit)
	w, h = pngSize(t, b)
	assert.Equal(t, [2]int{int(pdftest.PageHeight), int(pdftest.PageWidth)}, [2]int{w, h})
}

func TestPageService_Duplicate(t *testing.T) {
	ctx := context.Background()
	e, pages, renders := pageSetup(t, "A", "B", "C")
	before := pdftest.Digests(t, e.open(t))
	e.warm(t, renders, 1)

	doc, err := pages.Duplicate(ctx, testDocID, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.PageCount)

	after := pdftest.Digests(t, e.open(t))
	want := []string{before[0], before[1], before[1], before[2]}
	if diff := cmp.Diff(want, after); diff != "" {
		t.Errorf("pages after duplicate (-want +got):\n%s", diff)
	}
	keys := e.renderKeys(t)
	assert.Equal(t, []string{"renders/" + testDocID + "/p0_s1.png"}, keys)

	_, err = pages.Duplicate(ctx, testDocID, 4)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Contains(t, apperr.Message(err), "page index 4 out of range [0,4)")
}

func TestPageService_DeletePage(t *testing.T) {
	ctx := context.Background()
	e, pages, renders := pageSetup(t, "A", "B", "C")
	before := pdftest.Digests(t, e.open(t))
	e.warm(t, renders, 1)

	doc, err := pages.DeletePage(ctx, testDocID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, []string{before[0], before[2]}, pdftest.Digests(t, e.open(t)))
	assert.Equal(t, []string{"renders/" + testDocID + "/p0_s1.png"}, e.renderKeys(t))

	_, err = pages.DeletePage(ctx, testDocID, -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestPageService_DeleteOnlyPage(t *testing.T) {
	e, pages, _ := pageSetup(t, "A")
	before := e.source(t)

	_, err := pages.DeletePage(context.Background(), testDocID, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Equal(t, before, e.source(t))
	e.repo.AssertNotCalled(t, "UpdateStructure", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPageService_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("permutation", func(t *testing.T) {
		e, pages, renders := pageSetup(t, "A", "B", "C")
		before := pdftest.Digests(t, e.open(t))
		e.warm(t, renders, 1, 2)

		doc, err := pages.Reorder(ctx, testDocID, []int{2, 0, 1})
		require.NoError(t, err)
		assert.Equal(t, 3, doc.PageCount)
		assert.Equal(t, []string{before[2], before[0], before[1]}, pdftest.Digests(t, e.open(t)))
		assert.Empty(t, e.renderKeys(t))
	})

	for _, order := range [][]int{{0, 1}, {0, 0, 1}, {0, 1, 3}, {2, 1, 0, 3}, nil} {
		t.Run(fmt.Sprintf("invalid %v", order), func(t *testing.T) {
			e, pages, renders := pageSetup(t, "A", "B", "C")
			e.warm(t, renders, 1)
			before := e.source(t)

			_, err := pages.Reorder(ctx, testDocID, order)
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
			assert.Equal(t, before, e.source(t))
			assert.Equal(t, 3, e.meta.PageCount)
			assert.Len(t, e.renderKeys(t), 3)
		})
	}
}

func TestPageService_NotFound(t *testing.T) {
	e, pages, _ := pageSetup(t, "A")
	e.repo.On("FindByID", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	_, err := pages.Rotate(context.Background(), "missing", 0, 90)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
