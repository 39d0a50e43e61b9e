package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/png"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pdfedit/internal/apperr"
	"pdfedit/internal/metrics"
)

func pngSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestRenderService_Render(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "A", "B")
	svc := NewRenderService(e.store, e.cache, e.slots, testRenderConfig)
	assert.Equal(t, 2.0, svc.DefaultScale())

	b, hit, err := svc.Render(ctx, testDocID, 1, 2)
	require.NoError(t, err)
	assert.False(t, hit)
	w, h := pngSize(t, b)
	assert.Equal(t, 400, w)
	assert.Equal(t, 600, h)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.True(t, img.(interface{ Opaque() bool }).Opaque())
	assert.Equal(t, image.Rect(0, 0, 400, 600), img.Bounds())

	again, hit, err := svc.Render(ctx, testDocID, 1, 2)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, b, again)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RenderCacheRequests.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, []string{"renders/" + testDocID + "/p1_s2.png"}, e.renderKeys(t))
}

func TestRenderService_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "A")
	e.repo.On("FindByID", mock.Anything, "missing").Return(nil, sql.ErrNoRows)
	svc := NewRenderService(e.store, e.cache, e.slots, testRenderConfig)

	tests := []struct {
		name    string
		id      string
		page    int
		scale   float64
		wantErr error
	}{
		{"zero scale", testDocID, 0, 0, apperr.ErrInvalidArgument},
		{"negative scale", testDocID, 0, -1, apperr.ErrInvalidArgument},
		{"scale above max", testDocID, 0, 8.5, apperr.ErrInvalidArgument},
		{"page out of range", testDocID, 1, 1, apperr.ErrInvalidArgument},
		{"negative page", testDocID, -1, 1, apperr.ErrInvalidArgument},
		{"unknown document", "missing", 0, 1, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Render(ctx, tt.id, tt.page, tt.scale)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, e.renderKeys(t))
}
