package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	info, err := PutBytes(ctx, m, "documents/a.pdf", []byte("%PDF-1.7"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)
	assert.NotEmpty(t, info.ETag)

	b, got, err := ReadAll(ctx, m, "documents/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(b))
	assert.Equal(t, "application/pdf", got.ContentType)

	_, err = PutBytes(ctx, m, "documents/a.pdf", []byte("%PDF-2.0"), "application/pdf")
	require.NoError(t, err)
	b, _, err = ReadAll(ctx, m, "documents/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-2.0", string(b))

	require.NoError(t, m.Delete(ctx, "documents/a.pdf"))
	require.NoError(t, m.Delete(ctx, "documents/a.pdf"))

	_, _, err = m.Get(ctx, "documents/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemory_SizeMismatch(t *testing.T) {
	_, err := NewMemory().Put(context.Background(), "k", strings.NewReader("abc"), PutObjectOptions{Size: 5})
	assert.Error(t, err)

	_, err = NewMemory().Put(context.Background(), "k", strings.NewReader("abc"), PutObjectOptions{Size: -1})
	assert.NoError(t, err)
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"renders/d1/p0_s2.png", "renders/d1/p1_s2.png", "renders/d2/p0_s2.png", "exports/d1.pdf"} {
		_, err := PutBytes(ctx, m, k, []byte("x"), "")
		require.NoError(t, err)
	}

	objs, err := m.List(ctx, "renders/d1/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "renders/d1/p0_s2.png", objs[0].Key)
	assert.Equal(t, "renders/d1/p1_s2.png", objs[1].Key)

	assert.Len(t, m.Keys(), 4)
}

func TestMemory_PresignGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.PresignGet(ctx, "missing", time.Minute)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = PutBytes(ctx, m, "documents/a.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	u, err := m.PresignGet(ctx, "documents/a.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "memory:///documents/a.pdf?expires="))
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewMemory().Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
