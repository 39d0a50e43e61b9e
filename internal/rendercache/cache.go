// Package rendercache stores page rasters in object storage keyed by (document, page, scale).
//
// Lookups and fills of a document hold a shared lock and invalidation holds the exclusive one, so once
// Invalidate returns no Get can hand out an entry it removed. Concurrent misses for one key run a single fill.
// A document whose invalidation failed is marked stale: until a full invalidation succeeds its rasters are
// rendered fresh and not stored.
package rendercache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"pdfedit/internal/metrics"
	"pdfedit/internal/storage"
)

const contentType = "image/png"

// FillFunc produces the PNG bytes for a missing entry.
type FillFunc func(ctx context.Context) ([]byte, error)

// Cache is a page raster cache kept in object storage. It is safe for concurrent use.
type Cache struct {
	store   storage.Storage
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	group   singleflight.Group

	mu    sync.Mutex
	locks map[string]*docLock
	stale map[string]bool
}

type docLock struct {
	sync.RWMutex
	refs int
}

// New returns a Cache that keeps its entries in store under the renders/ prefix.
func New(store storage.Storage, m *metrics.Metrics, log logrus.FieldLogger) *Cache {
	return &Cache{
		store:   store,
		metrics: m,
		log:     log,
		locks:   map[string]*docLock{},
		stale:   map[string]bool{},
	}
}

func (c *Cache) isStale(docID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale[docID]
}

func (c *Cache) setStale(docID string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.stale[docID] = true
	} else {
		delete(c.stale, docID)
	}
}

func (c *Cache) acquire(docID string) *docLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[docID]
	if !ok {
		l = &docLock{}
		c.locks[docID] = l
	}
	l.refs++
	return l
}

func (c *Cache) release(docID string, l *docLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, docID)
	}
}

// Get returns the cached raster for key, calling fill and storing its result on a miss.
// The boolean reports a hit.
func (c *Cache) Get(ctx context.Context, key Key, fill FillFunc) ([]byte, bool, error) {
	if c.isStale(key.DocID) {
		// Invalidate widens to All for a stale document and clears the mark on success.
		_, _ = c.Invalidate(ctx, key.DocID, All())
	}

	l := c.acquire(key.DocID)
	defer c.release(key.DocID, l)
	l.RLock()
	defer l.RUnlock()

	// the mark only changes under the exclusive lock
	if c.isStale(key.DocID) {
		c.metrics.RenderCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
		out, err := fill(ctx)
		if err != nil {
			return nil, false, err
		}
		return out, false, nil
	}

	name := key.String()
	b, _, err := storage.ReadAll(ctx, c.store, name)
	if err == nil {
		c.metrics.RenderCacheRequests.WithLabelValues(metrics.ResultHit).Inc()
		return b, true, nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, false, fmt.Errorf("read render %s: %w", name, err)
	}

	c.metrics.RenderCacheRequests.WithLabelValues(metrics.ResultMiss).Inc()
	v, err, _ := c.group.Do(name, func() (any, error) {
		out, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := storage.PutBytes(ctx, c.store, name, out, contentType); err != nil {
			return nil, fmt.Errorf("store render %s: %w", name, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Invalidate deletes the entries of docID chosen by sel and returns how many were removed.
// On failure the document stays stale until a later call removes all of its entries.
func (c *Cache) Invalidate(ctx context.Context, docID string, sel Selector) (int, error) {
	l := c.acquire(docID)
	defer c.release(docID, l)
	l.Lock()
	defer l.Unlock()

	if c.isStale(docID) {
		sel = All()
	}
	removed, err := c.remove(ctx, docID, sel)
	c.metrics.Invalidations.Add(float64(removed))
	if err != nil {
		c.setStale(docID, true)
		c.log.WithError(err).WithField("document_id", docID).Warn("render_cache_marked_stale")
		return removed, err
	}
	c.setStale(docID, false)
	c.log.WithFields(logrus.Fields{
		"document_id": docID,
		"selector":    sel.String(),
		"removed":     removed,
	}).Debug("render_cache_invalidated")
	return removed, nil
}

func (c *Cache) remove(ctx context.Context, docID string, sel Selector) (int, error) {
	objs, err := c.store.List(ctx, DocPrefix(docID))
	if err != nil {
		return 0, fmt.Errorf("list renders of %s: %w", docID, err)
	}
	removed := 0
	for _, o := range objs {
		page, ok := parsePage(docID, o.Key)
		if !ok || !sel.Match(page) {
			continue
		}
		if err := c.store.Delete(ctx, o.Key); err != nil {
			return removed, fmt.Errorf("delete render %s: %w", o.Key, err)
		}
		removed++
	}
	return removed, nil
}
