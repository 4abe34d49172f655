package blob

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	memcache "rftdraft/internal/cache/memory"
	blobrepo "rftdraft/internal/gateway/repository/blob"
)

type Store = blobrepo.Store

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	BlobMaxBytes   int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		BlobMaxBytes:   128 * 1024 * 1024, // 128MiB, a handful of max-size uploads
		URLTTL:         5 * time.Minute,
		URLMaxEntries:  1024,
	}
}

type MetricsSnapshot struct {
	BlobHits       uint64
	BlobMisses     uint64
	URLHits        uint64
	URLMisses      uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	urlHits        atomic.Uint64
	urlMisses      atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

type cachedBlob struct {
	data []byte
	obj  blobrepo.Object
}

// CachedStore is a read-through cache in front of an origin Store. Uploads
// go to the origin first and only populate the cache once they succeed.
type CachedStore struct {
	origin Store

	blobCache *memcache.LRUTTL[string, cachedBlob]
	urlCache  *memcache.LRUTTL[string, string]
	metrics   metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.BlobMaxBytes < 0 {
		cfg.BlobMaxBytes = def.BlobMaxBytes
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = def.URLTTL
	}
	if cfg.URLMaxEntries <= 0 {
		cfg.URLMaxEntries = def.URLMaxEntries
	}
	return &CachedStore{
		origin:    origin,
		blobCache: memcache.NewLRUTTL[string, cachedBlob](cfg.BlobMaxEntries, cfg.BlobMaxBytes, cfg.BlobTTL),
		urlCache:  memcache.NewLRUTTL[string, string](cfg.URLMaxEntries, 0, cfg.URLTTL),
	}
}

func (s *CachedStore) Upload(ctx context.Context, key string, content []byte, contentType string) (blobrepo.Object, error) {
	s.metrics.originWrites.Add(1)
	obj, err := s.origin.Upload(ctx, key, content, contentType)
	if err != nil {
		s.metrics.originWriteErr.Add(1)
		return blobrepo.Object{}, err
	}
	k := cacheKey(obj.Key)
	copied := append([]byte(nil), content...)
	s.blobCache.Set(k, cachedBlob{data: copied, obj: obj}, len(copied))
	s.urlCache.Delete(k)
	return obj, nil
}

func (s *CachedStore) Download(ctx context.Context, key string) ([]byte, error) {
	k := cacheKey(key)
	if hit, ok := s.blobCache.Get(k); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), hit.data...), nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Download(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	copied := append([]byte(nil), raw...)
	s.blobCache.Set(k, cachedBlob{data: copied, obj: blobrepo.Object{Key: k, Size: int64(len(copied))}}, len(copied))
	return append([]byte(nil), copied...), nil
}

// Stat is answered from the cache only when the cached entry knows its content type.
func (s *CachedStore) Stat(ctx context.Context, key string) (blobrepo.Object, error) {
	k := cacheKey(key)
	if hit, ok := s.blobCache.Get(k); ok && hit.obj.ContentType != "" {
		s.metrics.blobHits.Add(1)
		return hit.obj, nil
	}
	s.metrics.originReads.Add(1)
	obj, err := s.origin.Stat(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return blobrepo.Object{}, err
	}
	return obj, nil
}

func (s *CachedStore) URL(ctx context.Context, key string) (string, error) {
	k := cacheKey(key)
	if cached, ok := s.urlCache.Get(k); ok {
		s.metrics.urlHits.Add(1)
		return cached, nil
	}
	s.metrics.urlMisses.Add(1)
	s.metrics.originReads.Add(1)

	url, err := s.origin.URL(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return "", err
	}
	if strings.TrimSpace(url) != "" {
		s.urlCache.Set(k, url, len(url))
	}
	return url, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		BlobHits:       s.metrics.blobHits.Load(),
		BlobMisses:     s.metrics.blobMisses.Load(),
		URLHits:        s.metrics.urlHits.Load(),
		URLMisses:      s.metrics.urlMisses.Load(),
		OriginReads:    s.metrics.originReads.Load(),
		OriginWrites:   s.metrics.originWrites.Load(),
		OriginReadErr:  s.metrics.originReadErr.Load(),
		OriginWriteErr: s.metrics.originWriteErr.Load(),
	}
}

func cacheKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
