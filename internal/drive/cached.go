package drive

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMetadataCacheSize = 256
	defaultMetadataTTL       = 30 * time.Second
)

// CachedClient keeps file metadata fetched through GetFileMetadata for a
// short TTL. Listing, downloads and writes always reach the origin.
type CachedClient struct {
	origin Client
	meta   *expirable.LRU[string, File]

	hits   atomic.Int64
	misses atomic.Int64
}

type CacheMetrics struct {
	Hits   int64
	Misses int64
}

func NewCachedClient(origin Client, size int, ttl time.Duration) *CachedClient {
	if size <= 0 {
		size = defaultMetadataCacheSize
	}
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	return &CachedClient{
		origin: origin,
		meta:   expirable.NewLRU[string, File](size, nil, ttl),
	}
}

func (c *CachedClient) ListFiles(ctx context.Context, folderID string) (ListResult, error) {
	return c.origin.ListFiles(ctx, folderID)
}

func (c *CachedClient) GetFileMetadata(ctx context.Context, fileID string) (File, error) {
	if f, ok := c.meta.Get(fileID); ok {
		c.hits.Add(1)
		return f, nil
	}
	c.misses.Add(1)
	f, err := c.origin.GetFileMetadata(ctx, fileID)
	if err != nil {
		return File{}, err
	}
	c.meta.Add(fileID, f)
	return f, nil
}

func (c *CachedClient) DownloadFile(ctx context.Context, fileID string) (File, error) {
	return c.origin.DownloadFile(ctx, fileID)
}

func (c *CachedClient) CreateGoogleDoc(ctx context.Context, fileName, folderID string) (DocRef, error) {
	return c.origin.CreateGoogleDoc(ctx, fileName, folderID)
}

func (c *CachedClient) UpdateGoogleDoc(ctx context.Context, fileID, content string) (DocRef, error) {
	ref, err := c.origin.UpdateGoogleDoc(ctx, fileID, content)
	c.meta.Remove(fileID)
	return ref, err
}

func (c *CachedClient) Metrics() CacheMetrics {
	return CacheMetrics{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
