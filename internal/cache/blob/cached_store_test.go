package blob

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	blobrepo "rftdraft/internal/gateway/repository/blob"
)

type fakeOriginStore struct {
	mu sync.Mutex

	data map[string][]byte
	urls map[string]string

	downloadCalls int
	uploadCalls   int
	statCalls     int
	urlCalls      int

	failUpload bool
}

func newFakeOriginStore() *fakeOriginStore {
	return &fakeOriginStore{
		data: map[string][]byte{},
		urls: map[string]string{},
	}
}

func (s *fakeOriginStore) Upload(_ context.Context, key string, content []byte, contentType string) (blobrepo.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadCalls++
	if s.failUpload {
		return blobrepo.Object{}, fmt.Errorf("upload failed")
	}
	s.data[key] = append([]byte(nil), content...)
	return blobrepo.Object{Key: key, ContentType: contentType, Size: int64(len(content))}, nil
}

func (s *fakeOriginStore) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadCalls++
	raw, ok := s.data[key]
	if !ok {
		return nil, blobrepo.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *fakeOriginStore) Stat(_ context.Context, key string) (blobrepo.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statCalls++
	raw, ok := s.data[key]
	if !ok {
		return blobrepo.Object{}, blobrepo.ErrNotFound
	}
	return blobrepo.Object{Key: key, ContentType: "application/pdf", Size: int64(len(raw))}, nil
}

func (s *fakeOriginStore) URL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlCalls++
	return s.urls[key], nil
}

func TestCachedStoreReadThroughAndMetrics(t *testing.T) {
	origin := newFakeOriginStore()
	origin.data["rft/1/a.pdf"] = []byte("hello")
	store := NewCachedStore(origin, CacheConfig{
		BlobTTL: time.Minute, BlobMaxEntries: 8, BlobMaxBytes: 1024,
		URLTTL: time.Minute, URLMaxEntries: 8,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := store.Download(ctx, "rft/1/a.pdf")
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		if string(got) != "hello" {
			t.Fatalf("got=%q", got)
		}
	}
	if origin.downloadCalls != 1 {
		t.Fatalf("origin downloads: got=%d want=1", origin.downloadCalls)
	}
	m := store.Metrics()
	if m.BlobHits != 2 || m.BlobMisses != 1 || m.OriginReads != 1 {
		t.Fatalf("unexpected metrics: %#v", m)
	}

	// Content type is unknown after a plain download, so Stat reaches the origin.
	if _, err := store.Stat(ctx, "rft/1/a.pdf"); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if origin.statCalls != 1 {
		t.Fatalf("origin stats: got=%d want=1", origin.statCalls)
	}
}

func TestCachedStoreUploadPopulatesCache(t *testing.T) {
	origin := newFakeOriginStore()
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	if _, err := store.Upload(ctx, "responses/t1/draft.md", []byte("# Draft"), "text/markdown"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	obj, err := store.Stat(ctx, "responses/t1/draft.md")
	if err != nil || obj.ContentType != "text/markdown" {
		t.Fatalf("stat: %#v %v", obj, err)
	}
	if _, err := store.Download(ctx, "responses/t1/draft.md"); err != nil {
		t.Fatalf("download: %v", err)
	}
	if origin.downloadCalls != 0 || origin.statCalls != 0 {
		t.Fatalf("cache should serve reads after upload: downloads=%d stats=%d", origin.downloadCalls, origin.statCalls)
	}
}

func TestCachedStoreFailedUploadIsNotCached(t *testing.T) {
	origin := newFakeOriginStore()
	origin.failUpload = true
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	if _, err := store.Upload(ctx, "k", []byte("x"), ""); err == nil {
		t.Fatalf("expected upload error")
	}
	if _, err := store.Download(ctx, "k"); err == nil {
		t.Fatalf("failed upload must not be readable")
	}
	if m := store.Metrics(); m.OriginWriteErr != 1 || m.OriginReadErr != 1 {
		t.Fatalf("unexpected metrics: %#v", m)
	}
}

func TestCachedStoreURLCache(t *testing.T) {
	origin := newFakeOriginStore()
	origin.urls["k"] = "https://example.com/k?sig=1"
	store := NewCachedStore(origin, DefaultCacheConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		u, err := store.URL(ctx, "k")
		if err != nil || u != origin.urls["k"] {
			t.Fatalf("url: %q %v", u, err)
		}
	}
	if origin.urlCalls != 1 {
		t.Fatalf("origin url calls: got=%d want=1", origin.urlCalls)
	}
}
