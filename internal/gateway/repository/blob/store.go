package blob

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object describes a stored blob.
type Object struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store defines operations for persisting opaque byte blobs under a key.
// A failed call is final; callers decide what to do with it.
type Store interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) (Object, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (Object, error)
	URL(ctx context.Context, key string) (string, error)
}

var ErrNotFound = errors.New("blob not found")

const defaultContentType = "application/octet-stream"

// NewUploadKey returns a fresh key for an uploaded source document.
func NewUploadKey(fileName string) string {
	return "rft/" + uuid.NewString() + "/" + sanitizeName(fileName)
}

// ResponseKey is where the generated draft for a task is written.
func ResponseKey(taskID string) string {
	return "responses/" + strings.TrimSpace(taskID) + "/draft.md"
}

func normalizeKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

func sanitizeName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "document"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
