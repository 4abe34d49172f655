package drive

import (
	"context"

	"rftdraft/internal/apperr"
)

// Client is the External Drive adapter.
type Client interface {
	ListFiles(ctx context.Context, folderID string) (ListResult, error)
	GetFileMetadata(ctx context.Context, fileID string) (File, error)
	DownloadFile(ctx context.Context, fileID string) (File, error)
	CreateGoogleDoc(ctx context.Context, fileName, folderID string) (DocRef, error)
	UpdateGoogleDoc(ctx context.Context, fileID, content string) (DocRef, error)
}

// Unavailable is installed when drive credentials are missing. Every call
// reports the missing variables.
type Unavailable struct {
	Missing []string
}

func (u Unavailable) err() error { return apperr.MissingConfig(u.Missing) }

func (u Unavailable) ListFiles(context.Context, string) (ListResult, error) {
	return ListResult{}, u.err()
}

func (u Unavailable) GetFileMetadata(context.Context, string) (File, error) {
	return File{}, u.err()
}

func (u Unavailable) DownloadFile(context.Context, string) (File, error) {
	return File{}, u.err()
}

func (u Unavailable) CreateGoogleDoc(context.Context, string, string) (DocRef, error) {
	return DocRef{}, u.err()
}

func (u Unavailable) UpdateGoogleDoc(context.Context, string, string) (DocRef, error) {
	return DocRef{}, u.err()
}
