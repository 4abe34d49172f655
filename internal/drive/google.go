package drive

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"rftdraft/internal/apperr"
	"rftdraft/internal/logger"
)

const (
	listFields     googleapi.Field = "files(id, name, mimeType, createdTime, modifiedTime, size, webViewLink, parents)"
	metadataFields googleapi.Field = "id, name, mimeType, createdTime, modifiedTime, size, webViewLink, parents"
	downloadFields googleapi.Field = "id, name, mimeType"
	docFields      googleapi.Field = "id, name, webViewLink"
)

const (
	listOrder    = "folder,name"
	listPageSize = 200
)

// filesAPI is the subset of the Drive files resource the client needs.
type filesAPI interface {
	List(ctx context.Context, query string) ([]*gdrive.File, error)
	Get(ctx context.Context, fileID string, fields googleapi.Field) (*gdrive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	Export(ctx context.Context, fileID, mimeType string) ([]byte, error)
	Create(ctx context.Context, f *gdrive.File) (*gdrive.File, error)
	UpdateContent(ctx context.Context, fileID string, content []byte, mimeType string) (*gdrive.File, error)
}

type GoogleClient struct {
	api          filesAPI
	rootFolderID string
}

// NewGoogleClient authenticates with a service account key and scopes the
// client to full Drive access.
func NewGoogleClient(ctx context.Context, serviceAccountJSON, rootFolderID string) (*GoogleClient, error) {
	if strings.TrimSpace(serviceAccountJSON) == "" {
		return nil, apperr.MissingConfig([]string{"GOOGLE_SERVICE_ACCOUNT"})
	}
	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsJSON([]byte(serviceAccountJSON)),
		option.WithScopes(gdrive.DriveScope),
	)
	if err != nil {
		return nil, apperr.Upstream("Failed to authenticate with Google Drive", err)
	}
	return newGoogleClient(&serviceFiles{files: svc.Files}, rootFolderID), nil
}

func newGoogleClient(api filesAPI, rootFolderID string) *GoogleClient {
	return &GoogleClient{api: api, rootFolderID: strings.TrimSpace(rootFolderID)}
}

func (g *GoogleClient) folderOrRoot(folderID string) string {
	if id := strings.TrimSpace(folderID); id != "" {
		return id
	}
	return g.rootFolderID
}

func (g *GoogleClient) ListFiles(ctx context.Context, folderID string) (ListResult, error) {
	target := g.folderOrRoot(folderID)
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(target))
	items, err := g.api.List(ctx, query)
	if err != nil {
		return ListResult{}, wrapError("Failed to list files", err)
	}
	files := make([]File, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		files = append(files, fromDrive(it))
	}
	return ListResult{Files: files, CurrentFolderID: target}, nil
}

func (g *GoogleClient) GetFileMetadata(ctx context.Context, fileID string) (File, error) {
	f, err := g.api.Get(ctx, fileID, metadataFields)
	if err != nil {
		return File{}, wrapError("Failed to get file metadata", err)
	}
	return fromDrive(f), nil
}

// DownloadFile fetches native files as-is and exports workspace files,
// preferring a text rendition when one exists.
func (g *GoogleClient) DownloadFile(ctx context.Context, fileID string) (File, error) {
	meta, err := g.api.Get(ctx, fileID, downloadFields)
	if err != nil {
		return File{}, wrapError("Failed to download file", err)
	}
	var (
		data      []byte
		effective = meta.MimeType
	)
	if IsWorkspaceType(meta.MimeType) {
		data, effective, err = g.export(ctx, fileID, meta.MimeType)
	} else {
		data, err = g.api.Download(ctx, fileID)
	}
	if err != nil {
		return File{}, wrapError("Failed to download file", err)
	}
	return File{
		ID:               meta.Id,
		Name:             meta.Name,
		MimeType:         effective,
		OriginalMimeType: meta.MimeType,
		Content:          base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (g *GoogleClient) export(ctx context.Context, fileID, mimeType string) ([]byte, string, error) {
	if textMIME, ok := textExportFormat(mimeType); ok {
		data, err := g.api.Export(ctx, fileID, textMIME)
		if err == nil {
			return data, textMIME, nil
		}
		logger.FromContext(ctx).Warn("drive text export failed, falling back to binary",
			zap.String("file_id", fileID), zap.String("mime_type", textMIME), zap.Error(err))
	}
	target := binaryExportFormat(mimeType)
	data, err := g.api.Export(ctx, fileID, target)
	if err != nil {
		return nil, "", err
	}
	return data, target, nil
}

func (g *GoogleClient) CreateGoogleDoc(ctx context.Context, fileName, folderID string) (DocRef, error) {
	f, err := g.api.Create(ctx, &gdrive.File{
		Name:     fileName,
		MimeType: MimeGoogleDoc,
		Parents:  []string{g.folderOrRoot(folderID)},
	})
	if err != nil {
		return DocRef{}, wrapError("Failed to create Google Doc", err)
	}
	return DocRef{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

// UpdateGoogleDoc replaces the document body with Markdown; Drive converts
// it into the doc's native format.
func (g *GoogleClient) UpdateGoogleDoc(ctx context.Context, fileID, content string) (DocRef, error) {
	f, err := g.api.UpdateContent(ctx, fileID, []byte(content), MimeTextMarkdown)
	if err != nil {
		return DocRef{}, wrapError("Failed to update Google Doc", err)
	}
	return DocRef{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

func fromDrive(f *gdrive.File) File {
	out := File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
		Parents:      f.Parents,
	}
	if f.Size > 0 {
		out.Size = strconv.FormatInt(f.Size, 10)
	}
	return out
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func wrapError(msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return apperr.NotFound(msg, fmt.Errorf("%w: %s", ErrNotFound, gerr.Message))
	}
	return apperr.Upstream(msg, err)
}

// serviceFiles adapts the generated files resource to filesAPI.
type serviceFiles struct {
	files *gdrive.FilesService
}

func (s *serviceFiles) List(ctx context.Context, query string) ([]*gdrive.File, error) {
	var out []*gdrive.File
	err := s.files.List().
		Q(query).
		Fields("nextPageToken", listFields).
		OrderBy(listOrder).
		PageSize(listPageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *gdrive.FileList) error {
			out = append(out, page.Files...)
			return nil
		})
	return out, err
}

func (s *serviceFiles) Get(ctx context.Context, fileID string, fields googleapi.Field) (*gdrive.File, error) {
	return s.files.Get(fileID).Fields(fields).SupportsAllDrives(true).Context(ctx).Do()
}

func (s *serviceFiles) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := s.files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *serviceFiles) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	resp, err := s.files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *serviceFiles) Create(ctx context.Context, f *gdrive.File) (*gdrive.File, error) {
	return s.files.Create(f).Fields(docFields).SupportsAllDrives(true).Context(ctx).Do()
}

func (s *serviceFiles) UpdateContent(ctx context.Context, fileID string, content []byte, mimeType string) (*gdrive.File, error) {
	return s.files.Update(fileID, &gdrive.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields(docFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}
