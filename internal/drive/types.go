package drive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("drive file not found")

// File is the wire shape of a remote file. Content is only set by downloads
// and is base64 encoded.
type File struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	MimeType         string   `json:"mimeType"`
	OriginalMimeType string   `json:"originalMimeType,omitempty"`
	CreatedTime      string   `json:"createdTime,omitempty"`
	ModifiedTime     string   `json:"modifiedTime,omitempty"`
	Size             string   `json:"size,omitempty"`
	WebViewLink      string   `json:"webViewLink,omitempty"`
	Parents          []string `json:"parents,omitempty"`
	Content          string   `json:"content,omitempty"`
}

// Converted reports whether the content was exported from a workspace format.
func (f File) Converted() bool {
	return f.OriginalMimeType != "" && f.OriginalMimeType != f.MimeType
}

// DecodeContent returns the raw bytes of a downloaded file.
func DecodeContent(f File) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(f.Content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", f.ID, err)
	}
	return raw, nil
}

type ListResult struct {
	Files           []File `json:"files"`
	CurrentFolderID string `json:"currentFolderId"`
}

// DocRef identifies a hosted document after create or update.
type DocRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// Action is the closed set of operations exposed over the drive RPC.
type Action int

const (
	ActionUnknown Action = iota
	ActionListFiles
	ActionGetFileMetadata
	ActionDownloadFile
	ActionCreateGoogleDoc
	ActionUpdateGoogleDoc
)

var actionNames = map[Action]string{
	ActionListFiles:       "listFiles",
	ActionGetFileMetadata: "getFileMetadata",
	ActionDownloadFile:    "downloadFile",
	ActionCreateGoogleDoc: "createGoogleDoc",
	ActionUpdateGoogleDoc: "updateGoogleDoc",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return ActionUnknown, fmt.Errorf("Unknown action: %s", s)
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Request is the drive RPC body.
type Request struct {
	Action   Action `json:"action"`
	FolderID string `json:"folderId,omitempty"`
	FileID   string `json:"fileId,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Content  string `json:"content,omitempty"`

	// actionName is the name the caller sent, kept for error replies.
	actionName string
}

func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	var raw struct {
		plain
		Action *string `json:"action"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Request(raw.plain)
	r.Action = ActionUnknown
	r.actionName = ""
	if raw.Action != nil {
		r.actionName = strings.TrimSpace(*raw.Action)
		r.Action, _ = ParseAction(r.actionName)
	}
	return nil
}

// ActionName returns the action as sent by the caller.
func (r Request) ActionName() string {
	if r.actionName != "" {
		return r.actionName
	}
	return r.Action.String()
}

// Response is the drive RPC envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}
