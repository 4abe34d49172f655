package drive

import (
	"context"
	"strings"

	"rftdraft/internal/apperr"
)

// Dispatch routes an RPC request to the matching Client operation after
// checking the fields that operation requires.
func Dispatch(ctx context.Context, c Client, req Request) (any, error) {
	switch req.Action {
	case ActionListFiles:
		return c.ListFiles(ctx, strings.TrimSpace(req.FolderID))
	case ActionGetFileMetadata:
		if err := requireField(req.FileID, "fileId", req.Action); err != nil {
			return nil, err
		}
		return c.GetFileMetadata(ctx, strings.TrimSpace(req.FileID))
	case ActionDownloadFile:
		if err := requireField(req.FileID, "fileId", req.Action); err != nil {
			return nil, err
		}
		return c.DownloadFile(ctx, strings.TrimSpace(req.FileID))
	case ActionCreateGoogleDoc:
		if err := requireField(req.FileName, "fileName", req.Action); err != nil {
			return nil, err
		}
		return c.CreateGoogleDoc(ctx, strings.TrimSpace(req.FileName), strings.TrimSpace(req.FolderID))
	case ActionUpdateGoogleDoc:
		if err := requireField(req.FileID, "fileId", req.Action); err != nil {
			return nil, err
		}
		if err := requireField(req.Content, "content", req.Action); err != nil {
			return nil, err
		}
		return c.UpdateGoogleDoc(ctx, strings.TrimSpace(req.FileID), req.Content)
	case ActionUnknown:
		if name := strings.TrimSpace(req.actionName); name != "" {
			return nil, apperr.Validationf("Unknown action: %s", name)
		}
		return nil, apperr.Validation("Unknown action")
	}
	return nil, apperr.Validationf("Unknown action: %s", req.Action)
}

func requireField(value, field string, action Action) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validationf("%s is required for %s action", field, action)
	}
	return nil
}
