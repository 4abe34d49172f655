package rft

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/gateway/config"
	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/logger"
)

const msgInvalidType = "Only PDF or DOCX files are allowed."

type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
	UserID      string
}

type UploadResult struct {
	StoreID string `json:"storeId"`
	TaskID  string `json:"taskId"`
}

// SizeLimitMessage is the rejection shown for oversized uploads.
func SizeLimitMessage(maxBytes int64) string {
	return fmt.Sprintf("File size exceeds %dMB limit.", maxBytes>>20)
}

// Upload validates the file, stores it and opens a pending task for it. The
// blob is written before the record so a storage failure leaves no record.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	size := in.Size
	if n := int64(len(in.Data)); n > size {
		size = n
	}
	if size > s.maxUpload {
		return UploadResult{}, apperr.Validation(SizeLimitMessage(s.maxUpload))
	}
	mimeType := document.Classify(in.FileName, in.ContentType, in.Data)
	if mimeType == "" {
		return UploadResult{}, apperr.Validation(msgInvalidType)
	}
	if err := s.requireConfig(config.FeatureStorage); err != nil {
		return UploadResult{}, err
	}

	name := strings.TrimSpace(in.FileName)
	if name == "" {
		name = "document"
	}
	log := logger.FromContext(ctx)
	obj, err := s.blobs.Upload(ctx, blobrepo.NewUploadKey(name), in.Data, mimeType)
	if err != nil {
		return UploadResult{}, apperr.Persistence("Failed to store file", err)
	}
	rec, err := s.tasks.Create(ctx, task.Record{
		Name:      name,
		Status:    task.StatusPending,
		Source:    task.SourceLocal,
		RFTFileID: obj.Key,
		FilePath:  obj.Key,
		UserID:    strings.TrimSpace(in.UserID),
	})
	if err != nil {
		log.Error("task create failed after upload", zap.String("store_id", obj.Key), zap.Error(err))
		return UploadResult{}, err
	}
	log.Info("rft uploaded",
		zap.String("store_id", obj.Key),
		zap.String("task_id", rec.ID),
		zap.String("mime_type", mimeType),
		zap.Int64("bytes", obj.Size))
	return UploadResult{StoreID: obj.Key, TaskID: rec.ID}, nil
}
