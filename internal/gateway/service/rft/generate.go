package rft

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"

	"go.uber.org/zap"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/drive"
	"rftdraft/internal/gateway/config"
	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/logger"
)

const (
	msgMissingSource = "Missing required parameter: storeId or driveFileId"
	msgBothSources   = "Provide only one of storeId or driveFileId"

	draftContentType = "text/markdown; charset=utf-8"
	draftNameSuffix  = " - Draft Response"
)

type GenerateInput struct {
	StoreID        string `json:"storeId,omitempty"`
	DriveFileID    string `json:"driveFileId,omitempty"`
	OutputFolderID string `json:"outputFolderId,omitempty"`
}

type GenerateResult struct {
	TaskID       string      `json:"taskId"`
	Status       task.Status `json:"status"`
	OutputFileID string      `json:"outputFileId,omitempty"`
	Source       task.Source `json:"source"`
}

func (in GenerateInput) normalized() GenerateInput {
	return GenerateInput{
		StoreID:        strings.TrimSpace(in.StoreID),
		DriveFileID:    strings.TrimSpace(in.DriveFileID),
		OutputFolderID: strings.TrimSpace(in.OutputFolderID),
	}
}

func (in GenerateInput) source() task.Source {
	if in.DriveFileID != "" {
		return task.SourceGoogleDrive
	}
	return task.SourceLocal
}

func (in GenerateInput) sourceID() string {
	if in.DriveFileID != "" {
		return in.DriveFileID
	}
	return in.StoreID
}

// Generate drafts a response for one source document. The task record is
// opened as pending, moved to processing and finished as completed or
// failed; a failure is also returned to the caller.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (GenerateResult, error) {
	in = in.normalized()
	switch {
	case in.StoreID == "" && in.DriveFileID == "":
		return GenerateResult{}, apperr.Validation(msgMissingSource)
	case in.StoreID != "" && in.DriveFileID != "":
		return GenerateResult{}, apperr.Validation(msgBothSources)
	}
	features := []config.Feature{config.FeatureAI, config.FeatureStorage}
	if in.DriveFileID != "" || in.OutputFolderID != "" {
		features = append(features, config.FeatureDrive)
	}
	if err := s.requireConfig(features...); err != nil {
		return GenerateResult{}, err
	}

	rec, err := s.openTask(ctx, in)
	if err != nil {
		return GenerateResult{}, err
	}
	log := logger.FromContext(ctx).With(
		zap.String("task_id", rec.ID),
		zap.String("source", string(rec.Source)),
		zap.String("source_id", in.sourceID()))
	if in.OutputFolderID != "" {
		log = log.With(zap.String("output_folder_id", in.OutputFolderID))
	}
	ctx = logger.WithContext(ctx, log)
	log.Info("generation started")

	out, err := s.run(ctx, rec, in)
	if err != nil {
		s.markFailed(ctx, rec.ID, err)
		return GenerateResult{}, err
	}
	log.Info("generation completed", zap.String("output_file_id", out.OutputFileID))
	return GenerateResult{
		TaskID:       out.ID,
		Status:       out.Status,
		OutputFileID: out.OutputFileID,
		Source:       out.Source,
	}, nil
}

// openTask returns a processing record for this run. A storeId claims the
// pending record opened by its upload; concurrent runs for the same upload
// never share it. Otherwise a new record is opened as pending and moved to
// processing.
func (s *Service) openTask(ctx context.Context, in GenerateInput) (task.Record, error) {
	rec := task.Record{
		Name:      "Drive file " + in.DriveFileID,
		Status:    task.StatusPending,
		Source:    task.SourceGoogleDrive,
		RFTFileID: in.DriveFileID,
	}
	if in.StoreID != "" {
		claimed, err := s.tasks.ClaimPending(ctx, in.StoreID)
		if err == nil {
			return claimed, nil
		}
		if !errors.Is(err, task.ErrNotFound) {
			return task.Record{}, err
		}
		rec = task.Record{
			Name:      path.Base(in.StoreID),
			Status:    task.StatusPending,
			Source:    task.SourceLocal,
			RFTFileID: in.StoreID,
			FilePath:  in.StoreID,
		}
	}
	created, err := s.tasks.Create(ctx, rec)
	if err != nil {
		return task.Record{}, err
	}
	processing := task.StatusProcessing
	return s.tasks.Update(ctx, created.ID, task.Patch{Status: &processing})
}

func (s *Service) run(ctx context.Context, rec task.Record, in GenerateInput) (task.Record, error) {
	doc, err := s.resolve(ctx, in)
	if err != nil {
		return rec, err
	}
	progress := rec.Progress
	progress.Parsing = true
	patch := task.Patch{Progress: &progress}
	if in.DriveFileID != "" && doc.Name != "" && doc.Name != rec.Name {
		patch.Name = &doc.Name
	}
	if rec, err = s.tasks.Update(ctx, rec.ID, patch); err != nil {
		return rec, err
	}

	an, err := s.generator.Analyze(ctx, doc)
	if err != nil {
		return rec, err
	}
	requirements, err := json.Marshal(an)
	if err != nil {
		return rec, err
	}
	progress.Analysis = true
	if rec, err = s.tasks.Update(ctx, rec.ID, task.Patch{Progress: &progress, Requirements: requirements}); err != nil {
		return rec, err
	}

	draft, err := s.generator.Draft(ctx, doc, &an)
	if err != nil {
		return rec, err
	}
	progress.Drafting = true
	progress.Validation = true
	if rec, err = s.tasks.Update(ctx, rec.ID, task.Patch{Progress: &progress}); err != nil {
		return rec, err
	}

	responseKey := blobrepo.ResponseKey(rec.ID)
	obj, err := s.blobs.Upload(ctx, responseKey, []byte(draft), draftContentType)
	if err != nil {
		return rec, apperr.Persistence("Failed to store draft response", err)
	}
	outputID := obj.Key
	if in.OutputFolderID != "" {
		ref, err := s.publish(ctx, rec.Name, in.OutputFolderID, draft)
		if err != nil {
			return rec, err
		}
		outputID = ref.ID
	}

	progress.Formatting = true
	completed := task.StatusCompleted
	return s.tasks.Update(ctx, rec.ID, task.Patch{
		Status:       &completed,
		OutputFileID: &outputID,
		ResponsePath: &obj.Key,
		Progress:     &progress,
	})
}

// resolve loads the source document from the object store or the drive.
func (s *Service) resolve(ctx context.Context, in GenerateInput) (document.Document, error) {
	if in.DriveFileID != "" {
		f, err := s.drive.DownloadFile(ctx, in.DriveFileID)
		if err != nil {
			return document.Document{}, err
		}
		data, err := drive.DecodeContent(f)
		if err != nil {
			return document.Document{}, apperr.Parse("Invalid file content from Google Drive", err)
		}
		logger.FromContext(ctx).Info("drive document fetched",
			zap.String("mime_type", f.MimeType),
			zap.Bool("converted", f.Converted()),
			zap.Int("bytes", len(data)))
		return document.Document{Name: f.Name, MIMEType: f.MimeType, Data: data}, nil
	}

	obj, err := s.blobs.Stat(ctx, in.StoreID)
	if err != nil {
		return document.Document{}, storedFileError(in.StoreID, err)
	}
	data, err := s.blobs.Download(ctx, in.StoreID)
	if err != nil {
		return document.Document{}, storedFileError(in.StoreID, err)
	}
	return document.Document{Name: path.Base(obj.Key), MIMEType: obj.ContentType, Data: data}, nil
}

func storedFileError(key string, err error) error {
	if errors.Is(err, blobrepo.ErrNotFound) {
		return apperr.NotFound("Stored file not found: "+key, err)
	}
	return apperr.Persistence("Failed to read stored file", err)
}

// publish writes the draft into a new hosted document in folderID.
func (s *Service) publish(ctx context.Context, sourceName, folderID, draft string) (drive.DocRef, error) {
	name := strings.TrimSuffix(sourceName, path.Ext(sourceName)) + draftNameSuffix
	ref, err := s.drive.CreateGoogleDoc(ctx, name, folderID)
	if err != nil {
		return drive.DocRef{}, err
	}
	if _, err := s.drive.UpdateGoogleDoc(ctx, ref.ID, draft); err != nil {
		return drive.DocRef{}, err
	}
	logger.FromContext(ctx).Info("draft published", zap.String("doc_id", ref.ID), zap.String("doc_name", name))
	return ref, nil
}

// markFailed records the failure even when the request context is gone.
func (s *Service) markFailed(ctx context.Context, id string, cause error) {
	log := logger.FromContext(ctx)
	failed := task.StatusFailed
	if _, err := s.tasks.Update(context.WithoutCancel(ctx), id, task.Patch{Status: &failed}); err != nil {
		log.Error("mark task failed", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	log.Warn("generation failed", zap.Error(cause))
}
