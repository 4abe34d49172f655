package rft

import (
	"context"

	"rftdraft/internal/apperr"
	"rftdraft/internal/document"
	"rftdraft/internal/drive"
	"rftdraft/internal/gateway/config"
	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/tender"
)

// Generator is the generative response adapter used by the pipeline.
type Generator interface {
	Analyze(ctx context.Context, doc document.Document) (tender.Analysis, error)
	Draft(ctx context.Context, doc document.Document, an *tender.Analysis) (string, error)
	Generate(ctx context.Context, prompt string, opts tender.Options) (string, error)
}

// MissingFunc reports unset credentials for the given features.
type MissingFunc func(features ...config.Feature) []string

type Deps struct {
	Blobs          blobrepo.Store
	Tasks          task.Store
	Drive          drive.Client
	Generator      Generator
	MaxUploadBytes int64
	Missing        MissingFunc
}

// Service runs the upload and draft generation pipeline. Each call is a
// single synchronous chain; nothing is queued.
type Service struct {
	blobs     blobrepo.Store
	tasks     task.Store
	drive     drive.Client
	generator Generator
	maxUpload int64
	missing   MissingFunc
}

func New(d Deps) *Service {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = config.DefaultUploadMaxBytes
	}
	return &Service{
		blobs:     d.Blobs,
		tasks:     d.Tasks,
		drive:     d.Drive,
		generator: d.Generator,
		maxUpload: maxUpload,
		missing:   d.Missing,
	}
}

func (s *Service) MaxUploadBytes() int64 { return s.maxUpload }

func (s *Service) requireConfig(features ...config.Feature) error {
	if s.missing == nil {
		return nil
	}
	if vars := s.missing(features...); len(vars) > 0 {
		return apperr.MissingConfig(vars)
	}
	return nil
}
