package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	default:
		return 2
	}
}

// CanTransition reports whether a record may move from s to next.
// Status only moves forward; staying put is allowed.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return next.rank() > s.rank()
}

type Source string

const (
	SourceLocal       Source = "local"
	SourceGoogleDrive Source = "google-drive"
)

func (s Source) Valid() bool {
	return s == SourceLocal || s == SourceGoogleDrive
}

// Progress mirrors the pipeline stages shown on the task detail page.
type Progress struct {
	Parsing    bool `json:"parsing"`
	Analysis   bool `json:"analysis"`
	Drafting   bool `json:"drafting"`
	Validation bool `json:"validation"`
	Formatting bool `json:"formatting"`
}

type Record struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Status       Status          `json:"status"`
	Source       Source          `json:"source"`
	RFTFileID    string          `json:"rftFileId,omitempty"`
	FilePath     string          `json:"filePath,omitempty"`
	OutputFileID string          `json:"outputFileId,omitempty"`
	ResponsePath string          `json:"responsePath,omitempty"`
	DueDate      *time.Time      `json:"dueDate,omitempty"`
	Description  string          `json:"description,omitempty"`
	Requirements json.RawMessage `json:"requirements,omitempty"`
	Progress     Progress        `json:"progress"`
	UserID       string          `json:"userId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name         *string
	Status       *Status
	RFTFileID    *string
	FilePath     *string
	OutputFileID *string
	ResponsePath *string
	DueDate      *time.Time
	Description  *string
	Requirements json.RawMessage
	Progress     *Progress
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Status == nil && p.RFTFileID == nil && p.FilePath == nil &&
		p.OutputFileID == nil && p.ResponsePath == nil && p.DueDate == nil &&
		p.Description == nil && p.Requirements == nil && p.Progress == nil
}

// Apply returns a copy of r with the patch applied and the lifecycle
// invariants checked against the result.
func (p Patch) Apply(r Record) (Record, error) {
	out := r
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Status != nil {
		if !r.Status.CanTransition(*p.Status) {
			return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, *p.Status)
		}
		out.Status = *p.Status
	}
	if p.RFTFileID != nil {
		out.RFTFileID = *p.RFTFileID
	}
	if p.FilePath != nil {
		out.FilePath = *p.FilePath
	}
	if p.OutputFileID != nil {
		out.OutputFileID = *p.OutputFileID
	}
	if p.ResponsePath != nil {
		out.ResponsePath = *p.ResponsePath
	}
	if p.DueDate != nil {
		d := p.DueDate.UTC()
		out.DueDate = &d
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Requirements != nil {
		out.Requirements = append(json.RawMessage(nil), p.Requirements...)
	}
	if p.Progress != nil {
		out.Progress = *p.Progress
	}
	if err := out.validate(); err != nil {
		return Record{}, err
	}
	return out, nil
}

func (r Record) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if !r.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRecord, r.Source)
	}
	hasOutput := strings.TrimSpace(r.OutputFileID) != ""
	if r.Status == StatusCompleted && !hasOutput {
		return fmt.Errorf("%w: completed task requires outputFileId", ErrInvalidRecord)
	}
	if r.Status != StatusCompleted && hasOutput {
		return fmt.Errorf("%w: outputFileId is only set on completed tasks", ErrInvalidRecord)
	}
	if r.Requirements != nil && !json.Valid(r.Requirements) {
		return fmt.Errorf("%w: requirements must be valid json", ErrInvalidRecord)
	}
	return nil
}

// prepareNew fills defaults for a record about to be inserted.
func prepareNew(r Record, id string, now time.Time) (Record, error) {
	r.ID = id
	r.Name = strings.TrimSpace(r.Name)
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Source == "" {
		r.Source = SourceLocal
	}
	if r.DueDate != nil {
		d := r.DueDate.UTC()
		r.DueDate = &d
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
