package task

import (
	"context"
	"errors"
)

// Store is CRUD over the rft_tasks table. Updates are last-write-wins; there
// is no version column.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	// ClaimPending atomically moves the newest pending record whose source
	// document is rftFileID to processing and returns it. Concurrent callers
	// never claim the same record; with nothing left to claim it returns
	// ErrNotFound.
	ClaimPending(ctx context.Context, rftFileID string) (Record, error)
	Create(ctx context.Context, r Record) (Record, error)
	Update(ctx context.Context, id string, p Patch) (Record, error)
}

var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRecord     = errors.New("invalid task record")
)
