package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func statusPtr(s Status) *Status { return &s }

func TestStatusTransitionsOnlyMoveForward(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusPending, Status("archived"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: got=%v want=%v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestPatchApplyEnforcesOutputInvariant(t *testing.T) {
	base := Record{ID: "t1", Name: "tender.pdf", Status: StatusProcessing, Source: SourceLocal}

	if _, err := (Patch{Status: statusPtr(StatusCompleted)}).Apply(base); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("completed without output should fail, got %v", err)
	}
	if _, err := (Patch{OutputFileID: strPtr("out")}).Apply(base); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("output on processing task should fail, got %v", err)
	}
	done, err := Patch{Status: statusPtr(StatusCompleted), OutputFileID: strPtr("out")}.Apply(base)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if done.Status != StatusCompleted || done.OutputFileID != "out" {
		t.Fatalf("unexpected record: %#v", done)
	}
	if base.Status != StatusProcessing {
		t.Fatalf("apply must not mutate its input")
	}
}

func TestPatchApplyRejectsBackwardsMove(t *testing.T) {
	base := Record{ID: "t1", Name: "x", Status: StatusFailed, Source: SourceGoogleDrive}
	_, err := Patch{Status: statusPtr(StatusPending)}.Apply(base)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPatchApplyFields(t *testing.T) {
	due := time.Date(2026, 11, 1, 9, 0, 0, 0, time.FixedZone("AEST", 10*3600))
	base := Record{ID: "t1", Name: "x", Status: StatusPending, Source: SourceLocal}
	out, err := Patch{
		Name:         strPtr("  Cleaning tender  "),
		DueDate:      &due,
		Description:  strPtr("council contract"),
		Requirements: json.RawMessage(`{"summary":"s"}`),
		Progress:     &Progress{Parsing: true},
	}.Apply(base)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Name != "Cleaning tender" || out.Description != "council contract" || !out.Progress.Parsing {
		t.Fatalf("unexpected record: %#v", out)
	}
	if out.DueDate == nil || out.DueDate.Location() != time.UTC || !out.DueDate.Equal(due) {
		t.Fatalf("due date: %v", out.DueDate)
	}
	if _, err := (Patch{Requirements: json.RawMessage(`{`)}).Apply(base); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("invalid json should be rejected, got %v", err)
	}
	if (Patch{}).Empty() != true || (Patch{Name: strPtr("a")}).Empty() {
		t.Fatalf("Empty misreports")
	}
}
