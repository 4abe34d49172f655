package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"rftdraft/internal/apperr"
	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/validate"
)

const dateOnly = "2006-01-02"

type TaskHandler struct {
	store        task.Store
	pollInterval time.Duration
}

func NewTaskHandler(store task.Store) *TaskHandler {
	return &TaskHandler{store: store, pollInterval: time.Second}
}

type taskList struct {
	Tasks []task.Record `json:"tasks"`
}

// taskPatchRequest carries the metadata a user may edit from the dashboard.
// Status and outputs are owned by the pipeline.
type taskPatchRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// HandleList serves GET /api/tasks.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	records, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []task.Record{}
	}
	writeJSON(w, http.StatusOK, taskList{Tasks: records})
}

// HandleTask serves GET and PATCH /api/tasks/{id}.
func (h *TaskHandler) HandleTask(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPatch) {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if r.Method == http.MethodGet {
		rec, err := h.store.Get(r.Context(), id)
		if err != nil {
			writeTaskError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	var in taskPatchRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := in.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (in taskPatchRequest) toPatch() (task.Patch, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := validate.Struct(in); err != nil {
		return task.Patch{}, err
	}
	p := task.Patch{Name: in.Name, Description: in.Description}
	if in.DueDate != nil {
		d, err := parseDueDate(*in.DueDate)
		if err != nil {
			return task.Patch{}, err
		}
		p.DueDate = &d
	}
	if p.Empty() {
		return task.Patch{}, apperr.Validation("no fields to update")
	}
	return p, nil
}

func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")
}

func writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, task.ErrInvalidRecord), errors.Is(err, task.ErrInvalidTransition):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, err)
	}
}
