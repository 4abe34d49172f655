package handler

import (
	"net/http"

	"go.uber.org/zap"

	"rftdraft/internal/apperr"
	"rftdraft/internal/drive"
	"rftdraft/internal/logger"
)

type DriveHandler struct {
	client drive.Client
}

func NewDriveHandler(client drive.Client) *DriveHandler {
	return &DriveHandler{client: client}
}

// HandleDrive serves POST /api/drive. Every reply uses the
// {success, data, error} envelope.
func (h *DriveHandler) HandleDrive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, drive.Response{Error: "Method not allowed"})
		return
	}
	var req drive.Request
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, drive.Response{Error: err.Error()})
		return
	}
	log := logger.FromContext(r.Context()).With(
		zap.String("action", req.ActionName()),
		zap.String("file_id", req.FileID),
		zap.String("folder_id", req.FolderID))

	data, err := drive.Dispatch(r.Context(), h.client, req)
	if err != nil {
		status := apperr.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			log.Error("drive action failed", zap.Error(err))
		}
		writeJSON(w, status, drive.Response{Error: err.Error()})
		return
	}
	log.Info("drive action")
	writeJSON(w, http.StatusOK, drive.Response{Success: true, Data: data})
}
