package handler

import (
	"errors"
	"io"
	"net/http"

	"rftdraft/internal/apperr"
	"rftdraft/internal/gateway/service/rft"
)

const (
	// multipart framing on top of the file itself
	uploadBodySlack   = 1 << 20
	uploadMemoryMax   = 32 << 20
	uploadFormField   = "file"
	msgNoFileUploaded = "No file uploaded"
)

type RFTHandler struct {
	svc *rft.Service
}

func NewRFTHandler(svc *rft.Service) *RFTHandler {
	return &RFTHandler{svc: svc}
}

// HandleUpload serves POST /api/upload_rft.
func (h *RFTHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	limit := h.svc.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadBodySlack)
	if err := r.ParseMultipartForm(uploadMemoryMax); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusBadRequest, rft.SizeLimitMessage(limit))
			return
		}
		writeMessage(w, http.StatusBadRequest, msgNoFileUploaded)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgNoFileUploaded)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperr.Upstream("Failed to read upload", err))
		return
	}

	res, err := h.svc.Upload(r.Context(), rft.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
		UserID:      r.FormValue("userId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGenerate serves POST /api/generate.
func (h *RFTHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var in rft.GenerateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Generate(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAnalyze serves POST /api/analyze.
func (h *RFTHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var in rft.AnalyzeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	an, err := h.svc.AnalyzeText(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, an)
}

// HandleAssist serves POST /api/assistant/generate.
func (h *RFTHandler) HandleAssist(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var in rft.AssistInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Assist(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
