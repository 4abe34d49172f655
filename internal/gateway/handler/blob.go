package handler

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/logger"
)

type BlobHandler struct {
	store blobrepo.Store
}

func NewBlobHandler(store blobrepo.Store) *BlobHandler {
	return &BlobHandler{store: store}
}

// HandleDownload serves GET /api/blobs/{key...}. Stores that can presign
// answer with a redirect; the rest stream the bytes.
func (h *BlobHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeMessage(w, http.StatusBadRequest, "key is required")
		return
	}
	obj, err := h.store.Stat(r.Context(), key)
	if err != nil {
		h.writeBlobError(w, r, err)
		return
	}
	url, err := h.store.URL(r.Context(), key)
	if err != nil {
		logger.FromContext(r.Context()).Warn("presign failed, streaming blob", zap.String("key", key), zap.Error(err))
	}
	if err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	data, err := h.store.Download(r.Context(), key)
	if err != nil {
		h.writeBlobError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+path.Base(obj.Key)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *BlobHandler) writeBlobError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, blobrepo.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}
	writeError(w, r, err)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
