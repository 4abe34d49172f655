package server

import (
	"net/http"

	"go.uber.org/zap"

	"rftdraft/internal/gateway/handler"
	"rftdraft/internal/gateway/middleware"
)

type Handlers struct {
	RFT   *handler.RFTHandler
	Drive *handler.DriveHandler
	Tasks *handler.TaskHandler
	Blobs *handler.BlobHandler
}

func NewMux(h Handlers, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Pipeline
	mux.HandleFunc("/api/upload_rft", h.RFT.HandleUpload)
	mux.HandleFunc("/api/generate", h.RFT.HandleGenerate)
	mux.HandleFunc("/api/analyze", h.RFT.HandleAnalyze)
	mux.HandleFunc("/api/assistant/generate", h.RFT.HandleAssist)

	// Drive RPC
	mux.HandleFunc("/api/drive", h.Drive.HandleDrive)

	// Task records
	mux.HandleFunc("/api/tasks", h.Tasks.HandleList)
	mux.HandleFunc("/api/tasks/{id}", h.Tasks.HandleTask)
	mux.HandleFunc("/api/tasks/{id}/watch", h.Tasks.HandleWatch)

	mux.HandleFunc("/api/blobs/{key...}", h.Blobs.HandleDownload)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	// Middleware
	return middleware.CORS(middleware.RequestLogger(log)(mux))
}
