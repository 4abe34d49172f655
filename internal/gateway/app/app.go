package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"rftdraft/internal/drive"
	"rftdraft/internal/gateway/config"
	"rftdraft/internal/gateway/handler"
	"rftdraft/internal/gateway/server"
	"rftdraft/internal/gateway/service/rft"
	"rftdraft/internal/tender"
)

type App struct {
	server     *server.Server
	stores     *gatewayStores
	driveCache *drive.CachedClient
	log        *zap.Logger
}

// New builds every adapter once and injects them into the service and
// handlers. Missing credentials do not stop startup; the affected
// endpoints report them per request.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	// Dependencies
	stores, err := initStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	driveClient, err := newDriveClient(ctx, cfg, log)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	modelClient, err := newModelClient(ctx, cfg, log)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	rftSvc := rft.New(rft.Deps{
		Blobs:          stores.blobs,
		Tasks:          stores.tasks,
		Drive:          driveClient,
		Generator:      tender.NewAnalyzer(modelClient),
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Missing:        cfg.Missing,
	})

	// Routing & Server
	mux := server.NewMux(server.Handlers{
		RFT:   handler.NewRFTHandler(rftSvc),
		Drive: handler.NewDriveHandler(driveClient),
		Tasks: handler.NewTaskHandler(stores.tasks),
		Blobs: handler.NewBlobHandler(stores.blobs),
	}, log)

	driveCache, _ := driveClient.(*drive.CachedClient)
	return &App{
		server:     server.New(cfg.Port, mux, log),
		stores:     stores,
		driveCache: driveCache,
		log:        log,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.logCacheMetrics()
	if cerr := a.stores.Close(); cerr != nil {
		a.log.Warn("close stores", zap.Error(cerr))
	}
	return err
}

func (a *App) logCacheMetrics() {
	if c := a.stores.blobCache; c != nil {
		m := c.Metrics()
		a.log.Info("blob cache",
			zap.Uint64("blob_hits", m.BlobHits),
			zap.Uint64("blob_misses", m.BlobMisses),
			zap.Uint64("url_hits", m.URLHits),
			zap.Uint64("url_misses", m.URLMisses),
			zap.Uint64("origin_read_errors", m.OriginReadErr),
			zap.Uint64("origin_write_errors", m.OriginWriteErr))
	}
	if a.driveCache != nil {
		m := a.driveCache.Metrics()
		a.log.Info("drive metadata cache", zap.Int64("hits", m.Hits), zap.Int64("misses", m.Misses))
	}
}
