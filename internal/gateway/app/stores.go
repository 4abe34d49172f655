package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	blobcache "rftdraft/internal/cache/blob"
	"rftdraft/internal/gateway/config"
	blobrepo "rftdraft/internal/gateway/repository/blob"
	"rftdraft/internal/gateway/repository/task"
)

type gatewayStores struct {
	blobs     blobrepo.Store
	blobCache *blobcache.CachedStore
	tasks     task.Store
	db        *sql.DB
}

func (s *gatewayStores) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gatewayStores, error) {
	blobs, err := chooseBlobStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	stores := &gatewayStores{blobs: blobs}
	stores.blobCache, _ = blobs.(*blobcache.CachedStore)

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := task.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		pg := task.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare task schema: %w", err)
		}
		stores.db = db
		stores.tasks = pg
		log.Info("task store: postgres")
		return stores, nil
	}
	stores.tasks = task.NewMemoryStore()
	log.Info("task store: in-memory")
	return stores, nil
}

// chooseBlobStore prefers S3 when fully configured. A partially configured
// bucket falls back to memory; uploads then fail with the missing variables.
func chooseBlobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (blobrepo.Store, error) {
	if !cfg.Storage.CanUseS3() {
		if cfg.Storage.Enabled {
			log.Warn("blob store: s3 incomplete, using in-memory",
				zap.Strings("missing", cfg.Missing(config.FeatureStorage)))
		} else {
			log.Info("blob store: in-memory")
		}
		return blobrepo.NewMemoryStore(), nil
	}
	s3Cfg := blobrepo.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	}
	s3Store, err := blobrepo.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob s3 store: %w", err)
	}
	// An unreachable bucket is retried on first use.
	if err := s3Store.EnsureBucket(ctx); err != nil {
		log.Warn("blob store: bucket check failed", zap.String("bucket", s3Store.Bucket()), zap.Error(err))
	}
	log.Info("blob store: s3", zap.String("bucket", s3Store.Bucket()), zap.String("endpoint", s3Cfg.Endpoint))
	return blobcache.NewCachedStore(s3Store, blobcache.DefaultCacheConfig()), nil
}
