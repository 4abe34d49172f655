package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rftdraft/internal/drive"
	"rftdraft/internal/gateway/config"
	"rftdraft/internal/llmclient"
	"rftdraft/internal/tender"
)

const (
	driveMetadataCacheSize = 512
	driveMetadataTTL       = 30 * time.Second
)

func newDriveClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (drive.Client, error) {
	if missing := cfg.Missing(config.FeatureDrive); len(missing) > 0 {
		log.Warn("drive client disabled", zap.Strings("missing", missing))
		return drive.Unavailable{Missing: missing}, nil
	}
	g, err := drive.NewGoogleClient(ctx, cfg.Drive.ServiceAccountJSON, cfg.Drive.RootFolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize drive client: %w", err)
	}
	cached := drive.NewCachedClient(g, driveMetadataCacheSize, driveMetadataTTL)
	log.Info("drive client ready", zap.String("root_folder_id", cfg.Drive.RootFolderID))
	return cached, nil
}

func newModelClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (llmclient.Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.AI.Backend))
	if backend == "fake" {
		log.Warn("model client: offline responder")
		return llmclient.NewFakeClient(tender.OfflineResponder), nil
	}
	if missing := cfg.Missing(config.FeatureAI); len(missing) > 0 {
		log.Warn("model client disabled", zap.Strings("missing", missing))
		return llmclient.Unavailable{Missing: missing}, nil
	}
	c, err := llmclient.NewGeminiClient(ctx, llmclient.GeminiConfig{
		Backend:  backend,
		APIKey:   cfg.AI.APIKey,
		Project:  cfg.AI.Project,
		Location: cfg.AI.Location,
		Model:    cfg.AI.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model client: %w", err)
	}
	log.Info("model client ready", zap.String("name", c.Name()), zap.String("backend", backend))
	return c, nil
}
