package config

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultDriveRootFolderID = "1ULtJBBqNdJXHadeW0RfBpvYqRvV2VOTi"
	DefaultUploadMaxBytes    = 20 * 1024 * 1024
)

type Config struct {
	Port        string
	Env         string
	Log         LogConfig
	Storage     StorageConfig
	DatabaseURL string
	AI          AIConfig
	Drive       DriveConfig
	Upload      UploadConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig points at an S3-compatible bucket. When disabled the gateway
// keeps blobs in memory.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AIConfig struct {
	// Backend is one of "gemini", "vertex" or "fake".
	Backend  string
	APIKey   string
	Project  string
	Location string
	Model    string
}

type DriveConfig struct {
	ServiceAccountJSON string
	RootFolderID       string
}

type UploadConfig struct {
	MaxBytes int64
}

// Feature names a group of credentials checked at request time.
type Feature int

const (
	FeatureStorage Feature = iota
	FeatureAI
	FeatureDrive
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = ":8081"
	} else if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port: port,
		Env:  env,
		Log: LogConfig{
			Level:  strings.TrimSpace(os.Getenv("LOG_LEVEL")),
			Format: strings.TrimSpace(os.Getenv("LOG_FORMAT")),
		},
		Storage:     loadStorageConfig(env),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AI:          loadAIConfig(env),
		Drive: DriveConfig{
			ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT")),
			RootFolderID:       firstNonEmpty(strings.TrimSpace(os.Getenv("DRIVE_ROOT_FOLDER_ID")), DefaultDriveRootFolderID),
		},
		Upload: UploadConfig{
			MaxBytes: parseInt64(os.Getenv("UPLOAD_MAX_BYTES"), DefaultUploadMaxBytes),
		},
	}
	if isLocal(env) {
		applyLocalDefaults(cfg)
	}
	return cfg, nil
}

// Missing lists the unset environment variables required by the given features.
// The result is sorted and free of duplicates.
func (c *Config) Missing(features ...Feature) []string {
	if c == nil {
		return nil
	}
	seen := map[string]struct{}{}
	add := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			seen[name] = struct{}{}
		}
	}
	for _, f := range features {
		switch f {
		case FeatureStorage:
			if !c.Storage.Enabled {
				continue
			}
			add("STORAGE_S3_ENDPOINT", c.Storage.Endpoint)
			add("STORAGE_S3_ACCESS_KEY", c.Storage.AccessKey)
			add("STORAGE_S3_SECRET_KEY", c.Storage.SecretKey)
			add("STORAGE_S3_BUCKET", c.Storage.Bucket)
		case FeatureAI:
			switch strings.ToLower(c.AI.Backend) {
			case "fake":
			case "vertex":
				add("GOOGLE_CLOUD_PROJECT", c.AI.Project)
				add("GOOGLE_CLOUD_LOCATION", c.AI.Location)
			default:
				add("GEMINI_API_KEY", c.AI.APIKey)
			}
		case FeatureDrive:
			add("GOOGLE_SERVICE_ACCOUNT", c.Drive.ServiceAccountJSON)
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s StorageConfig) CanUseS3() bool {
	return s.Enabled &&
		strings.TrimSpace(s.Endpoint) != "" &&
		strings.TrimSpace(s.AccessKey) != "" &&
		strings.TrimSpace(s.SecretKey) != "" &&
		strings.TrimSpace(s.Bucket) != ""
}

func loadStorageConfig(env string) StorageConfig {
	endpoint := resolveStorageEndpoint(env)
	return StorageConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_S3_BUCKET")), "rft-documents"),
		UseSSL:    resolveStorageUseSSL(env),
	}
}

func resolveStorageEndpoint(env string) string {
	if isLocal(env) {
		return strings.TrimSpace(os.Getenv("STORAGE_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("STORAGE_S3_ENDPOINT"))
}

func resolveStorageUseSSL(env string) bool {
	if isLocal(env) {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("STORAGE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadAIConfig(env string) AIConfig {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("AI_BACKEND")))
	if backend == "" {
		backend = "gemini"
	}
	return AIConfig{
		Backend:  backend,
		APIKey:   firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
		Project:  strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")),
		Location: firstNonEmpty(strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_LOCATION")), defaultLocation(backend)),
		Model:    firstNonEmpty(strings.TrimSpace(os.Getenv("AI_MODEL")), "gemini-2.5-flash"),
	}
}

func defaultLocation(backend string) string {
	if backend == "vertex" {
		return "us-central1"
	}
	return ""
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func parseInt64(raw string, fallback int64) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
