package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	App      AppConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Port         string
	Environment  string
	ClientURL    string
	NodeID       int64
	LogFilePath  string
	UserCacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type DatabaseConfig struct {
	Driver     string
	Path       string
	Connection string
}

type StorageConfig struct {
	Driver      string
	UploadDir   string
	MaxFileSize int64
	S3Region    string
	S3Bucket    string
}

// Defaults for the orphan file sweep, also used by the cleaner when it is
// built with zero durations.
const (
	DefaultOrphanSweepInterval = time.Hour
	DefaultOrphanGracePeriod   = time.Hour
)

type JobsConfig struct {
	OrphanSweepInterval time.Duration
	OrphanGracePeriod   time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads the configuration from the environment. Outside production a
// .env file is loaded first if one exists; in production the variables are
// pulled from SSM Parameter Store.
func Load() *Config {
	if os.Getenv("GO_ENV") == "production" {
		if err := LoadProdEnv(); err != nil {
			log.Fatalf("unable to load prod environment, %v", err)
		}
	} else if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:         getEnv("APP_PORT", "5000"),
			Environment:  getEnv("GO_ENV", "development"),
			ClientURL:    getEnv("CLIENT_URL", "http://localhost:3000"),
			NodeID:       int64(getEnvAsInt("NODE_ID", 1)),
			LogFilePath:  getEnv("LOG_FILE_PATH", "logs/access.log"),
			UserCacheTTL: time.Duration(getEnvAsInt("USER_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  time.Duration(getEnvAsInt("TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:       getEnv("DB_PATH", "clicknotes.db"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageLocal)),
			UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024),
			S3Region:    getEnv("AWS_S3_REGION", ""),
			S3Bucket:    getEnv("S3_BUCKET_NAME", ""),
		},
		Jobs: JobsConfig{
			OrphanSweepInterval: time.Duration(getEnvAsInt("ORPHAN_SWEEP_INTERVAL_MINUTES", int(DefaultOrphanSweepInterval/time.Minute))) * time.Minute,
			OrphanGracePeriod:   time.Duration(getEnvAsInt("ORPHAN_GRACE_MINUTES", int(DefaultOrphanGracePeriod/time.Minute))) * time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return fallback
}
