package config

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

// DatabaseConfig holds SQL database connection settings.
// Driver selects "postgres" (default) or "sqlite" for local development.
type DatabaseConfig struct {
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	SQLitePath         string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects the blob backend. "memory" keeps everything in process and is meant for local runs.
type StorageConfig struct {
	Driver           string
	PresignExpirySec int
	MinIO            MinIOConfig
}

// RenderConfig bounds page rasterization.
type RenderConfig struct {
	DefaultScale   float64
	MaxScale       float64
	MaxConcurrency int
}

// EditorConfig holds defaults applied while compositing annotations.
type EditorConfig struct {
	CircleRadius       float64
	HighlightOpacity   float64
	DefaultFontSize    float64
	DefaultStrokeWidth float64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	Timezone       string
	UploadMaxBytes int
	Database       DatabaseConfig
	Storage        StorageConfig
	Render         RenderConfig
	Editor         EditorConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:8080"),
		Port:           getEnv("PORT", "8080"),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		UploadMaxBytes: getEnvInt("UPLOAD_MAX_BYTES", 50<<20),
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			SQLitePath:         getEnv("SQLITE_PATH", "data/pdfedit.db"),
		},
		Storage: StorageConfig{
			Driver:           getEnv("STORAGE_DRIVER", "minio"),
			PresignExpirySec: getEnvInt("PRESIGN_EXPIRY_SEC", 900),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Render: RenderConfig{
			DefaultScale:   getEnvFloat("RENDER_DEFAULT_SCALE", 2.0),
			MaxScale:       getEnvFloat("RENDER_MAX_SCALE", 8.0),
			MaxConcurrency: getEnvInt("RENDER_MAX_CONCURRENCY", runtime.NumCPU()),
		},
		Editor: EditorConfig{
			CircleRadius:       getEnvFloat("CIRCLE_DEFAULT_RADIUS", 50),
			HighlightOpacity:   getEnvFloat("HIGHLIGHT_OPACITY", 0.35),
			DefaultFontSize:    getEnvFloat("DEFAULT_FONT_SIZE", 12),
			DefaultStrokeWidth: getEnvFloat("DEFAULT_STROKE_WIDTH", 2),
		},
	}
}

// Location resolves Timezone, falling back to UTC when the name is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PresignExpiry is the lifetime of presigned download URLs.
func (c StorageConfig) PresignExpiry() time.Duration {
	return time.Duration(c.PresignExpirySec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
