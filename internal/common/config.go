package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	DocumentAI DocumentAIConfig
	Server     ServerConfig
	Staging    StagingConfig
	Ingest     IngestConfig
	History    HistoryConfig
	Batch      BatchConfig
	LogLevel   string
}

// DocumentAIConfig identifies the processor and how we talk to it
type DocumentAIConfig struct {
	CredentialsFile string
	ProjectID       string
	Location        string
	ProcessorID     string
	Endpoint        string
	Timeout         time.Duration
	MaxAttempts     int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StagingConfig selects where uploads, raw responses and exports are kept
type StagingConfig struct {
	Backend   string // local | s3
	Dir       string
	S3Bucket  string
	S3Prefix  string
	AWSRegion string
	Retain    bool
}

// IngestConfig bounds what uploads are accepted
type IngestConfig struct {
	MaxFileSize int64
}

// HistoryConfig configures the processing history log
type HistoryConfig struct {
	Driver string // sqlite | postgres | none
	DSN    string
}

// BatchConfig sizes the batch worker pool
type BatchConfig struct {
	Workers int
}

const defaultMaxFileSize = 10 << 20

// LoadDotEnv reads KEY=VALUE files into the environment without overriding set variables.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	creds := getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if creds == "" {
		creds = getEnv("DOCUMENTAI_CREDENTIALS", "")
	}
	return &Config{
		DocumentAI: DocumentAIConfig{
			CredentialsFile: creds,
			ProjectID:       getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
			Location:        getEnv("DOCUMENT_AI_LOCATION", "us"),
			ProcessorID:     getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
			Endpoint:        getEnv("DOCUMENTAI_ENDPOINT", ""),
			Timeout:         getEnvAsDuration("DOCUMENTAI_TIMEOUT", 45*time.Second),
			MaxAttempts:     getEnvAsInt("DOCUMENTAI_MAX_ATTEMPTS", 1),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Staging: StagingConfig{
			Backend:   strings.ToLower(getEnv("STAGING_BACKEND", "local")),
			Dir:       getEnv("STAGING_DIR", "data"),
			S3Bucket:  getEnv("STAGING_S3_BUCKET", ""),
			S3Prefix:  getEnv("STAGING_S3_PREFIX", ""),
			AWSRegion: getEnv("AWS_REGION", ""),
			Retain:    getEnvAsBool("RETAIN_STAGING", true),
		},
		Ingest: IngestConfig{
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", defaultMaxFileSize),
		},
		History: HistoryConfig{
			Driver: strings.ToLower(getEnv("HISTORY_DRIVER", "sqlite")),
			DSN:    getEnv("HISTORY_DSN", "data/history.db"),
		},
		Batch: BatchConfig{
			Workers: getEnvAsInt("BATCH_WORKERS", 4),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateExtraction checks the values the extraction client cannot start without.
// Every missing name is reported at once.
func (c *Config) ValidateExtraction() error {
	v := NewValidator()
	v.Field("GOOGLE_APPLICATION_CREDENTIALS", c.DocumentAI.CredentialsFile, Required)
	v.Field("GOOGLE_CLOUD_PROJECT_ID", c.DocumentAI.ProjectID, Required)
	v.Field("DOCUMENT_AI_PROCESSOR_ID", c.DocumentAI.ProcessorID, Required)
	v.Field("DOCUMENT_AI_LOCATION", c.DocumentAI.Location, Required)
	if v.HasErrors() {
		return NewStageError(constants.StageConfig, ErrMissingConfiguration, "missing "+strings.Join(v.FieldNames(), ", "), nil)
	}
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := c.ValidateExtraction(); err != nil {
		return err
	}
	return c.ValidateRuntime()
}

// ValidateRuntime checks everything except the extraction credentials, for commands that run offline.
func (c *Config) ValidateRuntime() error {
	v := NewValidator()
	v.Check("DOCUMENTAI_MAX_ATTEMPTS", c.DocumentAI.MaxAttempts >= 1, "must be at least 1")
	v.Check("MAX_FILE_SIZE", c.Ingest.MaxFileSize >= 0, "must not be negative")
	v.Field("STAGING_BACKEND", c.Staging.Backend, Required, OneOf("local", "s3"))
	switch c.Staging.Backend {
	case "local":
		v.Field("STAGING_DIR", c.Staging.Dir, Required)
	case "s3":
		v.Field("STAGING_S3_BUCKET", c.Staging.S3Bucket, Required)
	}
	v.Field("HISTORY_DRIVER", c.History.Driver, Required, OneOf("sqlite", "postgres", "none"))
	if c.History.Driver != "none" {
		v.Field("HISTORY_DSN", c.History.DSN, Required)
	}
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	return v.StageError(constants.StageConfig, ErrMissingConfiguration)
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
