package common

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "acme")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "abc123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadConfig()
	assert.Equal(t, "us", cfg.DocumentAI.Location)
	assert.Equal(t, 45*time.Second, cfg.DocumentAI.Timeout)
	assert.Equal(t, 1, cfg.DocumentAI.MaxAttempts)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, int64(10<<20), cfg.Ingest.MaxFileSize)
	assert.Equal(t, "local", cfg.Staging.Backend)
	assert.Equal(t, "data", cfg.Staging.Dir)
	assert.True(t, cfg.Staging.Retain)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, 4, cfg.Batch.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DOCUMENT_AI_LOCATION", "eu")
	t.Setenv("DOCUMENTAI_MAX_ATTEMPTS", "3")
	t.Setenv("DOCUMENTAI_TIMEOUT", "5s")
	t.Setenv("MAX_FILE_SIZE", "2048")
	t.Setenv("RETAIN_STAGING", "false")
	t.Setenv("HISTORY_DRIVER", "NONE")
	t.Setenv("BATCH_WORKERS", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "eu", cfg.DocumentAI.Location)
	assert.Equal(t, 3, cfg.DocumentAI.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.DocumentAI.Timeout)
	assert.Equal(t, int64(2048), cfg.Ingest.MaxFileSize)
	assert.False(t, cfg.Staging.Retain)
	assert.Equal(t, "none", cfg.History.Driver)
	assert.Equal(t, 4, cfg.Batch.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_CredentialsFallback(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("DOCUMENTAI_CREDENTIALS", "/alt/creds.json")

	cfg := LoadConfig()
	assert.Equal(t, "/alt/creds.json", cfg.DocumentAI.CredentialsFile)
}

func TestValidate_MissingConfiguration(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("DOCUMENTAI_CREDENTIALS", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "")

	err := LoadConfig().Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfiguration))
	assert.Equal(t, constants.StageConfig, StageOf(err))
	assert.Contains(t, err.Error(), "GOOGLE_APPLICATION_CREDENTIALS")
	assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT_ID")
	assert.Contains(t, err.Error(), "DOCUMENT_AI_PROCESSOR_ID")
}

func TestValidate_Backends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"s3 without bucket", func(c *Config) { c.Staging.Backend = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.Staging.Backend = "s3"; c.Staging.S3Bucket = "b" }, false},
		{"unknown backend", func(c *Config) { c.Staging.Backend = "ftp" }, true},
		{"unknown history driver", func(c *Config) { c.History.Driver = "mysql" }, true},
		{"zero attempts", func(c *Config) { c.DocumentAI.MaxAttempts = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingConfiguration))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INVOICE_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("INVOICE_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("INVOICE_TEST_DOTENV"))
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "DEBUG"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warning"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "loud"}).SlogLevel())
}

func TestValidateRuntime_IgnoresExtractionSettings(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("DOCUMENTAI_CREDENTIALS", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "")

	cfg := LoadConfig()
	require.NoError(t, cfg.ValidateRuntime())
	require.Error(t, cfg.Validate())
}

func TestValidateRuntime_ReportsEveryFailure(t *testing.T) {
	cfg := LoadConfig()
	cfg.Staging.Backend = "ftp"
	cfg.History.Driver = "postgres"
	cfg.History.DSN = ""

	err := cfg.ValidateRuntime()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfiguration))
	assert.Contains(t, err.Error(), "STAGING_BACKEND must be one of local, s3")
	assert.Contains(t, err.Error(), "HISTORY_DSN is required")
}
