package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Upload UploadConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DataConfig points at the files loaded once at startup.
type DataConfig struct {
	DatasetPath string
	ModelPath   string
	MetricsPath string
	PreviewRows int
}

// UploadConfig limits batch prediction uploads.
type UploadConfig struct {
	MaxMB int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// MaxBytes is the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxMB) << 20
}

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATA_PATH", "Cleaned_Car_data.csv")
	v.SetDefault("MODEL_PATH", "model.yaml")
	v.SetDefault("METRICS_PATH", "metrics.json")
	v.SetDefault("PREVIEW_ROWS", 30)
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Data: DataConfig{
			DatasetPath: v.GetString("DATA_PATH"),
			ModelPath:   v.GetString("MODEL_PATH"),
			MetricsPath: v.GetString("METRICS_PATH"),
			PreviewRows: v.GetInt("PREVIEW_ROWS"),
		},
		Upload: UploadConfig{
			MaxMB: v.GetInt("MAX_UPLOAD_MB"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Data.DatasetPath == "" {
		return fmt.Errorf("DATA_PATH is required")
	}
	if c.Data.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	// METRICS_PATH may be empty: training metrics are optional.
	if c.Data.PreviewRows < 1 || c.Data.PreviewRows > 500 {
		return fmt.Errorf("PREVIEW_ROWS must be between 1 and 500")
	}
	if c.Upload.MaxMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1")
	}
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
