// Package config loads runtime settings from .env, an optional
// financas-voz.yaml and FINANCAS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FINANCAS"

// Config holds the runtime settings of the binaries.
type Config struct {
	DataDir         string
	GeminiAPIKey    string
	Model           string
	Port            string
	BackupBucket    string
	BigQueryProject string
	BigQueryDataset string
	Timezone        string
	LogLevel        string
	APIToken        string
}

// Load reads the configuration. configDir, when set, is searched for
// financas-voz.yaml before the working directory.
func Load(configDir string) (Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("data_dir", "data")
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("port", "8080")
	v.SetDefault("bigquery_dataset", "financas_voz")
	v.SetDefault("timezone", "America/Sao_Paulo")
	v.SetDefault("log_level", "info")

	v.SetConfigName("financas-voz")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("Load: reading config file: %w", err)
		}
	}

	cfg := Config{
		DataDir:         v.GetString("data_dir"),
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		Model:           v.GetString("model"),
		Port:            v.GetString("port"),
		BackupBucket:    v.GetString("backup_bucket"),
		BigQueryProject: v.GetString("bigquery_project"),
		BigQueryDataset: v.GetString("bigquery_dataset"),
		Timezone:        v.GetString("timezone"),
		LogLevel:        v.GetString("log_level"),
		APIToken:        v.GetString("api_token"),
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

// Location resolves Timezone, defaulting to the local zone when empty.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("Location: loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BackupEnabled reports whether snapshot uploads are configured.
func (c Config) BackupEnabled() bool {
	return c.BackupBucket != ""
}

// ExportEnabled reports whether the BigQuery export is configured.
func (c Config) ExportEnabled() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}
