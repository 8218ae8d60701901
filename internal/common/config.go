// Package common provides shared utilities for the wheat night lab tools.
package common

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds common configuration for all applications.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	FiguresDir         string
	FigureDPI          int
	LogLevel           string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     9000,
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "pheno"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            getEnv("WNL_DATA_DIR", "/var/lib/wheat-night-lab"),
		FiguresDir:         getEnv("WNL_FIGURES_DIR", "/var/lib/wheat-night-lab/figures"),
		FigureDPI:          getEnvInt("WNL_FIGURE_DPI", 300),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// PhenoDataDir returns the curated phenology-weather data directory path.
func (c *Config) PhenoDataDir() string {
	return filepath.Join(c.DataDir, "pheno")
}

// ParquetDataDir returns the parquet archive directory path.
func (c *Config) ParquetDataDir() string {
	return filepath.Join(c.DataDir, "parquet")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
