// Package config reads the service settings from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

// Reference table sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port int

	// FoodSource is SourceCSV or SourcePostgres.
	FoodSource      string
	FoodDatasetPath string

	// DatabaseURL is built from the BLUEPRINT_DB_* variables when DATABASE_URL is unset.
	DatabaseURL string

	Neighbors int
	CacheSize int

	LogLevel  string
	LogFormat string
}

// Load reads Config from the environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		FoodSource:      strings.ToLower(stringOr(getenv("FOOD_SOURCE"), SourceCSV)),
		FoodDatasetPath: stringOr(getenv("FOOD_DATASET_PATH"), "data/food_dataset.csv"),
		DatabaseURL:     getenv("DATABASE_URL"),
		LogLevel:        stringOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:       stringOr(getenv("LOG_FORMAT"), "json"),
	}

	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}
	cfg.Port = port

	if cfg.Neighbors, err = intOr(getenv("RECOMMENDER_NEIGHBORS"), 5); err != nil {
		return nil, fmt.Errorf("RECOMMENDER_NEIGHBORS: %w", err)
	}
	if cfg.CacheSize, err = intOr(getenv("RECOMMENDER_CACHE_SIZE"), 128); err != nil {
		return nil, fmt.Errorf("RECOMMENDER_CACHE_SIZE: %w", err)
	}

	switch cfg.FoodSource {
	case SourceCSV:
	case SourcePostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = blueprintURL(getenv)
		}
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("FOOD_SOURCE=%s requires DATABASE_URL or BLUEPRINT_DB_HOST", SourcePostgres)
		}
	default:
		return nil, fmt.Errorf("invalid FOOD_SOURCE '%s'. Must be '%s' or '%s'", cfg.FoodSource, SourceCSV, SourcePostgres)
	}

	return cfg, nil
}

func blueprintURL(getenv func(string) string) string {
	host := getenv("BLUEPRINT_DB_HOST")
	if host == "" {
		return ""
	}
	url := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getenv("BLUEPRINT_DB_USERNAME"),
		getenv("BLUEPRINT_DB_PASSWORD"),
		host,
		stringOr(getenv("BLUEPRINT_DB_PORT"), "5432"),
		getenv("BLUEPRINT_DB_DATABASE"),
	)
	if schema := getenv("BLUEPRINT_DB_SCHEMA"); schema != "" {
		url += "&search_path=" + schema
	}
	return url
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
