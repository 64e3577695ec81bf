package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Data sources understood by the loaders
const (
	SourceJSON     = "json"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceGTFS     = "gtfs"
	SourceGTFSRT   = "gtfsrt"
)

// Config holds all configuration for the trains engine and its tools
type Config struct {
	// Dataset
	DataSource      string `yaml:"data_source" validate:"oneof=json sqlite postgres gtfs gtfsrt"`
	DataDir         string `yaml:"data_dir"`
	NetworkFile     string `yaml:"network_file" validate:"required"`
	TripsFile       string `yaml:"trips_file" validate:"required"`
	HeaderFile      string `yaml:"header_file"`
	SQLiteDatabase  string `yaml:"sqlite_database" validate:"required_if=DataSource sqlite"`
	DatabaseURL     string `yaml:"database_url" validate:"required_if=DataSource postgres"`
	GTFSPath        string `yaml:"gtfs_path" validate:"required_if=DataSource gtfs"`
	GTFSServiceDate string `yaml:"gtfs_service_date" validate:"omitempty,datetime=2006-01-02"`
	GTFSRTPath      string `yaml:"gtfsrt_path" validate:"required_if=DataSource gtfsrt"`

	// Animation and layout
	TickRate       float64       `yaml:"tick_rate" validate:"gt=0,lte=120"`
	GlyphRadius    float64       `yaml:"glyph_radius" validate:"gte=0"`
	MapWidth       float64       `yaml:"map_width" validate:"gt=0"`
	MapHeight      float64       `yaml:"map_height" validate:"gt=0"`
	MareyWidth     float64       `yaml:"marey_width" validate:"gt=0"`
	MareyHeight    float64       `yaml:"marey_height" validate:"gt=0"`
	LinedUpHeight  float64       `yaml:"lined_up_height" validate:"gt=0"`
	ResizeDebounce time.Duration `yaml:"resize_debounce" validate:"gte=0"`
	StatsEvery     int           `yaml:"stats_every" validate:"gte=0"`

	// Logging
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	// Import tool
	ImportKeep int `yaml:"import_keep" validate:"gte=1"`
}

// Load reads .env files, then environment variables with sensible defaults,
// then the optional YAML file named by CONFIG_FILE, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local") // Overload forces override of existing values

	cfg := fromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		DataSource:      getEnv("DATA_SOURCE", SourceJSON),
		DataDir:         getEnv("DATA_DIR", "data"),
		NetworkFile:     getEnv("NETWORK_FILE", "station-network.json"),
		TripsFile:       getEnv("TRIPS_FILE", "marey-trips.json"),
		HeaderFile:      getEnv("HEADER_FILE", "marey-header.json"),
		SQLiteDatabase:  getEnv("SQLITE_DATABASE", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		GTFSPath:        getEnv("GTFS_PATH", ""),
		GTFSServiceDate: getEnv("GTFS_SERVICE_DATE", ""),
		GTFSRTPath:      getEnv("GTFSRT_PATH", ""),

		TickRate:       getEnvFloat("TICK_RATE", 10),
		GlyphRadius:    getEnvFloat("GLYPH_RADIUS", 2),
		MapWidth:       getEnvFloat("MAP_WIDTH", 283),
		MapHeight:      getEnvFloat("MAP_HEIGHT", 283),
		MareyWidth:     getEnvFloat("MAREY_WIDTH", 1000),
		MareyHeight:    getEnvFloat("MAREY_HEIGHT", 3000),
		LinedUpHeight:  getEnvFloat("LINED_UP_HEIGHT", 600),
		ResizeDebounce: getEnvDuration("RESIZE_DEBOUNCE", 250*time.Millisecond),
		StatsEvery:     getEnvInt("STATS_EVERY", 600),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ImportKeep: getEnvInt("IMPORT_KEEP", 3),
	}
}

// mergeFile overlays the keys present in a YAML file onto cfg
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration against its validate tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
