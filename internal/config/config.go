package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultFileFilter matches the forecast file names the providers deliver.
const DefaultFileFilter = `(E[Nn]et(NEA|Ecm)_|ConWx_prog_)\d+(_\d{3})?\.(txt|dat)`

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers    []string
	KafkaTopic      string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Folder scanning.
	ForecastPath   string
	FileFilter     *regexp.Regexp
	ScanInterval   time.Duration
	QuarantinePath string // empty: failed files are removed

	// Reference tables.
	GridPointPath       string
	ParameterLookupPath string
	StationCacheSize    int

	// Synthetic input generation.
	UseMockData  bool
	TemplatePath string
}

// Load reads configuration from environment variables, applying defaults where
// unset. Variables from a .env file (ENV_FILE, default ".env") are loaded
// first and never override the real environment.
func Load() (*Config, error) {
	loadEnvFile()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	scanInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("FOLDER_SCAN_INTERVAL", "10s"))
	if err != nil || scanInterval <= 0 {
		return nil, errors.New("invalid FOLDER_SCAN_INTERVAL")
	}

	filter, err := regexp.Compile(sharedcfg.EnvOrDefault("FILE_FILTER", DefaultFileFilter))
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_FILTER: %w", err)
	}

	useMock, err := parseBool("USE_MOCK_DATA", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("STATION_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "weather-forecast-raw"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ForecastPath:   sharedcfg.EnvOrDefault("FORECAST_PATH", "/app/weatherforecasts/"),
		FileFilter:     filter,
		ScanInterval:   scanInterval,
		QuarantinePath: os.Getenv("QUARANTINE_PATH"),

		GridPointPath:       sharedcfg.EnvOrDefault("GRID_POINT_PATH", "app/gridpoints.csv"),
		ParameterLookupPath: sharedcfg.EnvOrDefault("PARAMETER_LOOKUP_PATH", "app/ksql-config.json"),
		StationCacheSize:    cacheSize,

		UseMockData:  useMock,
		TemplatePath: sharedcfg.EnvOrDefault("TEMPLATE_PATH", "/app/"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.ForecastPath == "" {
		return nil, errors.New("FORECAST_PATH is required")
	}
	if cfg.UseMockData && cfg.TemplatePath == "" {
		return nil, errors.New("USE_MOCK_DATA is true but TEMPLATE_PATH is not set")
	}

	return cfg, nil
}

func loadEnvFile() {
	path := sharedcfg.EnvOrDefault("ENV_FILE", ".env")
	// A missing file is the normal case in containers.
	_ = godotenv.Load(path)
}

// parseBool accepts true/false, yes/no and y/n in any case.
func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	switch strings.ToUpper(v) {
	case "TRUE", "YES", "Y":
		return true, nil
	case "FALSE", "NO", "N":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be true or false, got %q", key, v)
	}
}

func parsePositiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
