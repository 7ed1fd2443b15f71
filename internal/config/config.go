package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage.
	DBPath         string
	RetentionHours int

	// Ingestion.
	IngestInterval time.Duration
	SourceTimeout  time.Duration
	CacheTTL       time.Duration

	// Feed endpoints.
	USGSFeedURL  string
	EONETFeedURL string
	FIRMSFeedURL string

	// FIRMSMapKey is optional; when empty the FIRMS source is disabled for
	// the run rather than failing startup.
	FIRMSMapKey string

	// Optional raw-payload archival sink. Archiving is enabled only when
	// brokers are configured.
	KafkaBrokers      []string
	KafkaArchiveTopic string

	// Weather forecast provider for short-horizon predictions.
	OpenMeteoURL    string
	ForecastTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	ingestInterval, err := parseDuration("INGEST_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parseDuration("FORECAST_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}

	retentionHours, err := parsePositiveInt("RETENTION_HOURS", 72)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:         envOrDefault("DB_PATH", "hazard-atlas.db"),
		RetentionHours: retentionHours,

		IngestInterval: ingestInterval,
		SourceTimeout:  sourceTimeout,
		CacheTTL:       cacheTTL,

		USGSFeedURL:  envOrDefault("USGS_FEED_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"),
		EONETFeedURL: envOrDefault("EONET_FEED_URL", "https://eonet.gsfc.nasa.gov/api/v3/events"),
		FIRMSFeedURL: envOrDefault("FIRMS_FEED_URL", "https://firms.modaps.eosdis.nasa.gov/api/area/csv"),
		FIRMSMapKey:  os.Getenv("FIRMS_MAP_KEY"),

		KafkaBrokers:      parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaArchiveTopic: envOrDefault("KAFKA_ARCHIVE_TOPIC", "raw-hazard-payloads"),

		OpenMeteoURL:    envOrDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		ForecastTimeout: forecastTimeout,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.SourceTimeout < 1*time.Second || cfg.SourceTimeout > 30*time.Second {
		return nil, errors.New("SOURCE_TIMEOUT must be between 1s and 30s")
	}
	if cfg.IngestInterval < time.Minute {
		return nil, errors.New("INGEST_INTERVAL must be at least 1m")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaArchiveTopic == "" {
		return nil, errors.New("KAFKA_ARCHIVE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Retention is the marker retention window derived from RETENTION_HOURS.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// ArchiveEnabled reports whether a raw-payload archival sink is configured.
func (c *Config) ArchiveEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// FIRMSEnabled reports whether the FIRMS hotspot source has a credential.
func (c *Config) FIRMSEnabled() bool {
	return c.FIRMSMapKey != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
