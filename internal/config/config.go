package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Supported notification transports.
const (
	SenderKafka = "kafka"
	SenderNATS  = "nats"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scheduling.
	NotifySchedule string
	NotifyLocation *time.Location
	NotifyTimeout  time.Duration

	// Forecast feed.
	ForecastURL       string
	ForecastTimeout   time.Duration
	ForecastCacheTTL  time.Duration
	ForecastCacheSize int

	SubscribersFile string

	// Delivery transport.
	Sender       string
	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	notifyTimeout, err := parsePositiveDuration("NOTIFY_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parsePositiveDuration("FORECAST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	forecastCacheTTL, err := parsePositiveDuration("FORECAST_CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}

	schedule := sharedcfg.EnvOrDefault("NOTIFY_SCHEDULE", "0 6 * * *")
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_SCHEDULE: %w", err)
	}

	tz := sharedcfg.EnvOrDefault("NOTIFY_TIMEZONE", "Europe/Rome")
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEZONE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NotifySchedule: schedule,
		NotifyLocation: location,
		NotifyTimeout:  notifyTimeout,

		ForecastURL:       sharedcfg.EnvOrDefault("FORECAST_URL", "https://dati.venezia.it/sites/default/files/dataset/opendata/previsione.json"),
		ForecastTimeout:   forecastTimeout,
		ForecastCacheTTL:  forecastCacheTTL,
		ForecastCacheSize: parseForecastCacheSize(),

		SubscribersFile: sharedcfg.EnvOrDefault("SUBSCRIBERS_FILE", "subscribers.yaml"),

		Sender:       strings.ToLower(sharedcfg.EnvOrDefault("SENDER", SenderKafka)),
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "tide-notifications"),
		NATSURL:      sharedcfg.EnvOrDefault("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubject:  sharedcfg.EnvOrDefault("NATS_SUBJECT", "tide.notifications"),
	}

	switch cfg.Sender {
	case SenderKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when SENDER=kafka")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when SENDER=kafka")
		}
	case SenderNATS:
		if cfg.NATSURL == "" {
			return nil, errors.New("NATS_URL is required when SENDER=nats")
		}
		if cfg.NATSSubject == "" {
			return nil, errors.New("NATS_SUBJECT is required when SENDER=nats")
		}
	default:
		return nil, fmt.Errorf("invalid SENDER %q: want %q or %q", cfg.Sender, SenderKafka, SenderNATS)
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseForecastCacheSize() int {
	if s := os.Getenv("FORECAST_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 32
}
