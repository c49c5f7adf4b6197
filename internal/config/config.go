package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the daemon
type Config struct {
	HomeAirport string `validate:"required,len=3,alpha"`
	Timezone    string `validate:"required"`
	Location    *time.Location
	Bounds      BoundsConfig
	AirportFeed FeedConfig
	LiveFeed    FeedConfig
	DBPath      string `validate:"required"`
	Reference   ReferenceConfig
	Status      StatusConfig
	Telegram    TelegramConfig
	Log         LogConfig
}

// BoundsConfig is the live feed bounding box in degrees
type BoundsConfig struct {
	North float64 `validate:"gte=-90,lte=90,gtfield=South"`
	South float64 `validate:"gte=-90,lte=90"`
	East  float64 `validate:"gte=-180,lte=180,gtfield=West"`
	West  float64 `validate:"gte=-180,lte=180"`
}

// FeedConfig holds one feed's source and poll timing
type FeedConfig struct {
	Enabled      bool
	URL          string        // http(s) URL or local file path
	PollInterval time.Duration `validate:"gt=0"`
	FetchTimeout time.Duration `validate:"gt=0"`
}

// ReferenceConfig points at the JSON files used to populate the reference tables
type ReferenceConfig struct {
	Airports string
	Aircraft string
}

// StatusConfig holds the diagnostics HTTP server settings
type StatusConfig struct {
	Enabled bool
	Addr    string `validate:"required_if=Enabled true"`
}

// TelegramConfig holds the optional message forwarder settings
type TelegramConfig struct {
	Enabled  bool
	BotToken string `validate:"required_if=Enabled true"`
	ChatID   int64  `validate:"required_if=Enabled true"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("home_airport", "PHL")
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("bounds.north", 40.2)
	v.SetDefault("bounds.south", 39.7)
	v.SetDefault("bounds.east", -74.9)
	v.SetDefault("bounds.west", -75.5)
	v.SetDefault("airport_feed.enabled", true)
	v.SetDefault("airport_feed.url", "https://phl.org/drupalbin/flight-feed/airit.xml")
	v.SetDefault("airport_feed.poll_interval", "5m")
	v.SetDefault("airport_feed.fetch_timeout", "30s")
	v.SetDefault("live_feed.enabled", false)
	v.SetDefault("live_feed.url", "")
	v.SetDefault("live_feed.poll_interval", "8s")
	v.SetDefault("live_feed.fetch_timeout", "30s")
	v.SetDefault("db_path", "outside.db")
	v.SetDefault("reference.airports", "data/Airports.json")
	v.SetDefault("reference.aircraft", "data/AircraftFamily.json")
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", "127.0.0.1:8080")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/outside")
	v.AddConfigPath(".")

	if configPath := os.Getenv("OUTSIDE_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// A missing config file is fine: defaults and env vars apply.
	// The logger isn't initialized yet, so nothing is logged here.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("OUTSIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		HomeAirport: strings.ToUpper(v.GetString("home_airport")),
		Timezone:    v.GetString("timezone"),
		Bounds: BoundsConfig{
			North: v.GetFloat64("bounds.north"),
			South: v.GetFloat64("bounds.south"),
			East:  v.GetFloat64("bounds.east"),
			West:  v.GetFloat64("bounds.west"),
		},
		AirportFeed: feedConfig(v, "airport_feed"),
		LiveFeed:    feedConfig(v, "live_feed"),
		DBPath:      v.GetString("db_path"),
		Reference: ReferenceConfig{
			Airports: v.GetString("reference.airports"),
			Aircraft: v.GetString("reference.aircraft"),
		},
		Status: StatusConfig{
			Enabled: v.GetBool("status.enabled"),
			Addr:    v.GetString("status.addr"),
		},
		Telegram: TelegramConfig{
			Enabled:  v.GetBool("telegram.enabled"),
			BotToken: v.GetString("telegram.bot_token"),
			ChatID:   v.GetInt64("telegram.chat_id"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func feedConfig(v *viper.Viper, key string) FeedConfig {
	return FeedConfig{
		Enabled:      v.GetBool(key + ".enabled"),
		URL:          v.GetString(key + ".url"),
		PollInterval: v.GetDuration(key + ".poll_interval"),
		FetchTimeout: v.GetDuration(key + ".fetch_timeout"),
	}
}

// validate checks struct tags, then the rules tags can't express. It also resolves Location.
func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if !cfg.AirportFeed.Enabled && !cfg.LiveFeed.Enabled {
		return fmt.Errorf("at least one of airport_feed or live_feed must be enabled")
	}

	if cfg.AirportFeed.Enabled && cfg.AirportFeed.URL == "" {
		return fmt.Errorf("airport_feed.url is required when the airport feed is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
