package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "10s" or "25m" decode
// through time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Cryptobridge CryptobridgeConfig `yaml:"cryptobridge"`
	Logging      LoggingConfig      `yaml:"logging"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
	Exchanges    ExchangesConfig    `yaml:"exchanges"`
	Stream       StreamConfig       `yaml:"stream"`
}

type CryptobridgeConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level      string           `yaml:"level"`
	Format     string           `yaml:"format"`
	Output     string           `yaml:"output"`
	MaxAge     int              `yaml:"max_age"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type DashboardConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Address         string   `yaml:"address"`
	RefreshInterval Duration `yaml:"refresh_interval"`
	LogHistory      int      `yaml:"log_history"`
}

type ExchangesConfig struct {
	Binance BinanceConfig `yaml:"binance"`
	Bybit   BybitConfig   `yaml:"bybit"`
	Kraken  VenueConfig   `yaml:"kraken"`
}

type BinanceConfig struct {
	Spot    VenueConfig `yaml:"spot"`
	Futures VenueConfig `yaml:"futures"`
}

type BybitConfig struct {
	USDT    VenueConfig `yaml:"usdt"`
	Inverse VenueConfig `yaml:"inverse"`
}

// VenueConfig describes one REST/stream endpoint pair plus the credentials
// and client limits used against it. Market-data-only venues leave the keys
// empty.
type VenueConfig struct {
	RestURL           string   `yaml:"rest_url"`
	WsURL             string   `yaml:"ws_url"`
	APIKey            string   `yaml:"api_key"`
	SecretKey         string   `yaml:"secret_key"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
	Timeout           Duration `yaml:"timeout"`
}

type StreamConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Venue             string   `yaml:"venue"`
	Symbols           []string `yaml:"symbols"`
	KeepAliveInterval Duration `yaml:"keepalive_interval"`
	HandshakeTimeout  Duration `yaml:"handshake_timeout"`
	SubscriptionID    int      `yaml:"subscription_id"`
}

const defaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

// LoadConfig reads, env-overrides and validates the yaml configuration. When
// APP_ENV names an environment with its own config file and the caller did
// not override the path, that file wins.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Stream: StreamConfig{
			KeepAliveInterval: Duration(25 * time.Minute),
			HandshakeTimeout:  Duration(15 * time.Second),
			SubscriptionID:    1,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyCredentialOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyCredentialOverrides lets environment variables win over yaml values so
// secrets never need to live in the config file.
func applyCredentialOverrides(cfg *Config) {
	override := func(venue *VenueConfig, keyEnv, secretEnv string) {
		if v := os.Getenv(keyEnv); v != "" {
			venue.APIKey = strings.TrimSpace(v)
		}
		if v := os.Getenv(secretEnv); v != "" {
			venue.SecretKey = strings.TrimSpace(v)
		}
	}
	override(&cfg.Exchanges.Binance.Spot, "BINANCE_API_KEY", "BINANCE_SECRET_KEY")
	override(&cfg.Exchanges.Binance.Futures, "BINANCE_API_KEY", "BINANCE_SECRET_KEY")
	override(&cfg.Exchanges.Bybit.USDT, "BYBIT_API_KEY", "BYBIT_SECRET_KEY")
	override(&cfg.Exchanges.Bybit.Inverse, "BYBIT_API_KEY", "BYBIT_SECRET_KEY")
	override(&cfg.Exchanges.Kraken, "KRAKEN_API_KEY", "KRAKEN_SECRET_KEY")
}

func validateConfig(cfg *Config) error {
	if cfg.Cryptobridge.Name == "" {
		return fmt.Errorf("cryptobridge.name is required")
	}

	if cfg.Cryptobridge.Version == "" {
		return fmt.Errorf("cryptobridge.version is required")
	}

	venues := map[string]*VenueConfig{
		"exchanges.binance.spot":    &cfg.Exchanges.Binance.Spot,
		"exchanges.binance.futures": &cfg.Exchanges.Binance.Futures,
		"exchanges.bybit.usdt":      &cfg.Exchanges.Bybit.USDT,
		"exchanges.bybit.inverse":   &cfg.Exchanges.Bybit.Inverse,
		"exchanges.kraken":          &cfg.Exchanges.Kraken,
	}
	strict := IsProductionLike(AppEnvironment())
	for name, venue := range venues {
		if venue.RestURL == "" {
			continue
		}
		if !strings.HasPrefix(venue.RestURL, "http://") && !strings.HasPrefix(venue.RestURL, "https://") {
			return fmt.Errorf("%s.rest_url must be an http(s) URL", name)
		}
		if venue.WsURL != "" && !strings.HasPrefix(venue.WsURL, "ws://") && !strings.HasPrefix(venue.WsURL, "wss://") {
			return fmt.Errorf("%s.ws_url must be a ws(s) URL", name)
		}
		if strict {
			if strings.HasPrefix(venue.RestURL, "http://") {
				return fmt.Errorf("%s.rest_url must use https in %s", name, AppEnvironment())
			}
			if strings.HasPrefix(venue.WsURL, "ws://") {
				return fmt.Errorf("%s.ws_url must use wss in %s", name, AppEnvironment())
			}
		}
		if venue.RequestsPerSecond < 0 {
			return fmt.Errorf("%s.requests_per_second must not be negative", name)
		}
	}

	if cfg.Stream.KeepAliveInterval.Std() <= 0 {
		return fmt.Errorf("stream.keepalive_interval must be greater than 0")
	}

	if cfg.Stream.Enabled {
		switch cfg.Stream.Venue {
		case "binance_spot", "binance_futures":
		default:
			return fmt.Errorf("stream.venue must be binance_spot or binance_futures, got %q", cfg.Stream.Venue)
		}
		if len(cfg.Stream.Symbols) == 0 {
			return fmt.Errorf("stream.symbols is required when streaming is enabled")
		}
	}

	if cfg.Dashboard.Enabled && cfg.Dashboard.Address == "" {
		return fmt.Errorf("dashboard.address is required when the dashboard is enabled")
	}

	return nil
}
