package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `cryptobridge:
  name: "TestApp"
  version: "1.0"
logging:
  level: info
  format: json
  output: stdout
exchanges:
  binance:
    spot:
      rest_url: "https://api.binance.com"
      ws_url: "wss://stream.binance.com:9443/ws/"
      requests_per_second: 10
      burst: 20
      timeout: 10s
  kraken:
    rest_url: "https://api.kraken.com"
stream:
  keepalive_interval: 25m
  handshake_timeout: 15s
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cryptobridge.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Cryptobridge.Name)
	}
	if cfg.Exchanges.Binance.Spot.Timeout.Std() != 10*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.Exchanges.Binance.Spot.Timeout.Std())
	}
	if cfg.Stream.KeepAliveInterval.Std() != 25*time.Minute {
		t.Errorf("unexpected keepalive interval: %v", cfg.Stream.KeepAliveInterval.Std())
	}
	if cfg.Stream.SubscriptionID != 1 {
		t.Errorf("expected default subscription id 1, got %d", cfg.Stream.SubscriptionID)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("cryptobridge:\n  version: \"1.0\"\n"); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestCredentialOverrides(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-public")
	t.Setenv("BINANCE_SECRET_KEY", "env-secret")

	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Exchanges.Binance.Spot.APIKey != "env-public" {
		t.Errorf("api key override not applied: %q", cfg.Exchanges.Binance.Spot.APIKey)
	}
	if cfg.Exchanges.Binance.Futures.SecretKey != "env-secret" {
		t.Errorf("secret key override not applied: %q", cfg.Exchanges.Binance.Futures.SecretKey)
	}
}

func TestLoadConfigRejectsBadURL(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	content := `cryptobridge:
  name: "TestApp"
  version: "1.0"
exchanges:
  kraken:
    rest_url: "ftp://api.kraken.com"
`
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for non-http rest_url")
	}
}

func TestProductionRequiresTLS(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	content := `cryptobridge:
  name: "TestApp"
  version: "1.0"
exchanges:
  kraken:
    rest_url: "http://api.kraken.com"
`
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for plaintext URL in production")
	}
}

func TestStreamValidation(t *testing.T) {
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(f.Name())
	content := `cryptobridge:
  name: "TestApp"
  version: "1.0"
stream:
  enabled: true
  venue: "kraken"
  symbols: ["BTCUSD"]
`
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for unsupported stream venue")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "stagging")
	if got := AppEnvironment(); got != EnvironmentStaging {
		t.Errorf("AppEnvironment() = %q, want %q", got, EnvironmentStaging)
	}
	if !IsProductionLike(EnvironmentStaging) {
		t.Error("staging must be production-like")
	}
	if IsProductionLike(EnvironmentDevelopment) {
		t.Error("development must not be production-like")
	}
}
