package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLA_DEFAULT_HIGH_HOURS", "")
	t.Setenv("SLA_MONITOR_INTERVAL_SECONDS", "")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SLA.CriticalHours != 4 || cfg.SLA.HighHours != 12 || cfg.SLA.MediumHours != 48 || cfg.SLA.LowHours != 120 {
		t.Fatalf("unexpected SLA defaults: %+v", cfg.SLA)
	}
	if got := cfg.SLA.MonitorInterval(); got != time.Minute {
		t.Fatalf("MonitorInterval() = %v, want 1m", got)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if got := cfg.Kafka.WriteTimeout(); got != 2*time.Second {
		t.Fatalf("Kafka.WriteTimeout() = %v, want 2s", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SLA_DEFAULT_HIGH_HOURS", "6.5")
	t.Setenv("SLA_MONITOR_INTERVAL_SECONDS", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SLA.HighHours != 6.5 {
		t.Fatalf("HighHours = %v, want 6.5", cfg.SLA.HighHours)
	}
	if got := cfg.SLA.MonitorInterval(); got != 15*time.Second {
		t.Fatalf("MonitorInterval() = %v", got)
	}
}

func TestValidateRejectsNonPositiveHours(t *testing.T) {
	t.Setenv("SLA_DEFAULT_LOW_HOURS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero SLA hours")
	}
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for default secret in production")
	}
}
