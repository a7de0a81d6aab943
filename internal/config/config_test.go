package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.PostgresHost != "localhost" || cfg.PostgresPort != "5432" {
		t.Errorf("unexpected postgres defaults: %s:%s", cfg.PostgresHost, cfg.PostgresPort)
	}
	if cfg.UpsertBatchSize != 100 || cfg.UpsertRetries != 3 {
		t.Errorf("unexpected upsert defaults: batch=%d retries=%d", cfg.UpsertBatchSize, cfg.UpsertRetries)
	}
	if cfg.JustListedMaxPage != 4 {
		t.Errorf("JustListedMaxPage = %d; want 4", cfg.JustListedMaxPage)
	}
	if !reflect.DeepEqual(cfg.ServiceCities, []string{"Windsor"}) {
		t.Errorf("ServiceCities = %v; want [Windsor]", cfg.ServiceCities)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("UPSERT_BATCH_SIZE", "250")
	t.Setenv("SERVICE_CITIES", "Windsor, Toronto ,London")

	cfg := Load()

	if cfg.PostgresHost != "db.internal" {
		t.Errorf("PostgresHost = %q", cfg.PostgresHost)
	}
	if cfg.UpsertBatchSize != 250 {
		t.Errorf("UpsertBatchSize = %d; want 250", cfg.UpsertBatchSize)
	}
	want := []string{"Windsor", "Toronto", "London"}
	if !reflect.DeepEqual(cfg.ServiceCities, want) {
		t.Errorf("ServiceCities = %v; want %v", cfg.ServiceCities, want)
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("UPSERT_RETRIES", "lots")

	cfg := Load()
	if cfg.UpsertRetries != 3 {
		t.Errorf("UpsertRetries = %d; want default 3 for invalid value", cfg.UpsertRetries)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     "5432",
		PostgresUser:     "app",
		PostgresPassword: "secret",
		PostgresDB:       "leads",
		PostgresSSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=app password=secret dbname=leads sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}
