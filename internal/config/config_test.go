package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	for _, k := range []string{"STORAGE_BACKEND", "DB_HOST", "DB_NAME", "REDIS_ADDR", "CHAT_RESPONDER",
		"DASHBOARD_TRIGGER_MODE", "DASHBOARD_AGGREGATION_INTERVAL", "DASHBOARD_CACHE_TTL", "MQTT_ENABLED", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.Storage.Backend != "postgres" {
		t.Errorf("Expected STORAGE_BACKEND default 'postgres', got '%s'", cfg.Storage.Backend)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}
	if cfg.Database.Database != "elderaid" {
		t.Errorf("Expected DB_NAME default 'elderaid', got '%s'", cfg.Database.Database)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}
	if cfg.Chat.Responder != "rules" {
		t.Errorf("Expected CHAT_RESPONDER default 'rules', got '%s'", cfg.Chat.Responder)
	}
	if cfg.Dashboard.TriggerMode != "polling" {
		t.Errorf("Expected DASHBOARD_TRIGGER_MODE default 'polling', got '%s'", cfg.Dashboard.TriggerMode)
	}
	if cfg.Dashboard.Interval != 60 {
		t.Errorf("Expected aggregation interval default 60, got %d", cfg.Dashboard.Interval)
	}
	if cfg.Dashboard.CacheTTL != 120*time.Second {
		t.Errorf("Expected cache ttl default 120s, got %s", cfg.Dashboard.CacheTTL)
	}
	if cfg.MQTT.Enabled {
		t.Error("Expected MQTT disabled by default")
	}
	if cfg.Events.Stream != "elderaid:events" {
		t.Errorf("Expected EVENT_STREAM default 'elderaid:events', got '%s'", cfg.Events.Stream)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "kv")
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CHAT_RESPONDER", "llm")
	t.Setenv("LLM_MODEL", "meta-llama/llama-3-8b-instruct")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("DASHBOARD_TRIGGER_MODE", "events")
	t.Setenv("DASHBOARD_AGGREGATION_INTERVAL", "30")
	t.Setenv("DASHBOARD_CACHE_TTL", "")
	t.Setenv("MINIO_BUCKET", "photos")

	cfg := Load()

	if cfg.Storage.Backend != "kv" {
		t.Errorf("Expected STORAGE_BACKEND 'kv', got '%s'", cfg.Storage.Backend)
	}
	if cfg.Database.Host != "test-host" || cfg.Database.Port != 6543 {
		t.Errorf("Unexpected database config: %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Chat.Responder != "llm" || cfg.Chat.LLM.Model != "meta-llama/llama-3-8b-instruct" {
		t.Errorf("Unexpected chat config: %+v", cfg.Chat)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" || cfg.MQTT.QoS != 2 {
		t.Errorf("Unexpected mqtt config: %+v", cfg.MQTT)
	}
	if cfg.Dashboard.TriggerMode != "events" {
		t.Errorf("Expected DASHBOARD_TRIGGER_MODE 'events', got '%s'", cfg.Dashboard.TriggerMode)
	}
	if cfg.Dashboard.CacheTTL != 60*time.Second {
		t.Errorf("Expected cache ttl to follow interval (60s), got %s", cfg.Dashboard.CacheTTL)
	}
	if cfg.ObjectStore.Bucket != "photos" {
		t.Errorf("Expected MINIO_BUCKET 'photos', got '%s'", cfg.ObjectStore.Bucket)
	}
}

func TestReminderLocation(t *testing.T) {
	if got := (ReminderConfig{TimeZone: "Local"}).Location(); got != time.Local {
		t.Errorf("Expected local time zone, got %s", got)
	}
	if got := (ReminderConfig{TimeZone: "Not/AZone"}).Location(); got != time.Local {
		t.Errorf("Expected fallback to local time zone, got %s", got)
	}
	if got := (ReminderConfig{TimeZone: "UTC"}).Location(); got.String() != "UTC" {
		t.Errorf("Expected UTC, got %s", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	if value := getEnv("TEST_VAR", "default"); value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}
	if value := getEnv("NON_EXISTENT_VAR", "default-value"); value != "default-value" {
		t.Errorf("Expected 'default-value', got '%s'", value)
	}
	if n := parseInt("abc", 7); n != 7 {
		t.Errorf("Expected fallback 7, got %d", n)
	}
}
