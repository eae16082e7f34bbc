package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "elderaid/common/config"
)

// Config ElderAid 服务配置（elderaid-data 与 elderaid-dashboard 共用）
type Config struct {
	HTTP struct {
		Addr string
	}

	// 存储后端：postgres（多用户）或 kv（Redis，App 本地存储模型）
	// postgres 连接失败时回退到 kv
	Storage struct {
		Backend string
	}
	Database    commoncfg.DatabaseConfig
	Redis       commoncfg.RedisConfig
	MQTT        MQTTConfig
	ObjectStore ObjectStoreConfig

	Chat     ChatConfig
	Reminder ReminderConfig
	Geocode  GeocodeConfig

	// 事件流（写操作发布，dashboard 聚合服务消费）
	Events struct {
		Stream string
	}

	Dashboard DashboardConfig

	Log struct {
		Level  string
		Format string
	}
}

// MQTTConfig 提醒推送（默认禁用）
type MQTTConfig struct {
	commoncfg.MQTTConfig
	Enabled     bool
	TopicPrefix string // 默认 "elderaid"，topic 为 {prefix}/{elderID}/reminders
}

// ObjectStoreConfig 照片存储（默认禁用，禁用时只接受已有 imageUri）
type ObjectStoreConfig struct {
	commoncfg.ObjectStoreConfig
	Enabled bool
}

// ChatConfig 对话助手
type ChatConfig struct {
	Responder    string // "rules" 或 "llm"
	HistoryLimit int    // 传给 LLM 的历史条数
	LLM          struct {
		BaseURL string
		APIKey  string
		Model   string
		Timeout time.Duration
	}
}

// ReminderConfig 服药提醒
type ReminderConfig struct {
	Enabled  bool
	TimeZone string // IANA 时区，如 "Asia/Shanghai"
}

// GeocodeConfig 逆地理编码（Nominatim 兼容接口）
type GeocodeConfig struct {
	Enabled   bool
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// DashboardConfig 家属看板聚合服务
type DashboardConfig struct {
	// 触发方式：polling（定时全量）或 events（定时全量 + 事件增量）
	TriggerMode   string
	Interval      int // 全量聚合间隔（秒）
	CacheTTL      time.Duration
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int
	RecentWindow  time.Duration
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", "postgres")
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "elderaid")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "elderaid-data")
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "elderaid")

	cfg.ObjectStore.Enabled = getEnv("MINIO_ENABLED", "false") == "true"
	cfg.ObjectStore.Bucket = "elderaid-memories"
	cfg.ObjectStore.ObjectStoreConfig.LoadFromEnv("MINIO")

	cfg.Chat.Responder = getEnv("CHAT_RESPONDER", "rules")
	cfg.Chat.HistoryLimit = parseInt(getEnv("CHAT_HISTORY_LIMIT", "20"), 20)
	cfg.Chat.LLM.BaseURL = getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1")
	cfg.Chat.LLM.APIKey = getEnv("LLM_API_KEY", "")
	cfg.Chat.LLM.Model = getEnv("LLM_MODEL", "mistralai/mistral-7b-instruct:free")
	cfg.Chat.LLM.Timeout = time.Duration(parseInt(getEnv("LLM_TIMEOUT_SECONDS", "30"), 30)) * time.Second

	cfg.Reminder.Enabled = getEnv("REMINDER_ENABLED", "true") == "true"
	cfg.Reminder.TimeZone = getEnv("REMINDER_TIMEZONE", "Local")

	cfg.Geocode.Enabled = getEnv("GEOCODE_ENABLED", "true") == "true"
	cfg.Geocode.BaseURL = getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org")
	cfg.Geocode.UserAgent = getEnv("GEOCODE_USER_AGENT", "elderaid-data/1.0")
	cfg.Geocode.Timeout = time.Duration(parseInt(getEnv("GEOCODE_TIMEOUT_SECONDS", "5"), 5)) * time.Second

	cfg.Events.Stream = getEnv("EVENT_STREAM", "elderaid:events")

	cfg.Dashboard.TriggerMode = getEnv("DASHBOARD_TRIGGER_MODE", "polling")
	cfg.Dashboard.Interval = parseInt(getEnv("DASHBOARD_AGGREGATION_INTERVAL", "60"), 60)
	if cfg.Dashboard.Interval <= 0 {
		cfg.Dashboard.Interval = 60
	}
	// 未配置时 TTL 为两个聚合周期
	cfg.Dashboard.CacheTTL = time.Duration(parseInt(getEnv("DASHBOARD_CACHE_TTL", "0"), 0)) * time.Second
	if cfg.Dashboard.CacheTTL <= 0 {
		cfg.Dashboard.CacheTTL = time.Duration(cfg.Dashboard.Interval*2) * time.Second
	}
	cfg.Dashboard.ConsumerGroup = getEnv("DASHBOARD_CONSUMER_GROUP", "dashboard-aggregator-group")
	cfg.Dashboard.ConsumerName = getEnv("DASHBOARD_CONSUMER_NAME", "dashboard-aggregator-1")
	cfg.Dashboard.BatchSize = parseInt(getEnv("DASHBOARD_BATCH_SIZE", "10"), 10)
	cfg.Dashboard.RecentWindow = time.Duration(parseInt(getEnv("DASHBOARD_RECENT_HOURS", "24"), 24)) * time.Hour

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// Location 提醒使用的时区；无法识别时回退到本地时区
func (c ReminderConfig) Location() *time.Location {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
