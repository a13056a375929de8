package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ruokas/lovos-dashboard-sub000/internal/common/config"
)

// Config 床位看板服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// DB_ENABLED=false 时任务和 KPI 只用本地内存
	DatabaseEnabled bool
	RedisEnabled    bool
	MQTTEnabled     bool

	// 表格行数据来源：CSV_URL 优先，其次 XLSX_PATH；都为空则只依赖事件
	Ingest struct {
		CSVURL    string
		XLSXPath  string
		XLSXSheet string
		Timeout   time.Duration
		Retries   int
	}

	Scheduler struct {
		TemplatesFile    string
		LookaheadDays    int // 0 = per-template
		RetentionMinutes int // 0 = per-template
	}

	Alerting struct {
		CleaningMarker  string
		SLABreachMarker string
		MQTTAlertTopic  string
		AlertStream     string // Redis stream for alerts, empty = disabled
	}

	// 床位事件：Redis Streams 消费者 + MQTT 订阅
	Events struct {
		Stream        string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int
		MQTTTopic     string
	}

	Dashboard struct {
		RemoteTimeout time.Duration
		SettingsKey   string
		ViewCacheKey  string
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "bedstatus"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")
	cfg.DatabaseEnabled = getBool("DB_ENABLED", true)

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.RedisEnabled = getBool("REDIS_ENABLED", true)

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "bedstatus-dashboard"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTTEnabled = getBool("MQTT_ENABLED", false)

	cfg.Ingest.CSVURL = getEnv("CSV_URL", "")
	cfg.Ingest.XLSXPath = getEnv("XLSX_PATH", "")
	cfg.Ingest.XLSXSheet = getEnv("XLSX_SHEET", "")
	cfg.Ingest.Timeout = getSeconds("INGEST_TIMEOUT", 10)
	cfg.Ingest.Retries = getInt("INGEST_RETRIES", 2)

	cfg.Scheduler.TemplatesFile = getEnv("TEMPLATES_FILE", "")
	cfg.Scheduler.LookaheadDays = getInt("SCHEDULER_LOOKAHEAD_DAYS", 0)
	cfg.Scheduler.RetentionMinutes = getInt("SCHEDULER_RETENTION_MINUTES", 0)

	cfg.Alerting.CleaningMarker = getEnv("CLEANING_MARKER", "❌")
	cfg.Alerting.SLABreachMarker = getEnv("SLA_BREACH_MARKER", "⚠")
	cfg.Alerting.MQTTAlertTopic = getEnv("MQTT_ALERT_TOPIC", "bedstatus/alerts")
	cfg.Alerting.AlertStream = getEnv("ALERT_STREAM", "bedstatus:alerts")

	cfg.Events.Stream = getEnv("BED_EVENT_STREAM", "bedstatus:events")
	cfg.Events.ConsumerGroup = getEnv("BED_EVENT_CONSUMER_GROUP", "bedstatus-dashboard-group")
	cfg.Events.ConsumerName = getEnv("BED_EVENT_CONSUMER_NAME", "bedstatus-dashboard-1")
	cfg.Events.BatchSize = getInt("BED_EVENT_BATCH_SIZE", 10)
	cfg.Events.MQTTTopic = getEnv("MQTT_BED_EVENT_TOPIC", "bedstatus/events/#")

	cfg.Dashboard.RemoteTimeout = getSeconds("REMOTE_TIMEOUT", 5)
	cfg.Dashboard.SettingsKey = getEnv("SETTINGS_KEY", "bedstatus:settings")
	cfg.Dashboard.ViewCacheKey = getEnv("VIEW_CACHE_KEY", "bedstatus:dashboard:view")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getSeconds 整数秒
func getSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getInt(key, defaultSeconds)) * time.Second
}
