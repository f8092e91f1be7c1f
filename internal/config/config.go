package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/common/config"
)

// Config 医生门户服务配置
type Config struct {
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}

	Backend  config.BackendConfig
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// DatabaseEnabled 是否写入审计日志
	DatabaseEnabled bool
	// MQTTEnabled 是否订阅病例事件
	MQTTEnabled bool
	// CaseEventTopic 病例事件主题
	CaseEventTopic string

	Portal struct {
		SLATarget            time.Duration
		ChatClaimPolicy      caselogic.ChatClaimPolicy
		EditRenewOnUpdate    bool
		UnreadPollInterval   time.Duration
		MessagePollInterval  time.Duration
		MessagePageSize      int
		SessionRefreshBefore time.Duration
		SessionKeyPrefix     string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.ShutdownTimeout = parseDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	// 后端 REST
	cfg.Backend = config.BackendConfig{
		BaseURL:    "http://localhost:5000/api",
		Timeout:    30 * time.Second,
		RetryCount: 2,
	}
	cfg.Backend.LoadFromEnv("BACKEND")

	// 审计数据库（可选）
	cfg.DatabaseEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "doctor_portal",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  2,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	// 病例事件（可选）
	cfg.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT = config.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "doctor-portal",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.CaseEventTopic = getEnv("MQTT_CASE_EVENT_TOPIC", "doctor/+/cases")

	// 门户行为
	cfg.Portal.SLATarget = time.Duration(parseInt("SLA_TARGET_MINUTES", 30)) * time.Minute
	cfg.Portal.ChatClaimPolicy = caselogic.ParseChatClaimPolicy(strings.ToLower(getEnv("CHAT_CLAIM_POLICY", "prompt")))
	cfg.Portal.EditRenewOnUpdate = getEnv("EDIT_WINDOW_RENEW_ON_UPDATE", "false") == "true"
	cfg.Portal.UnreadPollInterval = parseDuration("UNREAD_POLL_INTERVAL", 30*time.Second)
	cfg.Portal.MessagePollInterval = parseDuration("MESSAGE_POLL_INTERVAL", 60*time.Second)
	cfg.Portal.MessagePageSize = parseInt("MESSAGE_PAGE_SIZE", 50)
	cfg.Portal.SessionRefreshBefore = parseDuration("SESSION_REFRESH_BEFORE", 10*time.Minute)
	cfg.Portal.SessionKeyPrefix = getEnv("SESSION_KEY_PREFIX", "doctor-portal:session:")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.Portal.SLATarget <= 0 {
		return fmt.Errorf("SLA_TARGET_MINUTES must be positive")
	}
	if c.Portal.UnreadPollInterval <= 0 {
		return fmt.Errorf("UNREAD_POLL_INTERVAL must be positive")
	}
	if c.Portal.MessagePollInterval <= 0 {
		return fmt.Errorf("MESSAGE_POLL_INTERVAL must be positive")
	}
	if c.Portal.SessionRefreshBefore < 0 {
		return fmt.Errorf("SESSION_REFRESH_BEFORE must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}
