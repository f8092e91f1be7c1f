package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置（审计日志）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis配置（会话与未读数缓存）
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（病例事件订阅）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// BackendConfig 远程病例后端（REST）配置
type BackendConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	DeviceFingerprint string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量加载配置，未设置的字段保持原值
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	c.Host = envOr(prefix+"_HOST", c.Host)
	c.Port = envInt(prefix+"_PORT", c.Port)
	c.User = envOr(prefix+"_USER", c.User)
	c.Password = envOr(prefix+"_PASSWORD", c.Password)
	c.Database = envOr(prefix+"_NAME", c.Database)
	c.SSLMode = envOr(prefix+"_SSLMODE", c.SSLMode)
	c.MaxConns = envInt(prefix+"_MAX_CONNS", c.MaxConns)
	c.MaxIdle = envInt(prefix+"_MAX_IDLE", c.MaxIdle)
}

// LoadFromEnv 从环境变量加载Redis配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	c.Addr = envOr(prefix+"_ADDR", c.Addr)
	c.Password = envOr(prefix+"_PASSWORD", c.Password)
	c.DB = envInt(prefix+"_DB", c.DB)
}

// LoadFromEnv 从环境变量加载MQTT配置
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	c.Broker = envOr(prefix+"_BROKER", c.Broker)
	c.ClientID = envOr(prefix+"_CLIENT_ID", c.ClientID)
	c.Username = envOr(prefix+"_USERNAME", c.Username)
	c.Password = envOr(prefix+"_PASSWORD", c.Password)
	if qos := envInt(prefix+"_QOS", int(c.QoS)); qos >= 0 && qos <= 2 {
		c.QoS = byte(qos)
	}
}

// LoadFromEnv 从环境变量加载后端配置
func (c *BackendConfig) LoadFromEnv(prefix string) {
	c.BaseURL = envOr(prefix+"_BASE_URL", c.BaseURL)
	c.Timeout = envDuration(prefix+"_TIMEOUT", c.Timeout)
	c.RetryCount = envInt(prefix+"_RETRY_COUNT", c.RetryCount)
	c.DeviceFingerprint = envOr(prefix+"_DEVICE_FINGERPRINT", c.DeviceFingerprint)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
