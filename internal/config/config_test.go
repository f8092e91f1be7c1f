package config

import (
	"testing"
	"time"

	"doctor-portal/common/caselogic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:5000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Portal.SLATarget)
	assert.Equal(t, caselogic.ChatClaimPrompt, cfg.Portal.ChatClaimPolicy)
	assert.False(t, cfg.Portal.EditRenewOnUpdate)
	assert.Equal(t, 30*time.Second, cfg.Portal.UnreadPollInterval)
	assert.Equal(t, 60*time.Second, cfg.Portal.MessagePollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Portal.SessionRefreshBefore)
	assert.False(t, cfg.DatabaseEnabled)
	assert.False(t, cfg.MQTTEnabled)
	assert.Equal(t, "doctor/+/cases", cfg.CaseEventTopic)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.test")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("BACKEND_RETRY_COUNT", "0")
	t.Setenv("SLA_TARGET_MINUTES", "45")
	t.Setenv("CHAT_CLAIM_POLICY", "AUTO")
	t.Setenv("EDIT_WINDOW_RENEW_ON_UPDATE", "true")
	t.Setenv("UNREAD_POLL_INTERVAL", "15s")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_NAME", "audit")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "https://api.example.test", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 0, cfg.Backend.RetryCount)
	assert.Equal(t, 45*time.Minute, cfg.Portal.SLATarget)
	assert.Equal(t, caselogic.ChatClaimAuto, cfg.Portal.ChatClaimPolicy)
	assert.True(t, cfg.Portal.EditRenewOnUpdate)
	assert.Equal(t, 15*time.Second, cfg.Portal.UnreadPollInterval)
	assert.True(t, cfg.DatabaseEnabled)
	assert.Equal(t, "audit", cfg.Database.Database)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unknown claim policy falls back to prompt", func(t *testing.T) {
		t.Setenv("CHAT_CLAIM_POLICY", "sometimes")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, caselogic.ChatClaimPrompt, cfg.Portal.ChatClaimPolicy)
	})

	t.Run("unparsable interval keeps default", func(t *testing.T) {
		t.Setenv("UNREAD_POLL_INTERVAL", "soon")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Portal.UnreadPollInterval)
	})

	t.Run("non-positive sla target", func(t *testing.T) {
		t.Setenv("SLA_TARGET_MINUTES", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative poll interval", func(t *testing.T) {
		t.Setenv("MESSAGE_POLL_INTERVAL", "-1s")
		_, err := Load()
		assert.Error(t, err)
	})
}
