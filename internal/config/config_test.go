package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "987654")
	t.Setenv("TINKOFF_TOKEN", "t.token")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	assert.Equal(t, int64(987654), cfg.TelegramChatID)
	assert.False(t, cfg.SandboxMode)
	assert.False(t, cfg.AutoTrading)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 2, cfg.AIMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.MarketStalenessMax)
	assert.Equal(t, 15*time.Minute, cfg.AnalysisCacheTTL)
	assert.Equal(t, "@every 1h", cfg.AutoManageSchedule)
	assert.Equal(t, 3*time.Minute, cfg.ConfirmationTTL)
	assert.True(t, cfg.MaxPositionFraction.Equal(envDecimal("", "0.10")))
	assert.True(t, cfg.CommissionPct.Equal(envDecimal("", "0.05")))
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TRADING_MODE", "auto")
	t.Setenv("MAX_POSITION_FRACTION", "0.25")
	t.Setenv("AI_TIMEOUT_SEC", "10")
	t.Setenv("AUTO_MANAGE_SCHEDULE", "0 10 * * 1-5")

	cfg := Load()
	assert.True(t, cfg.AutoTrading)
	assert.True(t, cfg.MaxPositionFraction.Equal(envDecimal("", "0.25")))
	assert.Equal(t, 10*time.Second, cfg.AITimeout)
	assert.Equal(t, "0 10 * * 1-5", cfg.AutoManageSchedule)
}

func TestSandboxTokenSelection(t *testing.T) {
	setRequired(t)
	t.Setenv("TINKOFF_SANDBOX", "true")
	t.Setenv("TINKOFF_TOKEN_SANDBOX", "t.sandbox")

	cfg := Load()
	require.True(t, cfg.SandboxMode)
	assert.Equal(t, "t.sandbox", cfg.TinkoffToken)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "17")
	t.Setenv("X_INT_BAD", "seventeen")
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_DEC", "0.333")

	assert.Equal(t, 17, envInt("X_INT", 5))
	assert.Equal(t, 5, envInt("X_INT_BAD", 5))
	assert.Equal(t, 5, envInt("X_MISSING", 5))
	assert.True(t, envBool("X_BOOL", false))
	assert.False(t, envBool("X_MISSING", false))
	assert.Equal(t, "0.333", envDecimal("X_DEC", "1").String())
	assert.Equal(t, "1", envDecimal("X_MISSING", "1").String())
}
