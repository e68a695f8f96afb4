package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("REFERRAL_L1_PERCENTAGE", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.URL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.True(t, cfg.Referral.DefaultLevel1Percentage.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.Referral.DefaultLevel2Percentage.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "@hourly", cfg.Scheduler.ProfitAccrualSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "1h")
	t.Setenv("REFERRAL_L1_PERCENTAGE", "7.5")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "7.5", cfg.Referral.DefaultLevel1Percentage.String())
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestValidateCore(t *testing.T) {
	cfg := Load()
	cfg.Database.URL = ""
	cfg.JWT.Secret = "change-this-secret"
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.ProfitAccrualSchedule = "every now and then"
	cfg.Admin.Email = "admin@moneypro.com"
	cfg.Admin.Password = ""

	err := cfg.ValidateCore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "PROFIT_ACCRUAL_SCHEDULE")
	assert.Contains(t, err.Error(), "ADMIN_EMAIL/ADMIN_PASSWORD")

	cfg.Database.URL = "postgres://localhost/moneypro"
	cfg.JWT.Secret = "s3cret"
	cfg.Scheduler.ProfitAccrualSchedule = "*/15 * * * *"
	cfg.Admin.Password = "pw"
	assert.NoError(t, cfg.ValidateCore())
}
