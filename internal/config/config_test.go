package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *Config {
	return &Config{
		Port:                     "8460",
		Env:                      "development",
		JWTSecret:                "dev-secret-change-in-production",
		DBPassword:               "orbit",
		DBSSLMode:                "disable",
		DBConnMaxLifetimeMinutes: 5,
	}
}

func TestValidateDevelopmentDefaults(t *testing.T) {
	assert.NoError(t, devConfig().Validate())
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := devConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = devConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = devConfig()
	cfg.DBConnMaxLifetimeMinutes = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionRejectsDevDefaults(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "JWT_SECRET"))

	cfg.JWTSecret = strings.Repeat("s", 32)
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "DB_PASSWORD"))

	cfg.DBPassword = "a-real-password"
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "DB_SSLMODE"))

	cfg.DBSSLMode = "require"
	assert.NoError(t, cfg.Validate())
}

func TestValidateProductionShortSecret(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "prod"
	cfg.JWTSecret = "short"
	cfg.DBPassword = "a-real-password"
	cfg.DBSSLMode = "require"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "32 characters"))
}

func TestIsProduction(t *testing.T) {
	cfg := devConfig()
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.True(t, cfg.IsProduction())

	cfg.Env = "prod"
	assert.True(t, cfg.IsProduction())
}
