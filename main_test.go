package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 6060, cfg.AdminPort)
	assert.True(t, cfg.PriceFloors.Enabled)
	assert.NotEmpty(t, cfg.AccountDefaultsJSON())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PBS_PORT", "8100")
	t.Setenv("PBS_ACCOUNT_DEFAULTS_PRICE_FLOORS_ENFORCE_FLOORS_RATE", "40")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8100, cfg.Port)
	assert.Equal(t, 40, cfg.AccountDefaults.PriceFloors.EnforceFloorsRate)
}
