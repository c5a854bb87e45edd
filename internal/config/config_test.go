package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "ledgerkeeper.db", c.LocalDBPath)
	assert.Equal(t, "newestWins", c.SyncStrategy)
	assert.Equal(t, uint64(3), c.SyncRetryCount)
	assert.Equal(t, time.Second, c.SyncRetryBase)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, "ledgerkeeper-receipts", c.S3Bucket)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "ledgerkeeper.db", cfg.LocalDBPath)
	assert.Equal(t, "newestWins", cfg.SyncStrategy)
}
