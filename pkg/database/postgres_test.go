package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPoolConfig_AppliesDefaults(t *testing.T) {
	poolConfig, err := buildPoolConfig(&Config{URL: "host=localhost dbname=scanmatch_engine"})
	require.NoError(t, err)

	assert.Equal(t, int32(defaultMaxConns), poolConfig.MaxConns)
	assert.Equal(t, defaultConnLifetime, poolConfig.MaxConnLifetime)
	assert.Equal(t, defaultConnIdleTime, poolConfig.MaxConnIdleTime)
}

func TestBuildPoolConfig_HonorsOverrides(t *testing.T) {
	poolConfig, err := buildPoolConfig(&Config{
		URL:             "host=localhost dbname=scanmatch_engine",
		MaxConnections:  10,
		MaxConnLifetime: 15 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, int32(10), poolConfig.MaxConns)
	assert.Equal(t, 15*time.Minute, poolConfig.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, poolConfig.MaxConnIdleTime)
}

func TestBuildPoolConfig_InvalidURL(t *testing.T) {
	_, err := buildPoolConfig(&Config{URL: "://not-a-dsn"})
	require.Error(t, err)
}
