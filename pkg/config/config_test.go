package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ANALYTICS_SINK", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 30, cfg.Engine.PopularityWindowDays)
	assert.Equal(t, 5, cfg.Engine.DefaultLimit)
	assert.Equal(t, 6*time.Hour, cfg.Engine.PrecomputeInterval)
	assert.Empty(t, cfg.Engine.Shops)
}

func TestLoad_ParsesLists(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ANALYTICS_SINK", "redis")
	t.Setenv("ENGINE_SHOPS", " a.myshopify.com, ,b.myshopify.com ")
	t.Setenv("PRECOMPUTE_WORKERS", "0")
	t.Setenv("POPULARITY_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a.myshopify.com", "b.myshopify.com"}, cfg.Engine.Shops)
	assert.Equal(t, 1, cfg.Engine.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Engine.PopularityInterval)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("postgres without password", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DB_PASSWORD", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres sink on memory store", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("ANALYTICS_SINK", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad redis db", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("REDIS_DB", "zero")
		_, err := Load()
		assert.Error(t, err)
	})
}
