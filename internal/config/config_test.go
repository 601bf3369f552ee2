package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 15*time.Second, cfg.OrderTimeout)
	assert.Equal(t, 10*time.Second, cfg.AddressTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http_port: "9090"
storage_backend: redis
redis_addr: cache:6379
order_timeout: 20s
kafka_brokers: [k1:9092]
`)
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("ADDRESS_TIMEOUT", "3s")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, BackendRedis, cfg.StorageBackend)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr, "env wins over file")
	assert.Equal(t, 20*time.Second, cfg.OrderTimeout)
	assert.Equal(t, 3*time.Second, cfg.AddressTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "http_port: [unclosed"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("ORDER_TIMEOUT", "soon")
		_, err := Load("")
		assert.ErrorContains(t, err, "ORDER_TIMEOUT")
	})
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "postgres")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}

func TestLoad_WriteTimeoutCoversSlowestCheckout(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cfg.WriteTimeout, cfg.AddressTimeout+cfg.OrderTimeout)
	assert.GreaterOrEqual(t, cfg.WriteTimeout, cfg.RequestTimeout)
	assert.Equal(t, 35*time.Second, cfg.WriteTimeout)
}

func TestLoad_TimeoutBudgetErrors(t *testing.T) {
	t.Run("write timeout too short", func(t *testing.T) {
		t.Setenv("WRITE_TIMEOUT", "20s")
		_, err := Load("")
		assert.ErrorContains(t, err, "write timeout")
	})
	t.Run("request timeout shorter than checkout", func(t *testing.T) {
		t.Setenv("REQUEST_TIMEOUT", "20s")
		_, err := Load("")
		assert.ErrorContains(t, err, "request timeout")
	})
	t.Run("derived write timeout follows collaborators", func(t *testing.T) {
		t.Setenv("ORDER_TIMEOUT", "40s")
		t.Setenv("REQUEST_TIMEOUT", "60s")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 65*time.Second, cfg.WriteTimeout)
	})
}

func TestLoad_MongoPoolFromFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "mongo_max_pool_size: 20\nmongo_min_pool_size: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(20), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(2), cfg.MongoMinPoolSize)

	_, err = Load(writeFile(t, "mongo_max_pool_size: 1\nmongo_min_pool_size: 5\n"))
	assert.ErrorContains(t, err, "mongo min pool size")
}
