package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/roots-core/internal/infrastructure/config"
	"github.com/ersonp/roots-core/internal/infrastructure/observability"
	"github.com/ersonp/roots-core/internal/infrastructure/store/resilient"
)

func TestOpenBackend_SQLitePerTree(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.Default()

	store, err := openBackend(context.Background(), cfg, tmpDir, "Byron Family", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.EnsureSchema(context.Background()))

	_, err = os.Stat(config.SQLitePathForTree(tmpDir, "Byron Family"))
	assert.NoError(t, err)
}

func TestOpenBackend_SQLiteSharedPath(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.Default()
	cfg.SQLite.Path = filepath.Join(tmpDir, "shared.db")

	store, err := openBackend(context.Background(), cfg, tmpDir, "byron", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(config.TreeDir(tmpDir, "byron"))
	assert.True(t, os.IsNotExist(err), "per-tree directory should not be created")
}

func TestOpenBackend_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "etcd"

	_, err := openBackend(context.Background(), cfg, t.TempDir(), "byron", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestNewStoreOpener_WrapsInBreaker(t *testing.T) {
	cfg := config.Default()
	open := newStoreOpener(zap.NewNop(), observability.NewCollector("roots_test"))

	store, err := open(context.Background(), cfg, t.TempDir(), "byron")
	require.NoError(t, err)
	defer store.Close()

	wrapped, ok := store.(*resilient.Store)
	require.True(t, ok)
	assert.Equal(t, "closed", wrapped.State())
}

func TestActorName(t *testing.T) {
	t.Cleanup(func() { globalUser = "" })

	tests := []struct {
		name     string
		flag     string
		cfgUser  string
		expected string
	}{
		{"flag wins", "ada", "george", "ada"},
		{"config user", "", "george", "george"},
		{"default", "", "", DefaultActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalUser = tt.flag
			cfg := config.Default()
			cfg.User = tt.cfgUser
			assert.Equal(t, tt.expected, actorName(cfg))
		})
	}
}

func TestFlushMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roots.prom")
	metricsFile = path
	t.Cleanup(func() { metricsFile = "" })

	metrics := observability.NewCollector("roots_test")
	metrics.ObserveStore(config.BackendSQLite, "load_all", observability.OutcomeSuccess, 0)

	flushMetrics(metrics, zap.NewNop())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "roots_test_store_operations_total")
}
