package config_test

import (
	"testing"

	"github.com/Mindburn-Labs/verigate/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VERIGATE_ARTIFACT_ROOT", "")
	t.Setenv("VERIGATE_DB_DRIVER", "")
	t.Setenv("VERIGATE_DB_PATH", "")
	t.Setenv("VERIGATE_MONITOR_ADDR", "")
	t.Setenv("VERIGATE_ADAPTER_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := config.Load()

	assert.Equal(t, "./artifacts", cfg.ArtifactRoot)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./verigate.db", cfg.DBPath)
	assert.Equal(t, ":8090", cfg.MonitorAddr)
	assert.Equal(t, "./adapters", cfg.AdapterDir)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VERIGATE_ARTIFACT_ROOT", "/data/artifacts")
	t.Setenv("VERIGATE_DB_DRIVER", "postgres")
	t.Setenv("VERIGATE_DB_PATH", "postgres://prod:5432/verigate")
	t.Setenv("VERIGATE_MONITOR_ADDR", ":9999")
	t.Setenv("VERIGATE_ADAPTER_DIR", "/opt/adapters")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := config.Load()

	assert.Equal(t, "/data/artifacts", cfg.ArtifactRoot)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://prod:5432/verigate", cfg.DBPath)
	assert.Equal(t, ":9999", cfg.MonitorAddr)
	assert.Equal(t, "/opt/adapters", cfg.AdapterDir)
}

func TestLoad_PostgresDriverDefaultsDSNWhenPathUnset(t *testing.T) {
	t.Setenv("VERIGATE_DB_DRIVER", "postgres")
	t.Setenv("VERIGATE_DB_PATH", "")

	cfg := config.Load()
	assert.Contains(t, cfg.DBPath, "postgres://")
}
