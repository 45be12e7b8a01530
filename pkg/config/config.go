// Package config loads the environment-supplied configuration every
// verigate binary needs: where artifacts live, how to reach the Evidence
// DB, where the Monitor Service binds, and where adapter manifests live.
package config

import "os"

// Config holds process-wide configuration sourced from the environment.
type Config struct {
	// ArtifactRoot is the directory the Artifact Store writes per-task
	// bundles under.
	ArtifactRoot string
	// DBPath is either a SQLite file path or a Postgres DSN, selected by
	// DBDriver.
	DBPath string
	// DBDriver is "sqlite" or "postgres".
	DBDriver string
	// MonitorAddr is the bind address for the Monitor Service.
	MonitorAddr string
	// AdapterDir is the directory the Adapter Runtime scans for manifests.
	AdapterDir string
	// LogLevel controls slog's minimum level ("DEBUG", "INFO", "WARN", "ERROR").
	LogLevel string
}

// Load reads configuration from environment variables, applying the same
// defaults a local single-node deployment would want.
func Load() *Config {
	artifactRoot := os.Getenv("VERIGATE_ARTIFACT_ROOT")
	if artifactRoot == "" {
		artifactRoot = "./artifacts"
	}

	dbDriver := os.Getenv("VERIGATE_DB_DRIVER")
	if dbDriver == "" {
		dbDriver = "sqlite"
	}

	dbPath := os.Getenv("VERIGATE_DB_PATH")
	if dbPath == "" {
		if dbDriver == "postgres" {
			dbPath = "postgres://verigate@localhost:5432/verigate?sslmode=disable"
		} else {
			dbPath = "./verigate.db"
		}
	}

	monitorAddr := os.Getenv("VERIGATE_MONITOR_ADDR")
	if monitorAddr == "" {
		monitorAddr = ":8090"
	}

	adapterDir := os.Getenv("VERIGATE_ADAPTER_DIR")
	if adapterDir == "" {
		adapterDir = "./adapters"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		ArtifactRoot: artifactRoot,
		DBPath:       dbPath,
		DBDriver:     dbDriver,
		MonitorAddr:  monitorAddr,
		AdapterDir:   adapterDir,
		LogLevel:     logLevel,
	}
}
