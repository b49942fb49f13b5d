// Riskdesk - decision simulation over scored cross-border transactions
package main

import (
	"context"
	"os"

	"github.com/nmehra/riskdesk/internal/config"
	"github.com/nmehra/riskdesk/internal/logging"
	"github.com/nmehra/riskdesk/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Bootstrap logger until config tells us the real level and format
	logger := logging.New("info", "text")

	logger.Info("starting riskdesk",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat)

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"simulation_shards", cfg.SimulationShards,
		"data_dir", cfg.DataDir,
	)

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
