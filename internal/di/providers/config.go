// Package providers contains dependency injection providers for the SnipStash server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/snipstash/snipstash-server/internal/config"
	"github.com/snipstash/snipstash-server/internal/logger"
)

// ProvideConfig provides the application configuration parsed from the
// process arguments.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File: logger.FileConfig{
			Path:       cfg.Logger.File,
			MaxSizeMB:  cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAgeDays: cfg.Logger.MaxAgeDays,
			Compress:   true,
		},
	})

	log.Info("Starting SnipStash Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"database_path", cfg.Storage.DatabasePath,
	)

	return log, nil
}
