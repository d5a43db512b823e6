package main

import (
	"log/slog"

	"github.com/hugh/taskboard/internal/database"
	"github.com/hugh/taskboard/pkg/config"
	"github.com/hugh/taskboard/pkg/util"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Maintenance commands for the taskboard database",
	Long: `taskctl applies the schema, seeds roles and the default workflow,
creates administrator accounts and runs reminder scans by hand.

Connection settings come from the same environment variables the server reads.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(remindCmd)
}

// connect loads config and opens the database. The caller closes it.
func connect() (*gorm.DB, *config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := util.NewLogger(cfg.Server.Env)
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return db, cfg, logger, nil
}
