package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tender-server/internal/config"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/logger"
)

var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tenderctl",
	Short: "Operator CLI for the tender marketplace service",
	Long: `tenderctl runs maintenance tasks against the marketplace database
using the same environment configuration as the server.

Examples:
  tenderctl migrate up
  tenderctl migrate down --steps 1
  tenderctl tenders expire
  tenderctl outbox purge --retention 168h
  tenderctl config show`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return loadEnvFile(envFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tendersCmd)
	rootCmd.AddCommand(outboxCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// runtime is the configuration, logger and database handle shared by the subcommands.
type runtime struct {
	cfg *config.Config
	log zerolog.Logger
	db  *gorm.DB
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	db, err := database.Connect(database.Config{
		DSN:      cfg.DatabaseURL,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: log, db: db}, nil
}

func (r *runtime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
