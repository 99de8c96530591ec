// Package main provides the main entry point for the learning coach admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"coachapp/cmd/adm/commands"
	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/di"
	"coachapp/internal/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

// newRootCommand wires every subcommand onto deps
func newRootCommand(deps *commands.Deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Learning coach administration tool",
		Long: `Learning coach administration tool

Manage the topic catalog, learner profiles, progress and weekly roadmaps.
Output is a table on a terminal and JSON when piped; --json forces JSON.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&deps.JSON, "json", false, "Always print JSON")

	rootCmd.AddCommand(commands.CatalogCommands(deps))
	rootCmd.AddCommand(commands.UserCommands(deps))
	rootCmd.AddCommand(commands.ProgressCommands(deps))
	rootCmd.AddCommand(commands.RoadmapCommands(deps))
	rootCmd.AddCommand(commands.DatabaseCommands(deps))
	rootCmd.AddCommand(commands.EmailCommands(deps))
	return rootCmd
}

// wireServices copies the container's services into deps
func wireServices(container di.ServiceContainerInterface, deps *commands.Deps) (err error) {
	if deps.Users, err = container.GetUserService(); err != nil {
		return err
	}
	if deps.Catalog, err = container.GetCatalogService(); err != nil {
		return err
	}
	if deps.Progress, err = container.GetProgressService(); err != nil {
		return err
	}
	if deps.Roadmaps, err = container.GetRoadmapService(); err != nil {
		return err
	}
	deps.Mailer, err = container.GetEmailService()
	return err
}

func main() {
	ctx := context.Background()

	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// No exporters for a short-lived CLI
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	telemetry, err := observability.SetupObservability(&cfg.OpenTelemetry, "coach-admin", zapcore.ErrorLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	logger := telemetry.Logger

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithConfig(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, nil)
		os.Exit(1)
	}

	container := di.NewServiceContainerWithDB(ctx, cfg, logger, db)
	deps := &commands.Deps{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Out:    os.Stdout,
	}
	if err := wireServices(container, deps); err != nil {
		logger.Error(ctx, "Failed to wire services", err, nil)
		os.Exit(1)
	}

	exitCode := 0
	if err := newRootCommand(deps).ExecuteContext(ctx); err != nil {
		exitCode = 1
	}

	_ = container.Shutdown(ctx)
	if err := db.Close(); err != nil {
		logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
	}
	_ = telemetry.Shutdown(ctx)
	os.Exit(exitCode)
}
