// Package main implements the ecomsim binary: generate a synthetic
// e-commerce dataset, load it into SQLite, materialize the analytics tables,
// export BI views and publish the artifacts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// cli carries the resolved configuration into subcommands.
type cli struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:   "ecomsim",
		Short: "Synthetic e-commerce behavioral dataset generator",
		Long: `ecomsim generates a reproducible e-commerce dataset (users, sessions,
clickstream events and orders) with controlled data-quality noise, then loads
it into a SQLite warehouse for sessionization, funnel and cohort analysis.

Configuration is layered: defaults, --config file, .env, ECOMSIM_* environment
variables, then command line flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help":
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.logger = logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML or JSON)")
	flags.String("env-file", ".env", "Dotenv file applied before ECOMSIM_* variables")
	flags.String("data-dir", "", "Base directory for all generated artifacts")
	flags.String("log-level", "", "Log level: info, debug, trace")
	flags.Uint64("seed", 0, "Random seed")
	flags.Int("users", 0, "Population size")
	flags.Int("workers", 0, "Worker count; above 1 switches to sharded generation")
	flags.Bool("compress", false, "Write raw files as Snappy-framed .csv.sz")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(app),
		newLoadCmd(app),
		newMaterializeCmd(app),
		newExportCmd(app),
		newPublishCmd(app),
		newReportCmd(app),
		newRunCmd(app),
	)
	return rootCmd
}

// loadConfig applies file, dotenv, environment and flags, highest last.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if envFile, _ := flags.GetString("env-file"); envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	config.LoadFromEnv(cfg)

	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("users") {
		cfg.Population.Users, _ = flags.GetInt("users")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("compress") {
		cfg.Compress, _ = flags.GetBool("compress")
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ecomsim version %s (commit: %s)\n", version, commit)
		},
	}
}
