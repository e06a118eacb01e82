package mangagraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/logger"
	"github.com/soundprediction/mangagraph/pkg/telemetry"
)

var (
	cfgFile      string
	outputFormat string
	rootCmd      = &cobra.Command{
		Use:   "mangagraph",
		Short: "Mangagraph: manga catalog graph search",
		Long: `Mangagraph searches a manga catalog stored in a property graph and returns
matching works together with their authors, magazines and publishers, plus
works related by author, magazine era or publisher.

It runs as an HTTP server (serve) or answers single queries from the
command line (search, similar, work, stats).`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mangagraph.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db-driver", config.DriverNeo4j, "graph store driver (neo4j, memory)")
	rootCmd.PersistentFlags().String("db-uri", "", "Neo4j URI")
	rootCmd.PersistentFlags().String("fixture", "", "YAML catalog fixture for the memory driver")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "json", "output format (json, yaml)")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("database.fixture_path", rootCmd.PersistentFlags().Lookup("fixture"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".mangagraph" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mangagraph")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and applies the root flags that are
// not bound to viper.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}
	return cfg, nil
}

// newLogger builds the process logger. ERROR records are also written to
// Parquet files and to the telemetry database when those are configured.
// The returned function flushes and closes the telemetry handlers.
func newLogger(ctx context.Context, cfg *config.Config) (*slog.Logger, func() error, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	handler := logger.NewLogger(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
		Color:  isTerminal(os.Stderr),
	}).Handler()

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	if path := cfg.Telemetry.ParquetPath; path != "" {
		ph, err := telemetry.NewParquetHandler(handler, path, cfg.Telemetry.BatchSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize error tracking: %v\n", err)
		} else {
			handler = ph
			closers = append(closers, ph.Close)
		}
	}
	if dsn := cfg.Telemetry.DbURL; dsn != "" {
		sh, err := telemetry.OpenSQLHandler(ctx, handler, dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize telemetry database: %v\n", err)
		} else {
			handler = sh
			closers = append(closers, sh.Close)
		}
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, closeAll, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
