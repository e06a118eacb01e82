package mangagraph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Mangagraph HTTP server",
	Long: `Start the Mangagraph HTTP server to provide REST API access to the catalog graph.

The server provides endpoints for:
- Graph search with related works
- Embedding similarity search
- Single work graphs and catalog statistics
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "Server host")
	serveCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serveCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")
	serveCmd.Flags().Bool("gzip", true, "Compress responses")
	serveCmd.Flags().StringSlice("allow-origin", nil, "CORS origins (default all)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideServerFlags(cmd, cfg)
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	logger, closeLogger, err := newLogger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLogger() }()

	client, err := mangagraph.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mangagraph: %w", err)
	}
	defer closeClient(client, logger)

	srv := server.New(cfg, client, logger)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("Received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}

func overrideServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if cmd.Flags().Changed("gzip") {
		cfg.Server.Gzip, _ = cmd.Flags().GetBool("gzip")
	}
	if cmd.Flags().Changed("allow-origin") {
		cfg.Server.AllowOrigins, _ = cmd.Flags().GetStringSlice("allow-origin")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Database.Driver == config.DriverNeo4j && cfg.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}
	return nil
}
