package mangagraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/mangagraph/pkg/alert"
	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/driver"
	"github.com/soundprediction/mangagraph/pkg/embedder"
	"github.com/soundprediction/mangagraph/pkg/telemetry"
)

// OpenStore creates the graph store selected by cfg.Database, wrapped in a
// circuit breaker when cfg.CircuitBreaker is enabled.
func OpenStore(cfg *config.Config, logger *slog.Logger) (driver.GraphStore, error) {
	var store driver.GraphStore
	switch cfg.Database.Driver {
	case config.DriverNeo4j:
		s, err := driver.NewNeo4jStore(driver.Neo4jConfig{
			URI:                   cfg.Database.URI,
			Username:              cfg.Database.Username,
			Password:              cfg.Database.Password,
			Database:              cfg.Database.Database,
			MaxConnectionPoolSize: cfg.Database.MaxConnectionPoolSize,
			ConnectionTimeout:     time.Duration(cfg.Database.ConnectionTimeout) * time.Second,
			QueryTimeout:          time.Duration(cfg.Database.QueryTimeout) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = s
	case config.DriverMemory:
		fixture := &driver.Fixture{}
		if cfg.Database.FixturePath != "" {
			var err error
			if fixture, err = driver.LoadMemoryFixture(cfg.Database.FixturePath); err != nil {
				return nil, err
			}
		}
		s, err := driver.NewMemoryStore(fixture, logger)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.CircuitBreaker.Enabled {
		store = driver.NewBreakerStore(store, cfg.CircuitBreaker, alert.New(cfg.Alert), logger)
	}
	return store, nil
}

// NewEmbedder creates the embedding client selected by cfg, or nil when
// embeddings are disabled.
func NewEmbedder(cfg config.EmbeddingConfig) (embedder.Client, error) {
	if cfg.Provider != "openai" || (cfg.APIKey == "" && cfg.BaseURL == "") {
		return nil, nil
	}
	var client embedder.Client = embedder.NewOpenAIEmbedder(cfg.APIKey, embedder.Config{
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		Dimensions: cfg.Dimensions,
	})
	if cfg.CacheSize > 0 {
		cached, err := embedder.NewCachedClient(client, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		client = cached
	}
	return client, nil
}

// Open builds a Client and all its collaborators from cfg.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	opts := &Options{}
	cleanup := func() { _ = store.Close(ctx) }
	if opts.Embedder, err = NewEmbedder(cfg.Embedding); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if opts.Cache, err = NewGraphCache(cfg.Cache); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}
	if cfg.Telemetry.SearchEvents && cfg.Telemetry.ParquetPath != "" {
		if opts.Events, err = telemetry.NewSearchEventWriter(cfg.Telemetry.ParquetPath, cfg.Telemetry.BatchSize); err != nil {
			opts.Cache.Close()
			cleanup()
			return nil, err
		}
	}

	clientConfig := &Config{
		Search:          cfg.Search,
		Related:         cfg.Related,
		Grouping:        cfg.Grouping,
		VectorProperty:  cfg.Embedding.Property,
		VectorThreshold: cfg.Embedding.Threshold,
	}
	logger.Info("Opened graph store", "driver", cfg.Database.Driver, "breaker", cfg.CircuitBreaker.Enabled, "embeddings", opts.Embedder != nil)
	return NewClient(store, clientConfig, opts, logger)
}
