package mangagraph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soundprediction/mangagraph/pkg/assembler"
	"github.com/soundprediction/mangagraph/pkg/driver"
	"github.com/soundprediction/mangagraph/pkg/embedder"
	"github.com/soundprediction/mangagraph/pkg/grouping"
	"github.com/soundprediction/mangagraph/pkg/normalize"
	"github.com/soundprediction/mangagraph/pkg/related"
	"github.com/soundprediction/mangagraph/pkg/search"
	"github.com/soundprediction/mangagraph/pkg/telemetry"
)

// Mangagraph is the full client surface used by the HTTP server and the CLI.
type Mangagraph interface {
	GraphFinder
	SimilaritySearcher
	CatalogInspector
	HealthChecker

	Close(ctx context.Context) error
}

// Default request values.
const (
	DefaultLimit           = 20
	DefaultSimilarLimit    = 10
	DefaultVectorThreshold = 0.5
)

// Config holds the tuning of a Client. Zero sections take their package
// defaults.
type Config struct {
	Search   search.Config
	Related  related.Config
	Grouping grouping.Config

	// VectorProperty is searched when a SimilarRequest names none.
	VectorProperty string
	// VectorThreshold is the minimum similarity when a SimilarRequest sets
	// none.
	VectorThreshold float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Search:          search.DefaultConfig(),
		Related:         related.DefaultConfig(),
		Grouping:        grouping.DefaultConfig(),
		VectorProperty:  "embedding_title_ja",
		VectorThreshold: DefaultVectorThreshold,
	}
}

// Options carries the optional collaborators of a Client.
type Options struct {
	// Embedder enables FindSimilarWorks with query text.
	Embedder embedder.Client
	// Cache memoizes graph responses.
	Cache *GraphCache
	// Events records one telemetry event per graph search.
	Events *telemetry.SearchEventWriter
	// Registry is the canonical-name registry. Nil creates a private one.
	Registry *normalize.Registry
}

// Client answers graph queries over a GraphStore. It owns the name
// registry, so display names chosen for one request are reused by later
// ones.
type Client struct {
	store        driver.GraphStore
	embedder     embedder.Client
	orchestrator *search.Orchestrator
	grouper      *grouping.Grouper
	expander     *related.Expander
	assembler    *assembler.Assembler
	normalizer   *normalize.Normalizer
	cache        *GraphCache
	events       *telemetry.SearchEventWriter
	config       *Config
	logger       *slog.Logger
	now          func() time.Time
}

var _ Mangagraph = (*Client)(nil)

// NewClient creates a Client over store.
func NewClient(store driver.GraphStore, config *Config, opts *Options, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, errors.New("graph store is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if opts == nil {
		opts = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = normalize.NewRegistry()
	}
	normalizer := normalize.New(registry)

	return &Client{
		store:        store,
		embedder:     opts.Embedder,
		orchestrator: search.NewOrchestrator(search.DefaultStrategies(store, config.Search), logger),
		grouper:      grouping.NewGrouper(config.Grouping, logger),
		expander:     related.NewExpander(store, related.NewScorer(config.Related, normalizer), logger),
		assembler:    assembler.New(normalizer, logger),
		normalizer:   normalizer,
		cache:        opts.Cache,
		events:       opts.Events,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Registry returns the client's canonical-name registry.
func (c *Client) Registry() *normalize.Registry {
	return c.normalizer.Registry()
}

// VerifyConnectivity checks that the graph store can be reached.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.store.VerifyConnectivity(ctx)
}

// Close flushes telemetry, releases the cache and closes the store.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.events != nil {
		errs = append(errs, c.events.Close())
	}
	if c.cache != nil {
		c.cache.Close()
	}
	errs = append(errs, c.store.Close(ctx))
	return errors.Join(errs...)
}
