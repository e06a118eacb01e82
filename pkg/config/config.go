package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/soundprediction/mangagraph/pkg/grouping"
	"github.com/soundprediction/mangagraph/pkg/related"
	"github.com/soundprediction/mangagraph/pkg/search"
)

// Supported graph store drivers.
const (
	DriverNeo4j  = "neo4j"
	DriverMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Search cascade configuration
	Search search.Config `mapstructure:"search"`

	// Related-work discovery configuration
	Related related.Config `mapstructure:"related"`

	// Series grouping configuration
	Grouping grouping.Config `mapstructure:"grouping"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Graph response cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath is the directory error logs and search events are written
	// to. Empty disables Parquet telemetry.
	ParquetPath string `mapstructure:"parquet_path"`
	// DbURL is a MySQL (or Dolt) DSN error logs are also written to.
	DbURL string `mapstructure:"db_url"`
	// SearchEvents records one event per cascade search.
	SearchEvents bool `mapstructure:"search_events"`
	// BatchSize is the number of records buffered before a file is written.
	BatchSize int `mapstructure:"batch_size"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
	// AllowOrigins lists the CORS origins. Empty allows all.
	AllowOrigins []string `mapstructure:"allow_origins"`
	// Gzip compresses responses when the client accepts it.
	Gzip bool `mapstructure:"gzip"`
	// RequestTimeout bounds each API request, in seconds. Zero disables it.
	RequestTimeout int `mapstructure:"request_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, memory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// FixturePath is the YAML dataset loaded by the memory driver.
	FixturePath string `mapstructure:"fixture_path"`
	// MaxConnectionPoolSize caps the Neo4j connection pool.
	MaxConnectionPoolSize int `mapstructure:"max_connection_pool_size"`
	// ConnectionTimeout bounds connection acquisition, in seconds.
	ConnectionTimeout int `mapstructure:"connection_timeout"`
	// QueryTimeout bounds each read transaction, in seconds.
	QueryTimeout int `mapstructure:"query_timeout"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, none
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	// Dimensions truncates returned vectors to the index dimensionality.
	Dimensions int `mapstructure:"dimensions"`
	// CacheSize is the number of query embeddings kept in memory.
	CacheSize int `mapstructure:"cache_size"`
	// Property is the vector property searched when a request names none.
	Property string `mapstructure:"property"`
	// Threshold is the default minimum similarity.
	Threshold float64 `mapstructure:"threshold"`
}

// CacheConfig holds configuration for the graph response cache
type CacheConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	MaxCost int64 `mapstructure:"max_cost"` // approximate bytes
	TTL     int   `mapstructure:"ttl"`      // in seconds
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the default configuration without reading any file or
// environment variable.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "release", Gzip: true, RequestTimeout: 30},
		Database: DatabaseConfig{Driver: DriverNeo4j, URI: "bolt://localhost:7687", Username: "neo4j", Database: "neo4j", MaxConnectionPoolSize: 50, ConnectionTimeout: 10, QueryTimeout: 15},
		Search:   search.DefaultConfig(),
		Related:  related.DefaultConfig(),
		Grouping: grouping.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 256,
			CacheSize:  1024,
			Property:   "embedding_title_ja",
			Threshold:  0.5,
		},
		Cache:          CacheConfig{Enabled: false, MaxCost: 64 << 20, TTL: 300},
		CircuitBreaker: CircuitBreakerConfig{Enabled: true, MaxRequests: 3, Interval: 60, Timeout: 30, ReadyToTripRatio: 0.6},
		Telemetry:      TelemetryConfig{BatchSize: 100},
	}
}

// setDefaults sets default configuration values
func setDefaults() {
	d := Default()

	// Log defaults
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)

	// Server defaults
	viper.SetDefault("server.host", d.Server.Host)
	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.mode", d.Server.Mode)
	viper.SetDefault("server.gzip", d.Server.Gzip)
	viper.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	// Database defaults
	viper.SetDefault("database.driver", d.Database.Driver)
	viper.SetDefault("database.uri", d.Database.URI)
	viper.SetDefault("database.username", d.Database.Username)
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", d.Database.Database)
	viper.SetDefault("database.max_connection_pool_size", d.Database.MaxConnectionPoolSize)
	viper.SetDefault("database.connection_timeout", d.Database.ConnectionTimeout)
	viper.SetDefault("database.query_timeout", d.Database.QueryTimeout)

	// Search defaults
	viper.SetDefault("search.fulltext_index", d.Search.FulltextIndex)
	viper.SetDefault("search.candidate_limit", d.Search.CandidateLimit)
	viper.SetDefault("search.rank_threshold", d.Search.RankThreshold)
	viper.SetDefault("search.default_limit", d.Search.DefaultLimit)

	// Related defaults
	viper.SetDefault("related.same_author_limit", d.Related.SameAuthorLimit)
	viper.SetDefault("related.same_magazine_limit", d.Related.SameMagazineLimit)
	viper.SetDefault("related.same_publisher_limit", d.Related.SamePublisherLimit)
	viper.SetDefault("related.same_publisher_year_window", d.Related.YearWindow)
	viper.SetDefault("related.candidate_pool", d.Related.CandidatePool)

	viper.SetDefault("grouping.prefix_tolerance", d.Grouping.PrefixTolerance)

	// Embedding defaults
	viper.SetDefault("embedding.provider", d.Embedding.Provider)
	viper.SetDefault("embedding.model", d.Embedding.Model)
	viper.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	viper.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
	viper.SetDefault("embedding.property", d.Embedding.Property)
	viper.SetDefault("embedding.threshold", d.Embedding.Threshold)

	viper.SetDefault("cache.enabled", d.Cache.Enabled)
	viper.SetDefault("cache.max_cost", d.Cache.MaxCost)
	viper.SetDefault("cache.ttl", d.Cache.TTL)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", d.CircuitBreaker.Enabled)
	viper.SetDefault("circuit_breaker.max_requests", d.CircuitBreaker.MaxRequests)
	viper.SetDefault("circuit_breaker.interval", d.CircuitBreaker.Interval)
	viper.SetDefault("circuit_breaker.timeout", d.CircuitBreaker.Timeout)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", d.CircuitBreaker.ReadyToTripRatio)

	// Telemetry defaults
	viper.SetDefault("telemetry.batch_size", d.Telemetry.BatchSize)
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.mangagraph/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables. The
// MANGA_ANIME_NEO4J_* variables take precedence over the generic NEO4J_*
// ones.
func overrideWithEnv(config *Config) {
	// Database credentials
	for _, prefix := range []string{"NEO4J_", "MANGA_ANIME_NEO4J_"} {
		if uri := os.Getenv(prefix + "URI"); uri != "" {
			config.Database.URI = uri
		}
		if user := os.Getenv(prefix + "USER"); user != "" {
			config.Database.Username = user
		}
		if pass := os.Getenv(prefix + "PASSWORD"); pass != "" {
			config.Database.Password = pass
		}
	}
	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}

	// Search tuning
	if index := os.Getenv("MANGA_ANIME_FULLTEXT_INDEX"); index != "" {
		config.Search.FulltextIndex = index
	}
	if n, ok := envInt("MANGA_ANIME_FULLTEXT_CANDIDATE_LIMIT"); ok {
		config.Search.CandidateLimit = n
	}
	if v := os.Getenv("MANGA_ANIME_RANK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Search.RankThreshold = f
		}
	}

	// Related tuning
	if n, ok := envInt("MANGA_ANIME_SAME_PUBLISHER_YEAR_WINDOW"); ok {
		config.Related.YearWindow = n
	}
	if n, ok := envInt("MANGA_ANIME_SAME_PUBLISHER_LIMIT"); ok {
		config.Related.SamePublisherLimit = n
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port, ok := envInt("SERVER_PORT"); ok {
		config.Server.Port = port
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverNeo4j, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	if c.Search.RankThreshold < 0 || c.Search.RankThreshold > 1 {
		errs = append(errs, fmt.Errorf("search.rank_threshold: %v is outside [0, 1]", c.Search.RankThreshold))
	}
	if c.Search.CandidateLimit < 0 || c.Search.DefaultLimit < 0 {
		errs = append(errs, errors.New("search: limits must not be negative"))
	}
	if c.Related.SameAuthorLimit < 0 || c.Related.SameMagazineLimit < 0 ||
		c.Related.SamePublisherLimit < 0 || c.Related.CandidatePool < 0 || c.Related.YearWindow < 0 {
		errs = append(errs, errors.New("related: limits and window must not be negative"))
	}
	if c.Grouping.PrefixTolerance < 0 {
		errs = append(errs, errors.New("grouping.prefix_tolerance must not be negative"))
	}
	if c.Embedding.Threshold < 0 || c.Embedding.Threshold > 1 {
		errs = append(errs, fmt.Errorf("embedding.threshold: %v is outside [0, 1]", c.Embedding.Threshold))
	}
	return errors.Join(errs...)
}
