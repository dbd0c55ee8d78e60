package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// LLM proxy configuration
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`

	// Graph extraction configuration
	Graph GraphConfig `mapstructure:"graph" yaml:"graph"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Budget configuration for the daily token caps
	Budget BudgetConfig `mapstructure:"budget" yaml:"budget"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" yaml:"circuit_breaker"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert" yaml:"alert"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Providers overrides per provider id (entrypoint)
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Mode string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release, test
}

// LLMConfig holds the connection to the OpenAI-compatible routing proxy.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"-"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RateLimitRetryDelay is the pause before the single retry of a 429.
	RateLimitRetryDelay time.Duration `mapstructure:"rate_limit_retry_delay" yaml:"rate_limit_retry_delay"`

	// UsagePath is where the token usage ledger is written. Empty disables it.
	UsagePath string `mapstructure:"usage_path" yaml:"usage_path"`
}

// GraphConfig holds the extraction defaults.
type GraphConfig struct {
	SchemaPath    string   `mapstructure:"schema_path" yaml:"schema_path"`
	MinNodes      int      `mapstructure:"min_nodes" yaml:"min_nodes"`
	MinEdges      int      `mapstructure:"min_edges" yaml:"min_edges"`
	AllowEmpty    bool     `mapstructure:"allow_empty" yaml:"allow_empty"`
	MaxAttempts   int      `mapstructure:"max_attempts" yaml:"max_attempts"`
	ProviderChain []string `mapstructure:"provider_chain" yaml:"provider_chain"`
	Strategy      string   `mapstructure:"strategy" yaml:"strategy"` // parallel or sequential
	BatchSize     int      `mapstructure:"batch_size" yaml:"batch_size"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"` // neo4j or none
	URI      string `mapstructure:"uri" yaml:"uri"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
	Database string `mapstructure:"database" yaml:"database"`
}

// BudgetConfig holds the daily token cap configuration.
type BudgetConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Store      string `mapstructure:"store" yaml:"store"` // memory, redis or badger
	RedisURL   string `mapstructure:"redis_url" yaml:"redis_url"`
	BadgerPath string `mapstructure:"badger_path" yaml:"badger_path"`

	DailyLimit    int64            `mapstructure:"daily_limit" yaml:"daily_limit"`
	GroupLimits   map[string]int64 `mapstructure:"group_limits" yaml:"group_limits"`
	TZOffsetHours int              `mapstructure:"tz_offset_hours" yaml:"tz_offset_hours"`
	RerouteReal   bool             `mapstructure:"reroute_real" yaml:"reroute_real"`
	CounterTTL    time.Duration    `mapstructure:"counter_ttl" yaml:"counter_ttl"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled" yaml:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests" yaml:"max_requests"`
	Interval         int     `mapstructure:"interval" yaml:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout" yaml:"timeout"`   // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio" yaml:"ready_to_trip_ratio"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username string   `mapstructure:"username" yaml:"username"`
	Password string   `mapstructure:"password" yaml:"-"`
	From     string   `mapstructure:"from" yaml:"from"`
	To       []string `mapstructure:"to" yaml:"to"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	// ParquetPath receives error-level log records. Empty disables it.
	ParquetPath string `mapstructure:"parquet_path" yaml:"parquet_path"`
}

// AuthConfig holds API key authentication.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys" yaml:"api_keys"`
}

// ProviderConfig overrides what is known about one provider id.
type ProviderConfig struct {
	ResponseFormat string `mapstructure:"response_format" yaml:"response_format"` // json_object, json_schema or none
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
	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaultsOn(v)
	config := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(config)
	return config
}

// setDefaults sets default configuration values
func setDefaults() {
	setDefaultsOn(viper.GetViper())
}

func setDefaultsOn(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9000)
	v.SetDefault("server.mode", "release")

	// LLM defaults
	v.SetDefault("llm.base_url", "http://litellm:4000/v1")
	v.SetDefault("llm.api_key", "sk-admin")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.rate_limit_retry_delay", "300ms")

	// Graph defaults
	v.SetDefault("graph.schema_path", "schemas/graph_schema.json")
	v.SetDefault("graph.min_nodes", 1)
	v.SetDefault("graph.min_edges", 1)
	v.SetDefault("graph.allow_empty", false)
	v.SetDefault("graph.max_attempts", 2)
	v.SetDefault("graph.provider_chain", []string{"graph-extractor", "graph-extractor-o1mini", "graph-extractor-gemini"})
	v.SetDefault("graph.strategy", "parallel")
	v.SetDefault("graph.batch_size", 3)

	// Database defaults
	v.SetDefault("database.driver", "neo4j")
	v.SetDefault("database.uri", "bolt://neo4j:7687")
	v.SetDefault("database.username", "neo4j")
	v.SetDefault("database.password", "neo4j123")
	v.SetDefault("database.database", "")

	// Budget defaults
	v.SetDefault("budget.enabled", true)
	v.SetDefault("budget.store", "memory")
	v.SetDefault("budget.redis_url", "redis://redis:6379/0")
	v.SetDefault("budget.badger_path", "./data/budget")
	v.SetDefault("budget.daily_limit", 10_000_000)
	v.SetDefault("budget.tz_offset_hours", 8)
	v.SetDefault("budget.reroute_real", true)
	v.SetDefault("budget.counter_ttl", "36h")

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	v.SetDefault("auth.api_keys", []string{"dev-key"})
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) error {
	// LLM proxy
	if base := os.Getenv("LITELLM_BASE"); base != "" {
		config.LLM.BaseURL = base
	}
	if key := os.Getenv("LITELLM_KEY"); key != "" {
		config.LLM.APIKey = key
	}

	// Database credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}

	// Graph extraction
	if path := os.Getenv("GRAPH_SCHEMA_PATH"); path != "" {
		config.Graph.SchemaPath = path
	}
	var errs []error
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	envInt("GRAPH_MIN_NODES", &config.Graph.MinNodes)
	envInt("GRAPH_MIN_EDGES", &config.Graph.MinEdges)
	envInt("GRAPH_MAX_ATTEMPTS", &config.Graph.MaxAttempts)
	if v := os.Getenv("GRAPH_ALLOW_EMPTY"); v != "" {
		config.Graph.AllowEmpty = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := os.Getenv("GRAPH_PROVIDER_CHAIN"); v != "" {
		config.Graph.ProviderChain = SplitList(v)
	}

	// Auth
	if v := os.Getenv("API_GATEWAY_KEYS"); v != "" {
		config.Auth.APIKeys = SplitList(v)
	}

	// Budget
	if v := os.Getenv("REDIS_URL"); v != "" {
		config.Budget.RedisURL = v
		config.Budget.Store = "redis"
	}
	if v := os.Getenv("OPENAI_TPD_LIMIT"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("OPENAI_TPD_LIMIT: %w", err))
		} else {
			config.Budget.DailyLimit = n
		}
	}
	envInt("TZ_OFFSET_HOURS", &config.Budget.TZOffsetHours)
	if v := os.Getenv("OPENAI_REROUTE_REAL"); v != "" {
		config.Budget.RerouteReal = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		group, ok := strings.CutPrefix(name, "OPENAI_TPD_LIMIT__")
		if !ok || group == "" {
			continue
		}
		// Non-numeric group limits are ignored and the global limit applies.
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n < 0 {
			continue
		}
		if config.Budget.GroupLimits == nil {
			config.Budget.GroupLimits = make(map[string]int64)
		}
		config.Budget.GroupLimits[group] = n
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	envInt("SERVER_PORT", &config.Server.Port)

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}

	return errors.Join(errs...)
}

// Validate checks that the configuration can start the gateway.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.base_url is required"))
	}
	if c.Graph.SchemaPath == "" {
		errs = append(errs, errors.New("graph.schema_path is required"))
	}
	if c.Graph.MinNodes < 0 || c.Graph.MinEdges < 0 {
		errs = append(errs, errors.New("graph.min_nodes and graph.min_edges must be >= 0"))
	}
	if c.Graph.MaxAttempts < 1 {
		errs = append(errs, errors.New("graph.max_attempts must be >= 1"))
	}
	if len(c.Graph.ProviderChain) == 0 {
		errs = append(errs, errors.New("graph.provider_chain must not be empty"))
	}
	switch c.Graph.Strategy {
	case "parallel", "sequential":
	default:
		errs = append(errs, fmt.Errorf("graph.strategy must be parallel or sequential, got %q", c.Graph.Strategy))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Budget.Enabled {
		switch c.Budget.Store {
		case "memory", "redis", "badger":
		default:
			errs = append(errs, fmt.Errorf("budget.store must be memory, redis or badger, got %q", c.Budget.Store))
		}
		if c.Budget.DailyLimit <= 0 {
			errs = append(errs, errors.New("budget.daily_limit must be > 0"))
		}
	}
	for id, p := range c.Providers {
		switch p.ResponseFormat {
		case "", "json_object", "json_schema", "none":
		default:
			errs = append(errs, fmt.Errorf("providers.%s.response_format %q is not supported", id, p.ResponseFormat))
		}
	}
	return errors.Join(errs...)
}

// WriteExample writes the default configuration as YAML, for use as a
// starting point for a config file. Secrets are omitted.
func WriteExample(path string) error {
	out, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write example config: %w", err)
	}
	return nil
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
