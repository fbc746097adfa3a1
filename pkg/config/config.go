// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Database, Redis, Kafka, Upstream, Pipeline, Classifier,
// Drain, Scheduler, Retention, API, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Drain      DrainConfig      `yaml:"drain"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Retention  RetentionConfig  `yaml:"retention"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig selects the document store backend and holds its connection
// parameters. Path is only used by the sqlite driver.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// SQLiteBusyTimeoutMillis is how long a sqlite connection waits on a locked
// database before returning SQLITE_BUSY.
const SQLiteBusyTimeoutMillis = 5000

// DSN returns the data source name for the configured driver. SQLite pragmas
// ride in the DSN so every pooled connection gets them.
func (d DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		pragmas := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", SQLiteBusyTimeoutMillis)}
		if d.Path != ":memory:" {
			pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
		}
		sep := "?"
		if strings.Contains(d.Path, "?") {
			sep = "&"
		}
		return d.Path + sep + strings.Join(pragmas, "&")
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters. Redis backs the
// cross-process drain lock and is optional.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AlertsPublished string `yaml:"alertsPublished"`
	RefreshRequests string `yaml:"refreshRequests"`
}

// UpstreamConfig describes how to reach the generative search provider.
type UpstreamConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	Temperature  float64       `yaml:"temperature"`
	GoogleSearch bool          `yaml:"googleSearch"`
	Timeout      time.Duration `yaml:"timeout"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

// BreakerConfig controls the circuit breaker guarding upstream calls.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// PipelineConfig controls one ingestion run.
type PipelineConfig struct {
	Queries        []string `yaml:"queries"`
	BatchLimit     int      `yaml:"batchLimit"`
	MinTitleLength int      `yaml:"minTitleLength"`
	Concurrency    int      `yaml:"concurrency"`
}

// CategoryRule is one entry of the ordered category table. Order matters:
// the first rule with a matching keyword wins.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ClassifierConfig holds the keyword tables used for categorization and
// severity scoring.
type ClassifierConfig struct {
	Categories     []CategoryRule `yaml:"categories"`
	HighSeverity   []string       `yaml:"highSeverity"`
	MediumSeverity []string       `yaml:"mediumSeverity"`
}

// DrainConfig bounds a single drain cycle.
type DrainConfig struct {
	MaxSteps   int `yaml:"maxSteps"`
	MaxRefills int `yaml:"maxRefills"`
}

// SchedulerConfig controls the periodic drain job.
type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"runOnStart"`
}

// RetentionConfig controls housekeeping of the public collection.
type RetentionConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxAge  time.Duration `yaml:"maxAge"`
}

// APIConfig controls the read API surface.
type APIConfig struct {
	ListLimit            int           `yaml:"listLimit"`
	MaxListLimit         int           `yaml:"maxListLimit"`
	RefreshRatePerMinute int           `yaml:"refreshRatePerMinute"`
	RequestTimeout       time.Duration `yaml:"requestTimeout"`
	// RefreshWait bounds how long POST /refresh holds the connection. A drain
	// cycle may refill up to drain.maxRefills times, each running every
	// pipeline query with upstream.timeout, so it can outlast
	// server.writeTimeout. Past RefreshWait the handler answers 202 and the
	// cycle finishes in the background. Must be below server.writeTimeout.
	RefreshWait time.Duration `yaml:"refreshWait"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite driver")
	}
	if c.Pipeline.BatchLimit <= 0 {
		return fmt.Errorf("pipeline.batchLimit must be positive, got %d", c.Pipeline.BatchLimit)
	}
	if c.Pipeline.MinTitleLength < 0 {
		return fmt.Errorf("pipeline.minTitleLength must not be negative")
	}
	for i, rule := range c.Classifier.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return fmt.Errorf("classifier.categories[%d] has no name", i)
		}
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive when the scheduler is enabled")
	}
	if c.Server.WriteTimeout > 0 && (c.API.RefreshWait <= 0 || c.API.RefreshWait >= c.Server.WriteTimeout) {
		return fmt.Errorf("api.refreshWait (%v) must be positive and below server.writeTimeout (%v)",
			c.API.RefreshWait, c.Server.WriteTimeout)
	}
	return nil
}

// Default returns the built-in configuration without file or environment
// overrides.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			Database:        "scamalerts",
			User:            "scamalerts",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			LockKey:  "scam-alerts:drain-lock",
			LockTTL:  10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "scam-alerts",
			Topics: KafkaTopics{
				AlertsPublished: "scam-alerts.published",
				RefreshRequests: "scam-alerts.refresh",
			},
		},
		Upstream: UpstreamConfig{
			Endpoint:     "https://generativelanguage.googleapis.com/v1beta",
			Model:        "gemini-flash-latest",
			Temperature:  0.3,
			GoogleSearch: true,
			Timeout:      90 * time.Second,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     2 * time.Minute,
			},
		},
		Pipeline: PipelineConfig{
			Queries:        DefaultQueries(),
			BatchLimit:     20,
			MinTitleLength: 10,
			Concurrency:    1,
		},
		Classifier: DefaultClassifierConfig(),
		Drain: DrainConfig{
			MaxSteps:   200,
			MaxRefills: 3,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: 6000 * time.Second,
		},
		Retention: RetentionConfig{
			Enabled: true,
			MaxAge:  7 * 24 * time.Hour,
		},
		API: APIConfig{
			ListLimit:            30,
			MaxListLimit:         100,
			RefreshRatePerMinute: 6,
			RequestTimeout:       10 * time.Second,
			RefreshWait:          4 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// DefaultQueries returns the upstream search queries issued by one
// ingestion run.
func DefaultQueries() []string {
	return []string{
		"latest news articles about phone scams and police impersonation scams 2024 2025",
		"recent news about delivery courier scams fake parcels drug accusations 2024 2025",
		"cryptocurrency investment fraud scam news articles 2024 2025",
		"email phishing online banking scam news 2024 2025",
		"social media scams Facebook Instagram WhatsApp news 2024 2025",
		"romance scams catfishing news articles 2024 2025",
		"tech support scams Microsoft Apple news 2024 2025",
	}
}

// DefaultClassifierConfig returns the built-in category and severity keyword
// tables, in priority order.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Categories: []CategoryRule{
			{Name: "Phone Scam", Keywords: []string{"phone", "call", "caller", "robocall", "voicemail", "telephone"}},
			{Name: "Email Phishing", Keywords: []string{"email", "phishing", "spam", "link", "attachment", "inbox"}},
			{Name: "Social Media Scam", Keywords: []string{"facebook", "instagram", "twitter", "social media", "dm", "whatsapp", "telegram"}},
			{Name: "Investment Fraud", Keywords: []string{"investment", "trading", "stocks", "profit", "return", "forex"}},
			{Name: "Delivery Scam", Keywords: []string{"delivery", "package", "parcel", "courier", "shipping", "fedex", "ups", "dhl"}},
			{Name: "Impersonation", Keywords: []string{"police", "irs", "government", "officer", "official", "tax", "fbi", "customs"}},
			{Name: "Cryptocurrency Scam", Keywords: []string{"crypto", "bitcoin", "ethereum", "wallet", "blockchain", "nft"}},
			{Name: "Romance Scam", Keywords: []string{"dating", "romance", "relationship", "love", "match", "tinder"}},
			{Name: "Tech Support Scam", Keywords: []string{"tech support", "microsoft", "apple", "computer", "virus", "antivirus"}},
		},
		HighSeverity:   []string{"urgent", "immediate", "arrest", "legal action", "suspended", "frozen", "drugs", "criminal"},
		MediumSeverity: []string{"alert", "beware", "caution", "warning", "fraud"},
	}
}

// applyEnvOverrides reads SA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SA_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SA_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SA_DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SA_DATABASE_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("SA_DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SA_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SA_DATABASE_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("SA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := os.Getenv("SA_UPSTREAM_API_KEY"); v != "" {
		cfg.Upstream.APIKey = v
	}
	if v := os.Getenv("SA_UPSTREAM_MODEL"); v != "" {
		cfg.Upstream.Model = v
	}
	if v := os.Getenv("SA_UPSTREAM_ENDPOINT"); v != "" {
		cfg.Upstream.Endpoint = v
	}
	if v := os.Getenv("SA_SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.Interval = d
		}
	}
	if v := os.Getenv("SA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
