package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"CycleScope/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Sources    SourcesConfig    `yaml:"sources"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name" default:"cyclescope"`
	Environment string `yaml:"environment" default:"development"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	MetricsPath     string        `yaml:"metrics_path" default:"/metrics"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	// RefreshRate and RefreshBurst bound POST /api/refresh.
	RefreshRate  float64 `yaml:"refresh_rate" default:"0.2"`
	RefreshBurst int     `yaml:"refresh_burst" default:"2"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format" default:"2006-01-02T15:04:05Z07:00"`
	// Topic receives aggregated error/warn logs when kafka is enabled.
	Topic string `yaml:"topic" default:"cyclescope.logs"`
}

// WeightOverride replaces the declared weight table when non-empty.
type WeightOverride struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Rank        int     `yaml:"rank"`
	Description string  `yaml:"description"`
	DataSource  string  `yaml:"data_source"`
}

type ScoringConfig struct {
	Interval      time.Duration    `yaml:"interval" default:"5m"`
	SourceTimeout time.Duration    `yaml:"source_timeout" default:"15s"`
	Debounce      time.Duration    `yaml:"debounce" default:"2s"`
	Weights       []WeightOverride `yaml:"weights"`
}

type SourceConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	BaseURL  string        `yaml:"base_url"`
	TTL      time.Duration `yaml:"ttl" default:"5m"`
	APIKey   string        `yaml:"api_key"`
	Fallback bool          `yaml:"fallback"`
}

type SourcesConfig struct {
	Sentiment   SourceConfig `yaml:"sentiment"`
	Market      SourceConfig `yaml:"market"`
	Network     SourceConfig `yaml:"network"`
	Mempool     SourceConfig `yaml:"mempool"`
	Derivatives SourceConfig `yaml:"derivatives"`
	Premium     SourceConfig `yaml:"premium"`
	Onchain     SourceConfig `yaml:"onchain"`
	Push        SourceConfig `yaml:"push"`
}

type CacheConfig struct {
	// Type is one of memory, redis or layered.
	Type          string        `yaml:"type" default:"memory"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" default:"30s"`

	// CleanupInterval is how often expired memory entries are swept.
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"cyclescope"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	ScoresTopic  string   `yaml:"scores_topic" default:"composite.scores"`
	RecordsTopic string   `yaml:"records_topic" default:"indicator.records"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"cyclescope"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"100"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"indicator.records.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	DSN              string        `yaml:"dsn"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"cyclescope"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Parse decodes YAML on top of the defaults, so keys the file omits keep
// their default values.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error; defaults and env then make up the config.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if c, err = Parse(b); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		c = Default()
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.ApplyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, err := strconv.ParseBool(getenv(key)); err == nil {
			*dst = v
		}
	}

	str("CYCLESCOPE_ENV", &c.App.Environment)
	str("CYCLESCOPE_LOG_LEVEL", &c.Logging.Level)
	str("CYCLESCOPE_LOG_FORMAT", &c.Logging.Format)
	c.HTTP.Port = util.ParseIntDefault(getenv("CYCLESCOPE_HTTP_PORT"), c.HTTP.Port)
	if v, err := time.ParseDuration(getenv("CYCLESCOPE_SCORING_INTERVAL")); err == nil {
		c.Scoring.Interval = v
	}
	str("CYCLESCOPE_CACHE_TYPE", &c.Cache.Type)
	str("CYCLESCOPE_ONCHAIN_API_KEY", &c.Sources.Onchain.APIKey)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	boolean("KAFKA_ENABLED", &c.Kafka.Enabled)

	if v := getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
		c.ClickHouse.Enabled = true
	}
	boolean("CLICKHOUSE_ENABLED", &c.ClickHouse.Enabled)

	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	if v, err := strconv.ParseInt(getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		c.Telegram.ChatID = v
	}
	boolean("TELEGRAM_ENABLED", &c.Telegram.Enabled)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got '%s'", c.Logging.Format))
	}
	switch c.Cache.Type {
	case "memory", "redis", "layered":
	default:
		errs = append(errs, fmt.Errorf("cache.type must be memory, redis or layered, got '%s'", c.Cache.Type))
	}
	if c.Scoring.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scoring.interval must be positive"))
	}
	if c.Scoring.SourceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("scoring.source_timeout must be positive"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" && c.ClickHouse.Host == "" {
		errs = append(errs, fmt.Errorf("clickhouse.host or clickhouse.dsn is required when clickhouse is enabled"))
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		errs = append(errs, fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled"))
	}
	seen := make(map[string]bool, len(c.Scoring.Weights))
	for _, w := range c.Scoring.Weights {
		if strings.TrimSpace(w.ID) == "" {
			errs = append(errs, fmt.Errorf("scoring.weights: blank id"))
			continue
		}
		if seen[w.ID] {
			errs = append(errs, fmt.Errorf("scoring.weights: duplicate id %s", w.ID))
		}
		seen[w.ID] = true
	}
	return errors.Join(errs...)
}
