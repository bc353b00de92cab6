package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	National   NationalConfig   `yaml:"national" mapstructure:"national"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Compare    CompareConfig    `yaml:"compare" mapstructure:"compare"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver           string      `yaml:"driver" mapstructure:"driver"`
	DatabaseURL      string      `yaml:"database_url" mapstructure:"database_url"`
	MaxConns         int32       `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns         int32       `yaml:"min_conns" mapstructure:"min_conns"`
	QueryTimeoutSecs int         `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	Retry            RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// QueryTimeout bounds a single resolution or research query.
func (c StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// RetryConfig configures retries of transient store failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	StaticDir        string   `yaml:"static_dir" mapstructure:"static_dir"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SourcesConfig names the dataset vintages reported alongside answers.
type SourcesConfig struct {
	CensusVintage    string   `yaml:"census_vintage" mapstructure:"census_vintage"`
	CrosswalkVintage string   `yaml:"crosswalk_vintage" mapstructure:"crosswalk_vintage"`
	AggregateSource  string   `yaml:"aggregate_source" mapstructure:"aggregate_source"`
	Checked          []string `yaml:"checked" mapstructure:"checked"`
}

// NationalConfig configures the national-average comparison.
type NationalConfig struct {
	// CacheTTLSecs of 0 recomputes the averages on every request.
	CacheTTLSecs int `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// CacheTTL returns the national-average cache lifetime.
func (c NationalConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// ExportConfig bounds CSV and XLSX exports.
type ExportConfig struct {
	MaxZips int `yaml:"max_zips" mapstructure:"max_zips"`
}

// CompareConfig bounds the compare endpoint.
type CompareConfig struct {
	MinZips int `yaml:"min_zips" mapstructure:"min_zips"`
	MaxZips int `yaml:"max_zips" mapstructure:"max_zips"`
}

// SearchConfig bounds the search endpoint.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
	ZipListLimit int `yaml:"zip_list_limit" mapstructure:"zip_list_limit"`
}

// MonitoringConfig configures the background data-health checker.
type MonitoringConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`

	// CompletenessThreshold is the minimum percent of rows that must carry
	// each core metric before an alert fires.
	CompletenessThreshold float64 `yaml:"completeness_threshold" mapstructure:"completeness_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HOUSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.query_timeout_secs", 10)
	v.SetDefault("store.retry.max_attempts", 3)
	v.SetDefault("store.retry.initial_backoff_ms", 50)
	v.SetDefault("store.retry.max_backoff_ms", 1000)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sources.census_vintage", "Census ACS 5-Year 2023")
	v.SetDefault("sources.crosswalk_vintage", "Q4 2025")
	v.SetDefault("sources.aggregate_source", "Census ACS 5-Year 2023 (aggregated from residential ZIPs in county)")
	v.SetDefault("sources.checked", []string{
		"Census ACS 5-Year 2023 (33,181 ZCTAs)",
		"HUD USPS Crosswalk Q4 2025 (39,494 ZIPs)",
	})
	v.SetDefault("national.cache_ttl_secs", 300)
	v.SetDefault("export.max_zips", 100)
	v.SetDefault("compare.min_zips", 2)
	v.SetDefault("compare.max_zips", 10)
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 50)
	v.SetDefault("search.zip_list_limit", 200)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 900)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.completeness_threshold", 80.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Mode is "serve" for the
// HTTP server or "store" for commands that only touch the database.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (postgres, sqlite)", c.Store.Driver))
	}
	if c.Store.QueryTimeoutSecs <= 0 {
		errs = append(errs, "store.query_timeout_secs must be > 0")
	}

	switch mode {
	case "store":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.National.CacheTTLSecs < 0 {
			errs = append(errs, "national.cache_ttl_secs must be >= 0")
		}
		if c.Compare.MinZips < 1 || c.Compare.MaxZips < c.Compare.MinZips {
			errs = append(errs, "compare.min_zips must be >= 1 and <= compare.max_zips")
		}
		if c.Search.DefaultLimit < 1 || c.Search.MaxLimit < c.Search.DefaultLimit {
			errs = append(errs, "search.default_limit must be >= 1 and <= search.max_limit")
		}
		if c.Export.MaxZips < 1 {
			errs = append(errs, "export.max_zips must be >= 1")
		}
		if c.Monitoring.Enabled && c.Monitoring.CheckIntervalSecs <= 0 {
			errs = append(errs, "monitoring.check_interval_secs must be > 0 when monitoring is enabled")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
