package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/daramaccoille/crashalert/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Email     EmailConfig     `mapstructure:"email"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Server    ServerConfig    `mapstructure:"server"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs cycle cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// SourcesConfig covers the external indicator providers.
type SourcesConfig struct {
	FRED         FREDConfig         `mapstructure:"fred"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
	Valuation    ValuationConfig    `mapstructure:"valuation"`
}

// FREDConfig parameterises the St. Louis Fed data API.
type FREDConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AlphaVantageConfig parameterises the equity quote provider.
type AlphaVantageConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	BenchmarkSymbol string        `mapstructure:"benchmark_symbol"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
}

// ValuationConfig controls the best-effort S&P 500 P/E scrape.
type ValuationConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SentimentConfig parameterises the AI narrative generator.
type SentimentConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EmailConfig covers the transactional email provider.
type EmailConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	SenderName     string        `mapstructure:"sender_name"`
	SenderAddress  string        `mapstructure:"sender_address"`
	AdminAddress   string        `mapstructure:"admin_address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DispatchConfig tunes recipient fan-out.
type DispatchConfig struct {
	BatchSize int    `mapstructure:"batch_size"`
	Subject   string `mapstructure:"subject"`
}

// ServerConfig covers the manual-trigger HTTP endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRASHALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "crashalert")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63726173))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("sources.fred.base_url", "https://api.stlouisfed.org")
	v.SetDefault("sources.fred.request_timeout", "10s")

	v.SetDefault("sources.alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("sources.alphavantage.benchmark_symbol", "SPY")
	v.SetDefault("sources.alphavantage.request_timeout", "15s")
	v.SetDefault("sources.alphavantage.requests_per_min", 5)

	v.SetDefault("sources.valuation.url", "https://www.multpl.com/s-p-500-pe-ratio/table/by-month")
	v.SetDefault("sources.valuation.request_timeout", "10s")
	v.SetDefault("sources.valuation.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")

	v.SetDefault("sentiment.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("sentiment.model", "gemini-1.5-flash")
	v.SetDefault("sentiment.request_timeout", "20s")

	v.SetDefault("email.base_url", "https://api.brevo.com")
	v.SetDefault("email.sender_name", "Crash Alert")
	v.SetDefault("email.sender_address", "noreply@crashalert.online")
	v.SetDefault("email.request_timeout", "10s")

	v.SetDefault("dispatch.batch_size", 20)
	v.SetDefault("dispatch.subject", "Daily Market Risk Report")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Dispatch.BatchSize <= 0 {
		return fmt.Errorf("dispatch.batch_size must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Sources.AlphaVantage.RequestsPerMin <= 0 {
		return fmt.Errorf("sources.alphavantage.requests_per_min must be greater than zero")
	}
	if c.Email.SenderAddress == "" {
		return fmt.Errorf("email.sender_address is required")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
