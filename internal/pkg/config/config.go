package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Health    HealthConfig    `yaml:"health"`
}

type PathsConfig struct {
	RawDir           string `yaml:"raw_dir"`
	MatchedDir       string `yaml:"matched_dir"`
	OpportunitiesDir string `yaml:"opportunities_dir"`
}

type FetcherConfig struct {
	Enabled   []string      `yaml:"enabled"` // empty means every registered source
	Timeout   time.Duration `yaml:"timeout"` // per source
	Headless  *bool         `yaml:"headless"`
	UserAgent string        `yaml:"user_agent"`
	Timezone  string        `yaml:"timezone"`
}

type MatcherConfig struct {
	Profile       string        `yaml:"profile"` // "purification" or "lenient"
	TimeThreshold time.Duration `yaml:"time_threshold"`
	NameThreshold int           `yaml:"name_threshold"` // 0 keeps the profile's threshold
	MinCoverage   int           `yaml:"min_coverage"`   // 0 keeps the profile's coverage
}

type ArbitrageConfig struct {
	TotalStake float64 `yaml:"total_stake"`
	TopN       int     `yaml:"top_n"` // rows in the console report and Telegram messages
}

type NotifyConfig struct {
	WebhookURL       string        `yaml:"webhook_url"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RatePerSecond    float64       `yaml:"rate_per_second"`
	TelegramBotToken string        `yaml:"telegram_bot_token"`
	TelegramChatID   int64         `yaml:"telegram_chat_id"`
	TelegramInterval time.Duration `yaml:"telegram_interval"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // empty disables the SQL sink
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // optional JSON debug log
}

type HealthConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	Interval          time.Duration `yaml:"interval"` // pipeline cycle period in daemon mode
}

// Load reads the YAML file, applies environment overrides (a .env file is loaded first
// when present) and fills defaults. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}
	setDefaults(&config)
	return &config, nil
}

// Default returns a configuration holding only defaults.
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SUREBET_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID %q: %v", ErrInvalid, v, err)
		}
		cfg.Notify.TelegramChatID = id
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Paths.RawDir == "" {
		cfg.Paths.RawDir = "data/raw"
	}
	if cfg.Paths.MatchedDir == "" {
		cfg.Paths.MatchedDir = "data/matched"
	}
	if cfg.Paths.OpportunitiesDir == "" {
		cfg.Paths.OpportunitiesDir = "data/opportunities"
	}

	if cfg.Fetcher.Timeout <= 0 {
		cfg.Fetcher.Timeout = 2 * time.Minute
	}
	if cfg.Fetcher.Headless == nil {
		headless := true
		cfg.Fetcher.Headless = &headless
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if cfg.Fetcher.Timezone == "" {
		cfg.Fetcher.Timezone = "Europe/Athens"
	}

	if cfg.Matcher.Profile == "" {
		cfg.Matcher.Profile = "purification"
	}
	if cfg.Matcher.TimeThreshold <= 0 {
		cfg.Matcher.TimeThreshold = 15 * time.Minute
	}

	if cfg.Arbitrage.TotalStake <= 0 {
		cfg.Arbitrage.TotalStake = 1000
	}
	if cfg.Arbitrage.TopN <= 0 {
		cfg.Arbitrage.TopN = 10
	}

	if cfg.Notify.Timeout <= 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	if cfg.Notify.MaxRetries < 0 {
		cfg.Notify.MaxRetries = 0
	}
	if cfg.Notify.RatePerSecond <= 0 {
		cfg.Notify.RatePerSecond = 1
	}
	if cfg.Notify.TelegramInterval <= 0 {
		cfg.Notify.TelegramInterval = 2 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
	if cfg.Health.ReadHeaderTimeout <= 0 {
		cfg.Health.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.Health.Interval <= 0 {
		cfg.Health.Interval = 10 * time.Minute
	}
}

// Validate checks value ranges after defaults were applied.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Matcher.Profile) {
	case "purification", "lenient":
	default:
		return fmt.Errorf("%w: unknown matcher profile %q", ErrInvalid, c.Matcher.Profile)
	}
	if c.Matcher.NameThreshold < 0 || c.Matcher.NameThreshold > 100 {
		return fmt.Errorf("%w: matcher.name_threshold %d outside 0..100", ErrInvalid, c.Matcher.NameThreshold)
	}
	if c.Matcher.MinCoverage < 0 {
		return fmt.Errorf("%w: matcher.min_coverage must be positive", ErrInvalid)
	}
	if c.Matcher.TimeThreshold <= 0 {
		return fmt.Errorf("%w: matcher.time_threshold must be positive", ErrInvalid)
	}
	if c.Arbitrage.TotalStake <= 0 {
		return fmt.Errorf("%w: arbitrage.total_stake must be positive", ErrInvalid)
	}
	if c.Fetcher.Timeout <= 0 || c.Notify.Timeout <= 0 || c.Health.Interval <= 0 {
		return fmt.Errorf("%w: timeouts and intervals must be positive", ErrInvalid)
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Logging.Format)
	}
	if (c.Notify.TelegramBotToken == "") != (c.Notify.TelegramChatID == 0) {
		return fmt.Errorf("%w: telegram needs both bot token and chat id", ErrInvalid)
	}
	if _, err := time.LoadLocation(c.Fetcher.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Fetcher.Timezone, err)
	}
	return nil
}

// Location returns the fetcher timezone, falling back to UTC when it cannot be loaded.
func (c FetcherConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsHeadless reports whether the browser runs without a window.
func (c FetcherConfig) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// SourceEnabled reports whether a named source should run.
func (c FetcherConfig) SourceEnabled(name string) bool {
	if len(c.Enabled) == 0 {
		return true
	}
	for _, n := range c.Enabled {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return true
		}
	}
	return false
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c NotifyConfig) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}
