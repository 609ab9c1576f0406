// Package config
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
port: 3000
symbol: "bitcoin"
currency: "gbp"
price_source: "coingecko"
interval: 60s
window_size: 14
starting_capital: 30
buy_threshold: 30
sell_threshold: 70
target_profit: 1
max_retries: 5
initial_backoff: 1s
keepalive_interval: 10m
journal_driver: "sqlite3"
journal_dsn: "file:trades.db"
...
Every key can be overridden by the environment variable in its envconfig tag,
either exported or listed in a .env file.
*/

// Supported price sources.
const (
	SourceCoinGecko = "coingecko"
	SourceWallex    = "wallex"
)

// MaxRetriesLimit is the largest accepted max_retries.
const MaxRetriesLimit = 30

// Supported journal drivers.
const (
	JournalMemory   = "memory"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite3"
)

type Config struct {
	Port     int    `yaml:"port" envconfig:"PORT"`
	Symbol   string `yaml:"symbol" envconfig:"SYMBOL"`
	Currency string `yaml:"currency" envconfig:"CURRENCY"`

	PriceSource  string `yaml:"price_source" envconfig:"PRICE_SOURCE"`
	PriceAPIURL  string `yaml:"price_api_url" envconfig:"PRICE_API_URL"`
	WallexAPIKey string `yaml:"wallex_api_key" envconfig:"WALLEX_API_KEY"`
	WallexMarket string `yaml:"wallex_market" envconfig:"WALLEX_MARKET"`

	Interval        time.Duration `yaml:"interval" envconfig:"INTERVAL"`
	WindowSize      int           `yaml:"window_size" envconfig:"WINDOW_SIZE"`
	StartingCapital float64       `yaml:"starting_capital" envconfig:"STARTING_CAPITAL"`
	BuyThreshold    float64       `yaml:"buy_threshold" envconfig:"RSI_BUY_THRESHOLD"`
	SellThreshold   float64       `yaml:"sell_threshold" envconfig:"RSI_SELL_THRESHOLD"`
	TargetProfit    float64       `yaml:"target_profit" envconfig:"TARGET_PROFIT"`

	MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	InitialBackoff time.Duration `yaml:"initial_backoff" envconfig:"INITIAL_BACKOFF"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`

	KeepaliveInterval time.Duration `yaml:"keepalive_interval" envconfig:"KEEPALIVE_INTERVAL"`
	KeepaliveURL      string        `yaml:"keepalive_url" envconfig:"KEEPALIVE_URL"`

	TelegramToken       string        `yaml:"telegram_token" envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID      string        `yaml:"telegram_chat_id" envconfig:"TELEGRAM_CHAT_ID"`
	NotificationRetries int           `yaml:"notification_retries" envconfig:"NOTIFICATION_RETRIES"`
	NotificationDelay   time.Duration `yaml:"notification_delay" envconfig:"NOTIFICATION_DELAY"`

	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisChannel  string `yaml:"redis_channel" envconfig:"REDIS_CHANNEL"`

	JournalDriver string `yaml:"journal_driver" envconfig:"JOURNAL_DRIVER"`
	JournalDSN    string `yaml:"journal_dsn" envconfig:"JOURNAL_DSN"`

	LogFile string `yaml:"log_file" envconfig:"LOG_FILE"`
}

// Default returns the configuration the bot runs with when nothing is set.
func Default() Config {
	return Config{
		Port:                3000,
		Symbol:              "bitcoin",
		Currency:            "gbp",
		PriceSource:         SourceCoinGecko,
		PriceAPIURL:         "https://api.coingecko.com/api/v3/simple/price",
		WallexMarket:        "BTCUSDT",
		Interval:            60 * time.Second,
		WindowSize:          14,
		StartingCapital:     30,
		BuyThreshold:        30,
		SellThreshold:       70,
		TargetProfit:        1,
		MaxRetries:          5,
		InitialBackoff:      time.Second,
		HTTPTimeout:         10 * time.Second,
		KeepaliveInterval:   10 * time.Minute,
		NotificationRetries: 3,
		NotificationDelay:   5 * time.Second,
		RedisChannel:        "rsi-trader:signals",
		JournalDriver:       JournalMemory,
		LogFile:             "rsi-trader.log",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// .env is optional; variables already in the environment are kept.
	_ = godotenv.Load()

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.KeepaliveURL == "" {
		cfg.KeepaliveURL = fmt.Sprintf("http://localhost:%d/", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoadConfig parses the command line and loads the configuration, exiting
// on error.
func MustLoadConfig() Config {
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects configurations the bot cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	switch c.PriceSource {
	case SourceCoinGecko:
		if c.Currency == "" {
			errs = append(errs, errors.New("currency is required"))
		}
	case SourceWallex:
		if c.WallexMarket == "" {
			errs = append(errs, errors.New("wallex market is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported price source: %s", c.PriceSource))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.WindowSize < 2 {
		errs = append(errs, fmt.Errorf("window size must be at least 2, got %d", c.WindowSize))
	}
	if c.StartingCapital <= 0 {
		errs = append(errs, errors.New("starting capital must be positive"))
	}
	if c.TargetProfit <= 0 {
		errs = append(errs, errors.New("target profit must be positive"))
	}
	if c.BuyThreshold < 0 || c.SellThreshold > 100 || c.BuyThreshold >= c.SellThreshold {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= buy < sell <= 100, got buy=%v sell=%v", c.BuyThreshold, c.SellThreshold))
	}
	if c.MaxRetries < 1 || c.MaxRetries > MaxRetriesLimit {
		errs = append(errs, fmt.Errorf("max retries must be between 1 and %d, got %d", MaxRetriesLimit, c.MaxRetries))
	}
	if c.InitialBackoff <= 0 {
		errs = append(errs, errors.New("initial backoff must be positive"))
	}
	if c.KeepaliveInterval <= 0 {
		errs = append(errs, errors.New("keepalive interval must be positive"))
	}
	switch c.JournalDriver {
	case JournalMemory:
	case JournalPostgres, JournalSQLite:
		if c.JournalDSN == "" {
			errs = append(errs, fmt.Errorf("journal dsn is required for %s", c.JournalDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported journal driver: %s", c.JournalDriver))
	}

	return errors.Join(errs...)
}

// wallexQuotes are the quote assets Wallex lists markets against, longest
// first so USDT wins over a shorter suffix.
var wallexQuotes = []string{"USDT", "USDC", "TMN", "IRT", "BTC", "ETH"}

// QuoteCurrency is the currency prices from the configured source are
// denominated in. For Wallex it is taken from the market name (BTCUSDT,
// BTC-TMN, BTC/USDT); for CoinGecko it is Currency.
func (c Config) QuoteCurrency() string {
	if c.PriceSource != SourceWallex {
		return c.Currency
	}
	market := strings.ToUpper(strings.TrimSpace(c.WallexMarket))
	if i := strings.LastIndexAny(market, "/-"); i >= 0 {
		return market[i+1:]
	}
	for _, q := range wallexQuotes {
		if len(market) > len(q) && strings.HasSuffix(market, q) {
			return q
		}
	}
	return market
}

// StatusLine is the one-line description served on the status endpoint.
func (c Config) StatusLine() string {
	quote := c.QuoteCurrency()
	return fmt.Sprintf("RSI Trading Bot running (%s/%s, Buy < %v, Sell > %v or for %v %s profit, %v interval).",
		c.Symbol, quote, c.BuyThreshold, c.SellThreshold, c.TargetProfit, quote, c.Interval)
}
