package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"

	CoinFilterAll     = "ALL"
	CoinFilterEnabled = "ENABLED"

	FeedSourceWS     = "ws"
	FeedSourceReplay = "replay"
)

// ExchangeMinNotionalUSD — минимальный ордер на Hyperliquid.
var ExchangeMinNotionalUSD = decimal.NewFromInt(10)

var (
	ErrTargetAddress   = errors.New("TARGET_WALLET_ADDRESS must be a 0x-prefixed 20-byte hex address")
	ErrCopyPercentage  = errors.New("COPY_PERCENTAGE must be in (0, 100]")
	ErrLiveCredentials = errors.New("live trading requires HYPERLIQUID_PRIVATE_KEY and HYPERLIQUID_WALLET_ADDRESS")
	ErrPositionLimits  = errors.New("MIN_POSITION_SIZE_USD/MAX_POSITION_SIZE_USD must be >= 0 and min <= max")
	ErrMaxPositions    = errors.New("MAX_OPEN_POSITIONS must be >= 1")
	ErrSlippage        = errors.New("SLIPPAGE_TOLERANCE_PCT must be >= 0")
	ErrCoinFilterMode  = errors.New("COIN_FILTER_MODE must be ALL or ENABLED")
	ErrFeedSource      = errors.New("FEED_SOURCE must be ws or replay (replay needs REPLAY_FILE)")
)

// Config ...
type Config struct {
	Copy struct {
		TargetAddress     string   `yaml:"target_address"`
		CopyPercentage    float64  `yaml:"copy_percentage"` // 5.0 => 5% equity на сделку
		MinPositionUSD    float64  `yaml:"min_position_usd"`
		MaxPositionUSD    float64  `yaml:"max_position_usd"`
		MaxOpenPositions  int      `yaml:"max_open_positions"`
		SlippagePct       float64  `yaml:"slippage_pct"` // 0.5 => готовы заплатить до +0.5%
		CoinFilterMode    string   `yaml:"coin_filter_mode"`
		EnabledCoins      []string `yaml:"enabled_coins"`
		DryRun            bool     `yaml:"dry_run"`
		FallbackEquityUSD float64  `yaml:"fallback_equity_usd"`
		// Пустой dir у сделки — ошибка, а не эвристика по closedPnl.
		StrictDirection bool `yaml:"strict_direction"`
		// 0 — множество обработанных сделок растёт без ограничений.
		DedupMaxKeys int `yaml:"dedup_max_keys"`
	} `yaml:"copy"`

	Hyperliquid struct {
		APIURL        string        `yaml:"api_url"`
		WSURL         string        `yaml:"ws_url"`
		Testnet       bool          `yaml:"testnet"`
		PrivateKey    string        `yaml:"private_key"`
		WalletAddress string        `yaml:"wallet_address"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"hyperliquid"`

	Feed struct {
		Source     string `yaml:"source"` // ws | replay
		ReplayFile string `yaml:"replay_file"`
	} `yaml:"feed"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Service struct {
		Name       string `yaml:"name"`
		HealthAddr string `yaml:"health_addr"`
	} `yaml:"service"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`
}

// Default — значения по умолчанию, как в .env.example.
func Default() *Config {
	c := &Config{}
	c.Copy.CopyPercentage = 5
	c.Copy.MinPositionUSD = 10
	c.Copy.MaxPositionUSD = 100
	c.Copy.MaxOpenPositions = 4
	c.Copy.SlippagePct = 0.5
	c.Copy.CoinFilterMode = CoinFilterAll
	c.Copy.DryRun = true
	c.Copy.FallbackEquityUSD = 100

	c.Hyperliquid.APIURL = "https://api.hyperliquid.xyz"
	c.Hyperliquid.WSURL = "wss://api.hyperliquid.xyz/ws"
	c.Hyperliquid.Timeout = 10 * time.Second

	c.Feed.Source = FeedSourceWS

	c.Service.Name = "copy_bot"
	c.Service.HealthAddr = ":8080"

	c.Log.Level = "info"

	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	return c
}

// Load: дефолты -> YAML (CONFIG_FILE, если задан) -> .env -> переменные окружения.
// Без Validate: бинарь может поправить значения до проверки.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(configFilePathENV); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// .env не обязателен: в контейнере всё приходит через окружение
	_ = godotenv.Load()

	if err := cfg.applyEnv(newEnv()); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// NewConfig — Load и сразу Validate.
func NewConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := CheckConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CheckConfig — ошибка конфигурации фатальна на старте.
func CheckConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

// envKeys — всё, что можно переопределить окружением.
var envKeys = []string{
	"TARGET_WALLET_ADDRESS", "COPY_PERCENTAGE", "DRY_RUN",
	"MIN_POSITION_SIZE_USD", "MAX_POSITION_SIZE_USD", "MAX_OPEN_POSITIONS",
	"SLIPPAGE_TOLERANCE_PCT", "COIN_FILTER_MODE", "ENABLED_COINS",
	"FALLBACK_ACCOUNT_VALUE_USD", "STRICT_DIRECTION", "DEDUP_MAX_KEYS",
	"HYPERLIQUID_API_URL", "HYPERLIQUID_WS_URL", "HYPERLIQUID_TESTNET",
	"HYPERLIQUID_PRIVATE_KEY", "HYPERLIQUID_WALLET_ADDRESS", "EXCHANGE_TIMEOUT",
	"FEED_SOURCE", "REPLAY_FILE",
	"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_DSN",
	"HEALTH_ADDR", "LOG_LEVEL", "LOG_FILE",
	"TRACING_ENABLED", "JAEGER_HOST", "JAEGER_PORT",
}

type env struct {
	v *viper.Viper
}

func newEnv() *env {
	v := viper.New()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return &env{v: v}
}

func (e *env) str(key string, dst *string) {
	if e.v.IsSet(key) {
		*dst = strings.TrimSpace(e.v.GetString(key))
	}
}

func (e *env) float(key string, dst *float64) error {
	if !e.v.IsSet(key) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(e.v.GetString(key)), 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func (e *env) int(key string, dst *int) error {
	if !e.v.IsSet(key) {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(e.v.GetString(key)))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func (e *env) int64(key string, dst *int64) error {
	if !e.v.IsSet(key) {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(e.v.GetString(key)), 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func (e *env) bool(key string, dst *bool) error {
	if !e.v.IsSet(key) {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(e.v.GetString(key)))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func (e *env) duration(key string, dst *time.Duration) error {
	if !e.v.IsSet(key) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(e.v.GetString(key)))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c *Config) applyEnv(e *env) error {
	e.str("TARGET_WALLET_ADDRESS", &c.Copy.TargetAddress)
	e.str("COIN_FILTER_MODE", &c.Copy.CoinFilterMode)
	if e.v.IsSet("ENABLED_COINS") {
		c.Copy.EnabledCoins = splitList(e.v.GetString("ENABLED_COINS"))
	}
	e.str("HYPERLIQUID_API_URL", &c.Hyperliquid.APIURL)
	e.str("HYPERLIQUID_WS_URL", &c.Hyperliquid.WSURL)
	e.str("HYPERLIQUID_PRIVATE_KEY", &c.Hyperliquid.PrivateKey)
	e.str("HYPERLIQUID_WALLET_ADDRESS", &c.Hyperliquid.WalletAddress)
	e.str("FEED_SOURCE", &c.Feed.Source)
	e.str("REPLAY_FILE", &c.Feed.ReplayFile)
	e.str("TELEGRAM_TOKEN", &c.Telegram.Token)
	e.str("DATABASE_DSN", &c.DB)
	e.str("HEALTH_ADDR", &c.Service.HealthAddr)
	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FILE", &c.Log.File)
	e.str("JAEGER_HOST", &c.Tracing.Host)

	for _, err := range []error{
		e.float("COPY_PERCENTAGE", &c.Copy.CopyPercentage),
		e.float("MIN_POSITION_SIZE_USD", &c.Copy.MinPositionUSD),
		e.float("MAX_POSITION_SIZE_USD", &c.Copy.MaxPositionUSD),
		e.float("SLIPPAGE_TOLERANCE_PCT", &c.Copy.SlippagePct),
		e.float("FALLBACK_ACCOUNT_VALUE_USD", &c.Copy.FallbackEquityUSD),
		e.int("MAX_OPEN_POSITIONS", &c.Copy.MaxOpenPositions),
		e.int("DEDUP_MAX_KEYS", &c.Copy.DedupMaxKeys),
		e.int("JAEGER_PORT", &c.Tracing.Port),
		e.int64("TELEGRAM_CHAT_ID", &c.Telegram.ChatID),
		e.bool("DRY_RUN", &c.Copy.DryRun),
		e.bool("STRICT_DIRECTION", &c.Copy.StrictDirection),
		e.bool("HYPERLIQUID_TESTNET", &c.Hyperliquid.Testnet),
		e.bool("TRACING_ENABLED", &c.Tracing.Enabled),
		e.duration("EXCHANGE_TIMEOUT", &c.Hyperliquid.Timeout),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) normalize() {
	c.Copy.TargetAddress = strings.ToLower(strings.TrimSpace(c.Copy.TargetAddress))
	c.Copy.CoinFilterMode = strings.ToUpper(strings.TrimSpace(c.Copy.CoinFilterMode))
	c.Hyperliquid.WalletAddress = strings.ToLower(strings.TrimSpace(c.Hyperliquid.WalletAddress))
	c.Hyperliquid.PrivateKey = strings.TrimPrefix(strings.TrimSpace(c.Hyperliquid.PrivateKey), "0x")
	c.Feed.Source = strings.ToLower(strings.TrimSpace(c.Feed.Source))
	if c.Hyperliquid.Timeout <= 0 {
		c.Hyperliquid.Timeout = 10 * time.Second
	}
}

// Validate — ошибки конфигурации фатальны на старте.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Copy.TargetAddress, "0x") || !common.IsHexAddress(c.Copy.TargetAddress) {
		return ErrTargetAddress
	}
	if !(c.Copy.CopyPercentage > 0 && c.Copy.CopyPercentage <= 100) {
		return ErrCopyPercentage
	}
	if c.Copy.MinPositionUSD < 0 || c.Copy.MaxPositionUSD < 0 || c.Copy.MinPositionUSD > c.Copy.MaxPositionUSD {
		return ErrPositionLimits
	}
	if c.Copy.MaxOpenPositions < 1 {
		return ErrMaxPositions
	}
	if c.Copy.SlippagePct < 0 {
		return ErrSlippage
	}
	if c.Copy.CoinFilterMode != CoinFilterAll && c.Copy.CoinFilterMode != CoinFilterEnabled {
		return ErrCoinFilterMode
	}
	if !c.Copy.DryRun && (c.Hyperliquid.PrivateKey == "" || c.Hyperliquid.WalletAddress == "") {
		return ErrLiveCredentials
	}
	switch c.Feed.Source {
	case FeedSourceWS:
	case FeedSourceReplay:
		if c.Feed.ReplayFile == "" {
			return ErrFeedSource
		}
	default:
		return ErrFeedSource
	}
	return nil
}

// CoinFilter возвращает allow-set или nil, если фильтра нет.
// ENABLED с пустым списком ведёт себя как ALL.
func (c *Config) CoinFilter() map[string]struct{} {
	if c.Copy.CoinFilterMode != CoinFilterEnabled || len(c.Copy.EnabledCoins) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(c.Copy.EnabledCoins))
	for _, coin := range c.Copy.EnabledCoins {
		set[coin] = struct{}{}
	}
	return set
}

// CoinFilterLabel — для стартового баннера.
func (c *Config) CoinFilterLabel() string {
	set := c.CoinFilter()
	if set == nil {
		if c.Copy.CoinFilterMode == CoinFilterEnabled {
			return "ALL (ENABLED mode but no coins specified)"
		}
		return "ALL (no filter)"
	}
	coins := make([]string, 0, len(set))
	for coin := range set {
		coins = append(coins, coin)
	}
	sort.Strings(coins)
	return strings.Join(coins, ", ")
}

// ModeLabel — DRY RUN / LIVE TRADING.
func (c *Config) ModeLabel() string {
	if c.Copy.DryRun {
		return "DRY RUN"
	}
	return "LIVE TRADING"
}
