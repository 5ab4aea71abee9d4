// Package config loads all runtime configuration for the pipeline: CLI
// flags (spf13/pflag) are bound into a spf13/viper instance that also reads
// environment variables and an optional config file, so flags/env/file agree
// on one precedence order (flags win, then env, then file, then defaults).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Discovery DiscoveryConfig
	Venues    VenuesConfig
	Detector  DetectorConfig
	Sizer     SizerConfig
	Executor  ExecutorConfig
	Logging   LoggingConfig

	// Once завершает один цикл обнаружения/исполнения и выходит (для
	// одноразовых прогонов и интеграционных тестов).
	Once bool
}

// ServerConfig - настройки HTTP сервера (operator API)
type ServerConfig struct {
	ListenAddr    string
	DebugUsername string
	DebugPassword string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	URL     string // полный connection string; имеет приоритет над остальными полями
	Driver  string
	Host    string
	Port    int
	Name    string
	User    string
	Password string
	SSLMode string
}

// DSN возвращает connection string для database/sql.Open.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	EncryptionKey string // 32 байта, AES-256, для хранения venue credentials
}

// DiscoveryConfig - настройки discovery API реестра рынков
type DiscoveryConfig struct {
	BaseURL         string
	Timeout         time.Duration
	PollInterval    time.Duration // poll interval secs для обновления реестра
	RefreshInterval time.Duration // --refresh-interval
	MaxExpiryHours  int           // --max-expiry-hours
	MaxMarkets      int           // --max-markets
	Assets          []string      // --assets (через запятую)
}

// VenueConfig - настройки одного venue (websocket + REST + reconnect)
type VenueConfig struct {
	Name              string
	WSURL             string
	RESTURL           string
	ReconnectInterval time.Duration
	// APIKeyEncrypted is the venue's REST API key, AES-256-GCM encrypted
	// under security.encryption_key and base64-encoded at rest. Empty for
	// venues whose REST API needs no key.
	APIKeyEncrypted string
}

// VenuesConfig - настройки всех подключённых venue
type VenuesConfig struct {
	Venues             []VenueConfig
	ReconnectInterval  time.Duration // --reconnect-interval (дефолт для всех venue)
}

// DetectorConfig - пороги детектора возможностей
type DetectorConfig struct {
	MaxOrderbookAgeSecs    int
	MaxPriceAgeSecs        int
	MaxTimeToExpirySecs    int
	MinProfitAbsolute      string // десятичная строка, парсится в money.Price
	FeeRate                string
	SpreadTolerance        string
	PriceMismatchThreshold string
	PollInterval           time.Duration // --interval
}

// SizerConfig - настройки слиппедж-aware sizer
type SizerConfig struct {
	BasePositionSize string
	MaxPositionSize  string
	LiquidityThreshold string
	MaxTotalExposure   string
}

// ExecutorConfig - настройки исполнителя
type ExecutorConfig struct {
	EnableSequentialPlacement bool
	SequentialPollIntervalMs  int
	SequentialPollTimeoutSecs int
	DryRun                    bool
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load регистрирует флаги в собственном pflag.FlagSet, разбирает args,
// связывает их с viper вместе с переменными окружения и опциональным
// конфигурационным файлом, и строит итоговый Config.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("predictarb", pflag.ContinueOnError)

	fs.Bool("once", false, "run a single discover/detect/execute cycle then exit")
	fs.Duration("interval", 5*time.Second, "poll interval between detection cycles")
	fs.Int("max-expiry-hours", 24, "ignore markets expiring further out than this")
	fs.Int("max-markets", 500, "cap on active markets tracked per venue")
	fs.StringSlice("assets", nil, "comma-separated asset tags to discover")
	fs.Duration("refresh-interval", 60*time.Second, "registry refresh interval")
	fs.Duration("reconnect-interval", 2*time.Second, "venue websocket reconnect backoff")
	fs.Bool("dry-run", true, "simulate fills against an in-memory ledger instead of placing live orders")
	fs.String("config", "", "optional path to a config file (yaml, json, toml)")
	fs.String("listen-addr", ":8080", "operator HTTP API listen address")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PREDICTARB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if cfgFile, _ := fs.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "predictarb")
	v.SetDefault("database.user", "predictarb")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("discovery.base_url", "https://discovery.example.com")
	v.SetDefault("discovery.timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("detector.min_profit_absolute", "0.01")
	v.SetDefault("detector.fee_rate", "0.02")
	v.SetDefault("detector.spread_tolerance", "0.01")
	v.SetDefault("detector.price_mismatch_threshold", "0.05")
	v.SetDefault("sizer.base_position_size", "50")
	v.SetDefault("sizer.max_position_size", "500")
	v.SetDefault("sizer.liquidity_threshold", "100")
	v.SetDefault("sizer.max_total_exposure", "5000")
	v.SetDefault("executor.sequential_poll_interval_ms", 250)
	v.SetDefault("executor.sequential_poll_timeout_secs", 10)
	v.SetDefault("executor.enable_sequential_placement", true)

	cfg := &Config{
		Once: v.GetBool("once"),
		Server: ServerConfig{
			ListenAddr:    v.GetString("listen-addr"),
			DebugUsername: v.GetString("server.debug_username"),
			DebugPassword: v.GetString("server.debug_password"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("database.url"),
			Driver:   v.GetString("database.driver"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			Name:     v.GetString("database.name"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Security: SecurityConfig{
			EncryptionKey: v.GetString("security.encryption_key"),
		},
		Discovery: DiscoveryConfig{
			BaseURL:         v.GetString("discovery.base_url"),
			Timeout:         v.GetDuration("discovery.timeout"),
			RefreshInterval: v.GetDuration("refresh-interval"),
			MaxExpiryHours:  v.GetInt("max-expiry-hours"),
			MaxMarkets:      v.GetInt("max-markets"),
			Assets:          v.GetStringSlice("assets"),
		},
		Venues: VenuesConfig{
			ReconnectInterval: v.GetDuration("reconnect-interval"),
			Venues:            parseVenues(v),
		},
		Detector: DetectorConfig{
			MaxOrderbookAgeSecs:    v.GetInt("detector.max_orderbook_age_secs"),
			MaxPriceAgeSecs:        v.GetInt("detector.max_price_age_secs"),
			MaxTimeToExpirySecs:    v.GetInt("detector.max_time_to_expiry_secs"),
			MinProfitAbsolute:      v.GetString("detector.min_profit_absolute"),
			FeeRate:                v.GetString("detector.fee_rate"),
			SpreadTolerance:        v.GetString("detector.spread_tolerance"),
			PriceMismatchThreshold: v.GetString("detector.price_mismatch_threshold"),
			PollInterval:           v.GetDuration("interval"),
		},
		Sizer: SizerConfig{
			BasePositionSize:   v.GetString("sizer.base_position_size"),
			MaxPositionSize:    v.GetString("sizer.max_position_size"),
			LiquidityThreshold: v.GetString("sizer.liquidity_threshold"),
			MaxTotalExposure:   v.GetString("sizer.max_total_exposure"),
		},
		Executor: ExecutorConfig{
			EnableSequentialPlacement: v.GetBool("executor.enable_sequential_placement"),
			SequentialPollIntervalMs:  v.GetInt("executor.sequential_poll_interval_ms"),
			SequentialPollTimeoutSecs: v.GetInt("executor.sequential_poll_timeout_secs"),
			DryRun:                    v.GetBool("dry-run"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseVenues строит VenueConfig из venues.<name>.ws_url entries, falling
// back to the two venues this spec names when none are configured.
func parseVenues(v *viper.Viper) []VenueConfig {
	names := v.GetStringSlice("venues.names")
	if len(names) == 0 {
		names = []string{"polymarket", "kalshi"}
	}
	out := make([]VenueConfig, 0, len(names))
	for _, name := range names {
		out = append(out, VenueConfig{
			Name:            name,
			WSURL:           v.GetString(fmt.Sprintf("venues.%s.ws_url", name)),
			RESTURL:         v.GetString(fmt.Sprintf("venues.%s.rest_url", name)),
			APIKeyEncrypted: v.GetString(fmt.Sprintf("venues.%s.api_key_encrypted", name)),
		})
	}
	return out
}

// Validate проверяет обязательные поля и их ограничения.
func (c *Config) Validate() error {
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("security.encryption_key is required for encrypting venue credentials")
	}
	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("security.encryption_key must be exactly 32 bytes for AES-256")
	}
	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database.url or database.host is required")
	}
	return nil
}
