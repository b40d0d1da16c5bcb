// Package config handles configuration loading and validation for TOS Pool.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the pool
type Config struct {
	Pool       PoolConfig       `mapstructure:"pool"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Validation ValidationConfig `mapstructure:"validation"`
	API        APIConfig        `mapstructure:"api"`
	Log        LogConfig        `mapstructure:"log"`
	Vault      VaultConfig      `mapstructure:"vault"`
	NewRelic   NewRelicConfig   `mapstructure:"newrelic"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Profiling  ProfilingConfig  `mapstructure:"profiling"`
}

// PoolConfig defines pool identity settings
type PoolConfig struct {
	Name       string  `mapstructure:"name"`
	Fee        float64 `mapstructure:"fee"`
	FeeAddress string  `mapstructure:"fee_address"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ValidationConfig defines the windows used for derived hashrate/throughput
// reporting in the admin API.
type ValidationConfig struct {
	HashrateWindow      time.Duration `mapstructure:"hashrate_window"`
	HashrateLargeWindow time.Duration `mapstructure:"hashrate_large_window"`
}

// APIConfig defines API server settings
type APIConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Bind          string        `mapstructure:"bind"`
	StatsCache    time.Duration `mapstructure:"stats_cache"`
	CORSOrigins   []string      `mapstructure:"cors_origins"`
	AdminEnabled  bool          `mapstructure:"admin_enabled"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// VaultConfig defines reward vault engine settings.
type VaultConfig struct {
	TickInterval           time.Duration      `mapstructure:"tick_interval"`
	ResultChannelCapacity  int                `mapstructure:"result_channel_capacity"`
	RatioSumToleranceLow   uint64             `mapstructure:"ratio_sum_tolerance_low"`
	RatioSumToleranceHigh  uint64             `mapstructure:"ratio_sum_tolerance_high"`
	PostExpiryGrace        time.Duration      `mapstructure:"post_expiry_grace"`
	MaxDistributionRetries int                `mapstructure:"max_distribution_retries"`
	RetryBackoff           time.Duration      `mapstructure:"retry_backoff"`
	RateSchedule           RateScheduleConfig `mapstructure:"rate_schedule"`
}

// RateScheduleConfig seeds the reward vault engine's initial RateSchedule.
type RateScheduleConfig struct {
	BaseRatePerByteDay uint64             `mapstructure:"base_rate_per_byte_day"`
	RetrievalRate      uint64             `mapstructure:"retrieval_rate"`
	OperationRate      uint64             `mapstructure:"operation_rate"`
	UptimeMultiplier   float64            `mapstructure:"uptime_multiplier"`
	RegionMultipliers  map[string]float64 `mapstructure:"region_multipliers"`
}

// NewRelicConfig defines APM reporting settings for the telemetry package.
type NewRelicConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// NotifyConfig defines outbound event notification settings.
type NotifyConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DiscordURL   string `mapstructure:"discord_url"`
	TelegramBot  string `mapstructure:"telegram_bot"`
	TelegramChat string `mapstructure:"telegram_chat"`
	PoolURL      string `mapstructure:"pool_url"`
}

// ProfilingConfig defines the pprof debug server settings.
type ProfilingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bind    string `mapstructure:"bind"`
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tos-pool")
	}

	// Read environment variables
	v.SetEnvPrefix("TOS_POOL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Pool defaults
	v.SetDefault("pool.name", "TOS Reward Vault")
	v.SetDefault("pool.fee", 1.0)

	// Redis defaults
	v.SetDefault("redis.url", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	// Validation defaults
	v.SetDefault("validation.hashrate_window", "10m")
	v.SetDefault("validation.hashrate_large_window", "3h")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.bind", "0.0.0.0:8080")
	v.SetDefault("api.stats_cache", "10s")
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.admin_enabled", false)

	// Vault defaults
	v.SetDefault("vault.tick_interval", "60s")
	v.SetDefault("vault.result_channel_capacity", 100)
	v.SetDefault("vault.ratio_sum_tolerance_low", 990000)
	v.SetDefault("vault.ratio_sum_tolerance_high", 1010000)
	v.SetDefault("vault.post_expiry_grace", "720h")
	v.SetDefault("vault.max_distribution_retries", 3)
	v.SetDefault("vault.retry_backoff", "5m")
	v.SetDefault("vault.rate_schedule.base_rate_per_byte_day", 100)
	v.SetDefault("vault.rate_schedule.retrieval_rate", 10)
	v.SetDefault("vault.rate_schedule.operation_rate", 5)
	v.SetDefault("vault.rate_schedule.uptime_multiplier", 1.0)

	// NewRelic defaults
	v.SetDefault("newrelic.enabled", false)
	v.SetDefault("newrelic.app_name", "tos-pool")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Notify defaults
	v.SetDefault("notify.enabled", false)

	// Profiling defaults
	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.bind", "127.0.0.1:6060")
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.Pool.FeeAddress == "" {
		return fmt.Errorf("pool.fee_address is required")
	}

	if c.Pool.Fee < 0 || c.Pool.Fee > 100 {
		return fmt.Errorf("pool.fee must be between 0 and 100")
	}

	if c.Vault.RatioSumToleranceLow > c.Vault.RatioSumToleranceHigh {
		return fmt.Errorf("vault.ratio_sum_tolerance_low must be <= ratio_sum_tolerance_high")
	}

	if c.Vault.ResultChannelCapacity <= 0 {
		return fmt.Errorf("vault.result_channel_capacity must be > 0")
	}

	if c.API.AdminEnabled && c.API.AdminPassword == "" {
		return fmt.Errorf("api.admin_password is required when admin is enabled")
	}

	if c.NewRelic.Enabled && c.NewRelic.LicenseKey == "" {
		return fmt.Errorf("newrelic.license_key is required when newrelic is enabled")
	}

	return nil
}
