package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Forecast ForecastConfig `mapstructure:"forecast"`
	Peers    PeersConfig    `mapstructure:"peers"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CategoryConfig holds the business rules of one production category
type CategoryConfig struct {
	TargetAge  int     `mapstructure:"target_age"`
	PricePerKg float64 `mapstructure:"price_per_kg"`
}

// EfficiencyConfig holds the efficiency score weights and caps
type EfficiencyConfig struct {
	WeightShare    float64 `mapstructure:"weight_share"`
	CycleShare     float64 `mapstructure:"cycle_share"`
	SurvivalShare  float64 `mapstructure:"survival_share"`
	ROIShare       float64 `mapstructure:"roi_share"`
	WeightCapKg    float64 `mapstructure:"weight_cap_kg"`
	CycleReference float64 `mapstructure:"cycle_reference"`
}

// ThresholdsConfig holds the risk and recommendation thresholds
type ThresholdsConfig struct {
	MinGrowthRate      float64 `mapstructure:"min_growth_rate"`
	TargetROIPercent   float64 `mapstructure:"target_roi_percent"`
	NearTargetDays     int     `mapstructure:"near_target_days"`
	NearTargetRatio    float64 `mapstructure:"near_target_ratio"`
	HighMortalityRate  float64 `mapstructure:"high_mortality_rate"`
	RisingDailyRate    float64 `mapstructure:"rising_daily_rate"`
	GrowerCriticalAge  int     `mapstructure:"grower_critical_age"`
	BroilerAdvancedAge int     `mapstructure:"broiler_advanced_age"`
	PeerGrowthRatio    float64 `mapstructure:"peer_growth_ratio"`
	PeerMortalityRatio float64 `mapstructure:"peer_mortality_ratio"`
	PeerMarginGap      float64 `mapstructure:"peer_margin_gap"`
}

// ForecastConfig holds the injectable business tables of the forecaster
type ForecastConfig struct {
	Grower        CategoryConfig   `mapstructure:"grower"`
	Broiler       CategoryConfig   `mapstructure:"broiler"`
	Layer         CategoryConfig   `mapstructure:"layer"`
	ExpenseGrowth float64          `mapstructure:"expense_growth"`
	Efficiency    EfficiencyConfig `mapstructure:"efficiency"`
	Thresholds    ThresholdsConfig `mapstructure:"thresholds"`
}

// PeersConfig holds the peer-average source configuration
type PeersConfig struct {
	Source        string        `mapstructure:"source"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// Peer sources.
const (
	PeerSourceNone  = "none"
	PeerSourceStore = "store"
	PeerSourceHTTP  = "http"
)

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	ExportDir string `mapstructure:"export_dir"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// WatchConfig holds the periodic forecasting loop configuration
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	TopK     int           `mapstructure:"top_k"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// FLOCKCAST_STORAGE_DB_PATH overrides storage.db_path
	v.SetEnvPrefix("FLOCKCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	d := forecast.DefaultTables()

	// Forecast defaults
	for _, c := range models.Categories {
		key := "forecast." + strings.ToLower(string(c))
		v.SetDefault(key+".target_age", d.Categories[c].TargetAge)
		v.SetDefault(key+".price_per_kg", d.Categories[c].PricePerKg)
	}
	v.SetDefault("forecast.expense_growth", d.ExpenseGrowth)
	v.SetDefault("forecast.efficiency.weight_share", d.Efficiency.Weight)
	v.SetDefault("forecast.efficiency.cycle_share", d.Efficiency.CycleTime)
	v.SetDefault("forecast.efficiency.survival_share", d.Efficiency.Survival)
	v.SetDefault("forecast.efficiency.roi_share", d.Efficiency.ROI)
	v.SetDefault("forecast.efficiency.weight_cap_kg", d.Efficiency.WeightCap)
	v.SetDefault("forecast.efficiency.cycle_reference", d.Efficiency.CycleReference)

	th := d.Thresholds
	v.SetDefault("forecast.thresholds.min_growth_rate", th.MinGrowthRate)
	v.SetDefault("forecast.thresholds.target_roi_percent", th.TargetROIPercent)
	v.SetDefault("forecast.thresholds.near_target_days", th.NearTargetDays)
	v.SetDefault("forecast.thresholds.near_target_ratio", th.NearTargetRatio)
	v.SetDefault("forecast.thresholds.high_mortality_rate", th.HighMortalityRate)
	v.SetDefault("forecast.thresholds.rising_daily_rate", th.RisingDailyRate)
	v.SetDefault("forecast.thresholds.grower_critical_age", th.GrowerCriticalAge)
	v.SetDefault("forecast.thresholds.broiler_advanced_age", th.BroilerAdvancedAge)
	v.SetDefault("forecast.thresholds.peer_growth_ratio", th.PeerGrowthRatio)
	v.SetDefault("forecast.thresholds.peer_mortality_ratio", th.PeerMortalityRatio)
	v.SetDefault("forecast.thresholds.peer_margin_gap", th.PeerMarginGap)

	// Peers defaults
	v.SetDefault("peers.source", PeerSourceStore)
	v.SetDefault("peers.base_url", "")
	v.SetDefault("peers.timeout", "2s")
	v.SetDefault("peers.retries", 1)
	v.SetDefault("peers.redis_addr", "")
	v.SetDefault("peers.redis_password", "")
	v.SetDefault("peers.redis_db", 0)
	v.SetDefault("peers.cache_ttl", "15m")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/flockcast.db")
	v.SetDefault("storage.export_dir", "./data/exports")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Watch defaults
	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.cooldown", "24h")
	v.SetDefault("watch.top_k", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Forecast config
	if err := c.Forecast.Tables().Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}

	// Validate Peers config
	switch c.Peers.Source {
	case PeerSourceNone, PeerSourceStore:
	case PeerSourceHTTP:
		if c.Peers.BaseURL == "" {
			return fmt.Errorf("peers.base_url is required when peers.source is http")
		}
	default:
		return fmt.Errorf("peers.source must be one of: none, store, http")
	}
	if c.Peers.Timeout <= 0 {
		return fmt.Errorf("peers.timeout must be positive")
	}
	if c.Peers.Retries < 0 || c.Peers.Retries > 1 {
		return fmt.Errorf("peers.retries must be 0 or 1")
	}
	if c.Peers.RedisAddr != "" && c.Peers.CacheTTL < time.Second {
		return fmt.Errorf("peers.cache_ttl must be at least 1 second when redis is configured")
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("telegram.max_retries must be at least 1")
	}

	// Validate Watch config
	if c.Watch.Interval < 1*time.Minute {
		return fmt.Errorf("watch.interval must be at least 1 minute")
	}
	if c.Watch.Cooldown < 0 {
		return fmt.Errorf("watch.cooldown must not be negative")
	}
	if c.Watch.TopK < 1 {
		return fmt.Errorf("watch.top_k must be at least 1")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// Tables converts the forecast section into the forecaster's business tables
func (f ForecastConfig) Tables() forecast.Tables {
	category := func(c CategoryConfig) forecast.CategoryTable {
		return forecast.CategoryTable{TargetAge: c.TargetAge, PricePerKg: c.PricePerKg}
	}
	th := f.Thresholds
	return forecast.Tables{
		Categories: map[models.Category]forecast.CategoryTable{
			models.CategoryGrower:  category(f.Grower),
			models.CategoryBroiler: category(f.Broiler),
			models.CategoryLayer:   category(f.Layer),
		},
		ExpenseGrowth: f.ExpenseGrowth,
		Efficiency: forecast.EfficiencyWeights{
			Weight:         f.Efficiency.WeightShare,
			CycleTime:      f.Efficiency.CycleShare,
			Survival:       f.Efficiency.SurvivalShare,
			ROI:            f.Efficiency.ROIShare,
			WeightCap:      f.Efficiency.WeightCapKg,
			CycleReference: f.Efficiency.CycleReference,
		},
		Thresholds: forecast.Thresholds{
			MinGrowthRate:      th.MinGrowthRate,
			TargetROIPercent:   th.TargetROIPercent,
			NearTargetDays:     th.NearTargetDays,
			NearTargetRatio:    th.NearTargetRatio,
			HighMortalityRate:  th.HighMortalityRate,
			RisingDailyRate:    th.RisingDailyRate,
			GrowerCriticalAge:  th.GrowerCriticalAge,
			BroilerAdvancedAge: th.BroilerAdvancedAge,
			PeerGrowthRatio:    th.PeerGrowthRatio,
			PeerMortalityRatio: th.PeerMortalityRatio,
			PeerMarginGap:      th.PeerMarginGap,
		},
	}
}
