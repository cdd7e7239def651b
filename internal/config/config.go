package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"analog-exit/internal/distance"
	"analog-exit/internal/logging"
	"analog-exit/internal/trend"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
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
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs evaluation cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// EngineConfig tunes neighbour matching.
type EngineConfig struct {
	Workers        int     `mapstructure:"workers"`
	Metric         string  `mapstructure:"metric"`
	MatchRatio     float64 `mapstructure:"match_ratio"`
	PartialRatio   float64 `mapstructure:"partial_ratio"`
	Band           int     `mapstructure:"band"`
	TopN           int     `mapstructure:"top_n"`
	ConsensusSize  int     `mapstructure:"consensus_size"`
	MinAppearances int     `mapstructure:"min_appearances"`
	MinPoints      int     `mapstructure:"min_points"`
	Limit          int     `mapstructure:"limit"`
}

// DecisionConfig tunes the hold/close evaluation.
type DecisionConfig struct {
	Checkpoint float64 `mapstructure:"checkpoint"`
	TrendRatio float64 `mapstructure:"trend_ratio"`
	Profile    string  `mapstructure:"profile"`
}

// AlertingConfig defines alert routing. A zero Retention keeps alert records forever.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Cooldown  time.Duration  `mapstructure:"cooldown"`
	Retention time.Duration  `mapstructure:"retention"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxSeries int `mapstructure:"max_series"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ANALOGEXIT")
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
	v.SetDefault("app.name", "analogexit")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x616e6578))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.metric", string(distance.EuclideanDTWMetric))
	v.SetDefault("engine.match_ratio", 0.8)
	v.SetDefault("engine.partial_ratio", 1.0)
	v.SetDefault("engine.band", distance.DefaultBand)
	v.SetDefault("engine.top_n", 11)
	v.SetDefault("engine.consensus_size", 6)
	v.SetDefault("engine.min_appearances", 2)
	v.SetDefault("engine.min_points", 70)
	v.SetDefault("engine.limit", 3000)

	v.SetDefault("decision.checkpoint", 0.2)
	v.SetDefault("decision.trend_ratio", 0.8)
	v.SetDefault("decision.profile", "standard")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.retention", "720h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_series", 7)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
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
	if c.Export.MaxSeries <= 0 {
		return fmt.Errorf("export.max_series must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Decision.validate(); err != nil {
		return err
	}
	if c.Alerting.Retention < 0 {
		return fmt.Errorf("alerting.retention cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

func (e EngineConfig) validate() error {
	if _, err := distance.ParseMetric(e.Metric); err != nil {
		return fmt.Errorf("engine.metric: %w", err)
	}
	if err := distance.ValidateRatio(e.MatchRatio); err != nil {
		return fmt.Errorf("engine.match_ratio: %w", err)
	}
	if err := distance.ValidateRatio(e.PartialRatio); err != nil {
		return fmt.Errorf("engine.partial_ratio: %w", err)
	}
	for key, v := range map[string]int{
		"engine.workers":         e.Workers,
		"engine.top_n":           e.TopN,
		"engine.consensus_size":  e.ConsensusSize,
		"engine.min_appearances": e.MinAppearances,
		"engine.limit":           e.Limit,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be greater than zero", key)
		}
	}
	if e.Band < 0 {
		return fmt.Errorf("engine.band cannot be negative")
	}
	if e.MinPoints < 0 {
		return fmt.Errorf("engine.min_points cannot be negative")
	}
	return nil
}

func (d DecisionConfig) validate() error {
	if !(d.Checkpoint > 0 && d.Checkpoint < 1) {
		return fmt.Errorf("decision.checkpoint must be in (0,1)")
	}
	if !(d.TrendRatio > 0 && d.TrendRatio <= 1) {
		return fmt.Errorf("decision.trend_ratio must be in (0,1]")
	}
	if _, err := trend.LookupProfile(d.Profile); err != nil {
		return fmt.Errorf("decision.profile: %w", err)
	}
	return nil
}

// ResolveLimit returns either the CLI override or the configured batch limit.
func (c *Config) ResolveLimit(override int) int {
	if override > 0 {
		return override
	}
	return c.Engine.Limit
}

// ResolveMaxSeries returns either the CLI override or the configured export cap.
func (c *Config) ResolveMaxSeries(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxSeries
}
