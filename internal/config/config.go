package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AdminUsers      []string      `mapstructure:"admin_users"`
}

// Addr returns the listen address for gin.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// LogConfig logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuctionConfig auto-extension settings read by the bid engine
type AuctionConfig struct {
	ExtensionMinutes int `mapstructure:"extension_minutes"`
	ThresholdMinutes int `mapstructure:"threshold_minutes"`
}

// SweeperConfig expiry sweeper settings
type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// OrderConfig order workflow policy
type OrderConfig struct {
	CancellableStatuses []string `mapstructure:"cancellable_statuses"`
}

// FeedbackConfig feedback policy: "after_sale" or "after_completion"
type FeedbackConfig struct {
	Policy string `mapstructure:"policy"`
}

// EligibilityConfig reputation thresholds for restricted auctions
type EligibilityConfig struct {
	MinSamples int     `mapstructure:"min_samples"`
	MinRatio   float64 `mapstructure:"min_ratio"`
}

// StorageConfig selects the ledger backend: "memory" or "postgres"
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// NotifyConfig notification transport; AMQP is used when AMQPURL is set
type NotifyConfig struct {
	AMQPURL string `mapstructure:"amqp_url"`
	Queue   string `mapstructure:"queue"`
}

// Config application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Auction     AuctionConfig     `mapstructure:"auction"`
	Sweeper     SweeperConfig     `mapstructure:"sweeper"`
	Order       OrderConfig       `mapstructure:"order"`
	Feedback    FeedbackConfig    `mapstructure:"feedback"`
	Eligibility EligibilityConfig `mapstructure:"eligibility"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Notify      NotifyConfig      `mapstructure:"notify"`
}

const (
	DefaultExtensionMinutes = 10
	DefaultThresholdMinutes = 5
	EnvPrefix               = "AUCTION"
)

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			AdminUsers:      []string{},
		},
		Log: LogConfig{
			Level: "info",
		},
		Auction: AuctionConfig{
			ExtensionMinutes: DefaultExtensionMinutes,
			ThresholdMinutes: DefaultThresholdMinutes,
		},
		Sweeper: SweeperConfig{
			Interval: 30 * time.Second,
		},
		Order: OrderConfig{
			CancellableStatuses: []string{"pending", "paid"},
		},
		Feedback: FeedbackConfig{
			Policy: "after_sale",
		},
		Eligibility: EligibilityConfig{
			MinSamples: 5,
			MinRatio:   0.8,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Notify: NotifyConfig{
			Queue: "auction_events",
		},
	}
}

// setDefaults registers every default with v so env vars can override keys absent from the file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.admin_users", d.Server.AdminUsers)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("auction.extension_minutes", d.Auction.ExtensionMinutes)
	v.SetDefault("auction.threshold_minutes", d.Auction.ThresholdMinutes)
	v.SetDefault("sweeper.interval", d.Sweeper.Interval)
	v.SetDefault("order.cancellable_statuses", d.Order.CancellableStatuses)
	v.SetDefault("feedback.policy", d.Feedback.Policy)
	v.SetDefault("eligibility.min_samples", d.Eligibility.MinSamples)
	v.SetDefault("eligibility.min_ratio", d.Eligibility.MinRatio)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("notify.amqp_url", d.Notify.AMQPURL)
	v.SetDefault("notify.queue", d.Notify.Queue)
}

// NewViper builds a viper instance reading path (optional) and AUCTION_* env vars.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}
	return v, nil
}

// Load reads the configuration from path and the environment
func Load(path string) (*Config, *viper.Viper, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("config: decode: %w", err)
	}
	// Comma-separated env values arrive as a single element.
	cfg.Order.CancellableStatuses = splitList(cfg.Order.CancellableStatuses)
	cfg.Server.AdminUsers = splitList(cfg.Server.AdminUsers)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func splitList(in []string) []string {
	if len(in) == 1 && strings.Contains(in[0], ",") {
		out := strings.Split(in[0], ",")
		for i := range out {
			out[i] = strings.TrimSpace(out[i])
		}
		return out
	}
	return in
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("config: sweeper.interval must be positive, got %s", c.Sweeper.Interval)
	}
	if c.Auction.ExtensionMinutes < 0 || c.Auction.ThresholdMinutes < 0 {
		return fmt.Errorf("config: auction extension/threshold minutes must be non-negative")
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Feedback.Policy {
	case "after_sale", "after_completion":
	default:
		return fmt.Errorf("config: unknown feedback.policy %q", c.Feedback.Policy)
	}
	if c.Eligibility.MinRatio < 0 || c.Eligibility.MinRatio > 1 {
		return fmt.Errorf("config: eligibility.min_ratio must be within [0, 1]")
	}
	return nil
}
