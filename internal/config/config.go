package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr             string `mapstructure:"addr"`
	Mode             string `mapstructure:"mode"`
	WebhookRateLimit int    `mapstructure:"webhook_rate_limit"`
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding headers are
	// honoured when resolving the client IP. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogMode      bool   `mapstructure:"log_mode"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type MidtransConfig struct {
	ServerKey    string `mapstructure:"server_key"`
	ClientKey    string `mapstructure:"client_key"`
	IsProduction bool   `mapstructure:"is_production"`
	SnapBaseURL  string `mapstructure:"snap_base_url"`

	// PaymentWindow is how long a Snap checkout accepts payment. It must end before the
	// pending expiry sweep gives up on the donation.
	PaymentWindow time.Duration `mapstructure:"payment_window"`
}

type ObservabilityConfig struct {
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	ExporterProtocol string  `mapstructure:"exporter_protocol"`
	SamplingRatio    float64 `mapstructure:"sampling_ratio"`
	LogLevel         string  `mapstructure:"log_level"`
	LogFormat        string  `mapstructure:"log_format"`
}

type ReportConfig struct {
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl"`
}

// SchedulerConfig controls the background sweep that expires abandoned pending donations.
// A zero PendingExpiry disables the sweep.
type SchedulerConfig struct {
	PendingExpiry time.Duration `mapstructure:"pending_expiry"`
	Interval      time.Duration `mapstructure:"interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type BootstrapConfig struct {
	SeedSampleData bool `mapstructure:"seed_sample_data"`
}

type Config struct {
	AppName       string              `mapstructure:"app_name"`
	Version       string              `mapstructure:"version"`
	Environment   string              `mapstructure:"environment"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Midtrans      MidtransConfig      `mapstructure:"midtrans"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Report        ReportConfig        `mapstructure:"report"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "donasi")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.webhook_rate_limit", 120)
	v.SetDefault("http.trusted_proxies", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/donasi.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_mode", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "donasi")
	v.SetDefault("midtrans.server_key", "")
	v.SetDefault("midtrans.client_key", "")
	v.SetDefault("midtrans.is_production", false)
	v.SetDefault("midtrans.snap_base_url", "")
	v.SetDefault("midtrans.payment_window", "12h")
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.exporter_endpoint", "")
	v.SetDefault("observability.exporter_protocol", "grpc")
	v.SetDefault("observability.sampling_ratio", 0.1)
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("report.stats_cache_ttl", "30s")
	v.SetDefault("scheduler.pending_expiry", "24h")
	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("bootstrap.seed_sample_data", false)
}

// Load reads configuration from an optional yaml file and DONASI_* environment overrides,
// e.g. DONASI_DATABASE_DSN or DONASI_MIDTRANS_SERVER_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DONASI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Scheduler.PendingExpiry > 0 && c.Midtrans.PaymentWindow >= c.Scheduler.PendingExpiry {
		return fmt.Errorf("midtrans.payment_window (%s) must be shorter than scheduler.pending_expiry (%s)",
			c.Midtrans.PaymentWindow, c.Scheduler.PendingExpiry)
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		if strings.TrimSpace(c.Midtrans.ServerKey) == "" {
			return fmt.Errorf("midtrans.server_key is required in production")
		}
	}
	return nil
}
