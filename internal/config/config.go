package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	recharge "meterpay/internal/recharge/domain"
)

// Report series sources.
const (
	SourceSeeded   = "seeded"
	SourcePostgres = "postgres"
)

// Config is the process configuration.
type Config struct {
	HTTPAddr       string         `yaml:"http_addr"`
	DatabaseURL    string         `yaml:"database_url"`
	BackendBaseURL string         `yaml:"backend_base_url"`
	Auth           AuthConfig     `yaml:"auth"`
	Checkout       CheckoutConfig `yaml:"checkout"`
	Report         ReportConfig   `yaml:"report"`
}

// AuthConfig configures bearer and checkout tokens.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// CheckoutConfig configures the recharge flow and the provider surface.
type CheckoutConfig struct {
	KeyID        string        `yaml:"key_id"`
	MerchantName string        `yaml:"merchant_name"`
	ThemeColor   string        `yaml:"theme_color"`
	ScriptURL    string        `yaml:"script_url"`
	Currency     string        `yaml:"currency"`
	ServiceFee   float64       `yaml:"service_fee"`
	Tax          float64       `yaml:"tax"`
	Presets      []int64       `yaml:"presets"`
	Timeout      time.Duration `yaml:"timeout"`
	HandoffDelay time.Duration `yaml:"handoff_delay"`
}

// ReportConfig configures aggregation and export delivery.
type ReportConfig struct {
	Source          string  `yaml:"source"`
	RatePerKWh      float64 `yaml:"rate_per_kwh"`
	ExportRoot      string  `yaml:"export_root"`
	ShareWebhookURL string  `yaml:"share_webhook_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Auth: AuthConfig{
			Issuer:     "meterpay",
			SessionTTL: 12 * time.Hour,
		},
		Checkout: CheckoutConfig{
			MerchantName: "Energy Meter Recharge",
			ThemeColor:   "#1E88E5",
			Currency:     recharge.CurrencyINR,
			ServiceFee:   10,
			Tax:          1.8,
			Presets:      []int64{100, 200, 500, 1000, 2000, 5000},
			Timeout:      15 * time.Minute,
		},
		Report: ReportConfig{
			Source:     SourceSeeded,
			RatePerKWh: 8,
			ExportRoot: filepath.FromSlash("var/exports"),
		},
	}
}

// Load applies defaults, then the YAML file named by METERPAY_CONFIG, then env overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("METERPAY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.BackendBaseURL = getenvDefault("BACKEND_BASE_URL", cfg.BackendBaseURL)

	cfg.Auth.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = getenvDefault("AUTH_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.SessionTTL = getenvDuration("SESSION_TTL", cfg.Auth.SessionTTL)

	cfg.Checkout.KeyID = getenvDefault("CHECKOUT_KEY_ID", cfg.Checkout.KeyID)
	cfg.Checkout.MerchantName = getenvDefault("CHECKOUT_MERCHANT_NAME", cfg.Checkout.MerchantName)
	cfg.Checkout.ScriptURL = getenvDefault("CHECKOUT_SCRIPT_URL", cfg.Checkout.ScriptURL)
	cfg.Checkout.ServiceFee = getenvFloatDefault("SERVICE_FEE", cfg.Checkout.ServiceFee)
	cfg.Checkout.Tax = getenvFloatDefault("TAX", cfg.Checkout.Tax)
	cfg.Checkout.Timeout = getenvDuration("CHECKOUT_TIMEOUT", cfg.Checkout.Timeout)
	cfg.Checkout.HandoffDelay = getenvDuration("CHECKOUT_HANDOFF_DELAY", cfg.Checkout.HandoffDelay)
	if presets := splitCSV(os.Getenv("CHECKOUT_PRESETS")); len(presets) > 0 {
		parsed := make([]int64, 0, len(presets))
		for _, p := range presets {
			v, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				parsed = nil
				break
			}
			parsed = append(parsed, v)
		}
		if len(parsed) > 0 {
			cfg.Checkout.Presets = parsed
		}
	}

	cfg.Report.Source = getenvDefault("REPORT_SOURCE", cfg.Report.Source)
	cfg.Report.RatePerKWh = getenvFloatDefault("RATE_PER_KWH", cfg.Report.RatePerKWh)
	cfg.Report.ExportRoot = getenvDefault("EXPORT_ROOT", cfg.Report.ExportRoot)
	cfg.Report.ShareWebhookURL = getenvDefault("SHARE_WEBHOOK_URL", cfg.Report.ShareWebhookURL)
}

// Validate checks required fields and bounds.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("config: AUTH_JWT_SECRET is required"))
	}
	if c.BackendBaseURL == "" {
		errs = append(errs, errors.New("config: BACKEND_BASE_URL is required"))
	}
	if c.Checkout.KeyID == "" {
		errs = append(errs, errors.New("config: CHECKOUT_KEY_ID is required"))
	}
	if !finite(c.Checkout.ServiceFee) || !finite(c.Checkout.Tax) {
		errs = append(errs, errors.New("config: fees must be finite numbers"))
	} else if c.Checkout.ServiceFee < 0 || c.Checkout.Tax < 0 {
		errs = append(errs, errors.New("config: fees must be non-negative"))
	}
	if c.Checkout.Timeout <= 0 {
		errs = append(errs, errors.New("config: checkout timeout must be positive"))
	}
	if c.Checkout.HandoffDelay < 0 {
		errs = append(errs, errors.New("config: handoff delay must not be negative"))
	}
	if len(c.Checkout.Presets) == 0 {
		errs = append(errs, errors.New("config: at least one preset is required"))
	}
	for _, p := range c.Checkout.Presets {
		if !recharge.ChargeAmountFromInt(p).InRange() {
			errs = append(errs, fmt.Errorf("config: preset %d outside %s..%s", p, recharge.MinChargeAmount, recharge.MaxChargeAmount))
		}
	}
	if !finite(c.Report.RatePerKWh) || c.Report.RatePerKWh < 0 {
		errs = append(errs, errors.New("config: rate per kWh must be a non-negative number"))
	}
	switch c.Report.Source {
	case SourceSeeded:
	case SourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for the postgres report source"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown report source %q", c.Report.Source))
	}
	if c.Report.ExportRoot == "" {
		errs = append(errs, errors.New("config: export root is required"))
	}
	return errors.Join(errs...)
}

// Catalog converts the configured presets.
func (c CheckoutConfig) Catalog() recharge.Catalog {
	catalog := make(recharge.Catalog, 0, len(c.Presets))
	for _, p := range c.Presets {
		catalog = append(catalog, recharge.ChargeAmountFromInt(p))
	}
	return catalog
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
