package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Payment providers understood by the invoice collaborator.
const (
	PaymentProviderXendit = "xendit"
	PaymentProviderStub   = "stub"
)

// Config is the service configuration. Field tags name the environment
// variable each value is read from.
type Config struct {
	AppEnv             string   `koanf:"APP_ENV"`
	Port               string   `koanf:"PORT"`
	DatabaseURL        string   `koanf:"DATABASE_URL"`
	RedisURL           string   `koanf:"REDIS_URL"`
	CORSAllowedOrigins []string `koanf:"CORS_ALLOWED_ORIGINS"`
	CurrencyCode       string   `koanf:"CURRENCY_CODE"`
	CurrencyLocale     string   `koanf:"CURRENCY_LOCALE"`
	MigrationsAuto     bool     `koanf:"MIGRATIONS_AUTO"`

	PricingCacheTTL time.Duration `koanf:"PRICING_CACHE_TTL"`

	PromoDebounce      time.Duration `koanf:"PROMO_DEBOUNCE"`
	PromoValidatorURL  string        `koanf:"PROMO_VALIDATOR_URL"`
	PromoValidatorKey  string        `koanf:"PROMO_VALIDATOR_TOKEN"`
	PromoRateLimit     string        `koanf:"PROMO_RATE_LIMIT"`
	IdempotencyTTL     time.Duration `koanf:"IDEMPOTENCY_TTL"`
	OutboundTimeout    time.Duration `koanf:"OUTBOUND_TIMEOUT"`
	CircuitMinRequests int           `koanf:"CIRCUIT_MIN_REQUESTS"`
	CircuitFailureRate float64       `koanf:"CIRCUIT_FAILURE_RATIO"`
	CircuitOpenFor     time.Duration `koanf:"CIRCUIT_OPEN_FOR"`

	PaymentProvider           string        `koanf:"PAYMENT_PROVIDER"`
	XenditSecretKey           string        `koanf:"XENDIT_SECRET_KEY"`
	XenditBaseURL             string        `koanf:"XENDIT_BASE_URL"`
	PaymentInvoiceDuration    time.Duration `koanf:"PAYMENT_INVOICE_DURATION"`
	PaymentSuccessRedirectURL string        `koanf:"PAYMENT_SUCCESS_REDIRECT_URL"`
	PaymentFailureRedirectURL string        `koanf:"PAYMENT_FAILURE_REDIRECT_URL"`

	Obs           Obs           `koanf:",squash"`
	ShutdownGrace time.Duration `koanf:"SHUTDOWN_GRACE"`
}

// Obs configures logging, metrics and tracing.
type Obs struct {
	LogFormat         string  `koanf:"OBS_LOG_FORMAT"`
	LogLevel          string  `koanf:"OBS_LOG_LEVEL"`
	MetricsEnabled    bool    `koanf:"OBS_ENABLE_PROMETHEUS"`
	MetricsNamespace  string  `koanf:"OBS_METRICS_NAMESPACE"`
	MetricsBucketsMs  string  `koanf:"OBS_METRICS_BUCKETS_MS"`
	TracingEnabled    bool    `koanf:"OBS_ENABLE_TRACING"`
	TracingExporter   string  `koanf:"OBS_TRACING_EXPORTER"`
	OTLPEndpoint      string  `koanf:"OBS_OTLP_ENDPOINT"`
	TracingSampleRate float64 `koanf:"OBS_TRACING_SAMPLING_RATIO"`
	ServiceVersion    string  `koanf:"SERVICE_VERSION"`
}

var defaults = map[string]any{
	"APP_ENV":                  "development",
	"PORT":                     "8080",
	"CURRENCY_CODE":            "IDR",
	"CURRENCY_LOCALE":          "id-ID",
	"PRICING_CACHE_TTL":        "60s",
	"PROMO_DEBOUNCE":           "450ms",
	"PROMO_RATE_LIMIT":         "30-M",
	"IDEMPOTENCY_TTL":          "24h",
	"OUTBOUND_TIMEOUT":         "5s",
	"CIRCUIT_MIN_REQUESTS":     "5",
	"CIRCUIT_FAILURE_RATIO":    "0.5",
	"CIRCUIT_OPEN_FOR":         "30s",
	"PAYMENT_PROVIDER":         PaymentProviderStub,
	"XENDIT_BASE_URL":          "https://api.xendit.co",
	"PAYMENT_INVOICE_DURATION": "24h",
	"SHUTDOWN_GRACE":           "15s",

	"OBS_LOG_FORMAT":             "json",
	"OBS_LOG_LEVEL":              "info",
	"OBS_ENABLE_PROMETHEUS":      "true",
	"OBS_METRICS_NAMESPACE":      "langganan",
	"OBS_ENABLE_TRACING":         "true",
	"OBS_TRACING_EXPORTER":       "otlp",
	"OBS_TRACING_SAMPLING_RATIO": "1",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	return load(nil)
}

// LoadForTests layers overrides on top of the environment without mutating
// it. An empty override value removes the key so its default applies.
func LoadForTests(overrides map[string]string) (*Config, error) {
	return load(overrides)
}

func load(overrides map[string]string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config default %s: %w", key, err)
		}
	}
	// Blank variables keep their default.
	skipBlank := func(key, value string) (string, any) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, strings.TrimSpace(value)
	}
	if err := k.Load(env.ProviderWithValue("", ".", skipBlank), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	for key, value := range overrides {
		if strings.TrimSpace(value) == "" {
			k.Delete(key)
			if d, ok := defaults[key]; ok {
				_ = k.Set(key, d)
			}
			continue
		}
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() {
	var origins []string
	for _, entry := range c.CORSAllowedOrigins {
		for o := range strings.SplitSeq(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	c.CORSAllowedOrigins = origins
	c.CurrencyCode = strings.ToUpper(c.CurrencyCode)
	c.PaymentProvider = strings.ToLower(c.PaymentProvider)
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.CircuitFailureRate <= 0 || c.CircuitFailureRate > 1 {
		errs = append(errs, fmt.Errorf("CIRCUIT_FAILURE_RATIO must be in (0,1], got %v", c.CircuitFailureRate))
	}
	switch c.PaymentProvider {
	case PaymentProviderStub:
	case PaymentProviderXendit:
		if c.XenditSecretKey == "" {
			errs = append(errs, errors.New("XENDIT_SECRET_KEY is required when PAYMENT_PROVIDER=xendit"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server binds to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
