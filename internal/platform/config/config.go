package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, read from the environment once at
// startup.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"local"`

	Server    ServerConfig
	Redis     RedisConfig
	OTP       OTPConfig
	Status    StatusConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr            string        `env:"DBTCHECK_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL"                 envDefault:"info"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"           envDefault:"45s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"          envDefault:"15s"`
	SessionTTL      time.Duration `env:"SESSION_TTL"               envDefault:"30m"`
	SweepInterval   time.Duration `env:"SESSION_SWEEP_INTERVAL"    envDefault:"1m"`
}

// RedisConfig selects the shared session and rate limit backend. An empty URL
// keeps everything in process memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// OTPConfig controls the simulated one-time password. Zero MaxAttempts and
// Expiry mean unlimited attempts and no expiry. There is no out-of-band
// delivery channel: with InBand false the code is withheld from every
// response, so a production deployment cannot complete a check until one is
// added.
type OTPConfig struct {
	InBand      bool          `env:"OTP_IN_BAND"      envDefault:"true"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"0"`
	Expiry      time.Duration `env:"OTP_EXPIRY"       envDefault:"0s"`
}

const (
	VerifierSimulated = "simulated"
	VerifierRegistry  = "registry"
)

// StatusConfig selects how status fields are resolved and paced.
type StatusConfig struct {
	Verifier         string        `env:"VERIFIER"                 envDefault:"simulated"`
	RegistryURL      string        `env:"REGISTRY_URL"`
	RegistryAPIKey   string        `env:"REGISTRY_API_KEY"`
	RegistryTimeout  time.Duration `env:"REGISTRY_TIMEOUT"         envDefault:"5s"`
	BreakerFailures  int           `env:"REGISTRY_BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccesses int           `env:"REGISTRY_BREAKER_SUCCESSES" envDefault:"2"`
	LeadIn           time.Duration `env:"STATUS_LEAD_IN"           envDefault:"0s"`
	Step2Delay       time.Duration `env:"STATUS_STEP2_DELAY"       envDefault:"400ms"`
	Step3Delay       time.Duration `env:"STATUS_STEP3_DELAY"       envDefault:"600ms"`
	RunTimeout       time.Duration `env:"STATUS_RUN_TIMEOUT"       envDefault:"30s"`
}

// ChatConfig configures the generative chat proxy. The key never leaves the
// server.
type ChatConfig struct {
	APIKey         string        `env:"GEMINI_API_KEY"`
	BaseURL        string        `env:"GEMINI_BASE_URL"        envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Model          string        `env:"GEMINI_MODEL"           envDefault:"gemini-1.5-flash-latest"`
	Timeout        time.Duration `env:"CHAT_TIMEOUT"           envDefault:"30s"`
	ServerBackoff  time.Duration `env:"CHAT_SERVER_BACKOFF"    envDefault:"1s"`
	NetworkBackoff time.Duration `env:"CHAT_NETWORK_BACKOFF"   envDefault:"2s"`
	MaxConcurrent  int64         `env:"CHAT_MAX_CONCURRENT"    envDefault:"16"`
}

// RateLimitConfig holds per-IP request allowances per endpoint class.
type RateLimitConfig struct {
	Disabled      bool          `env:"RATE_LIMIT_DISABLED"        envDefault:"false"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW"          envDefault:"1m"`
	StartPerIP    int           `env:"RATE_LIMIT_START_PER_IP"    envDefault:"20"`
	OTPPerIP      int           `env:"RATE_LIMIT_OTP_PER_IP"      envDefault:"30"`
	ChatPerIP     int           `env:"RATE_LIMIT_CHAT_PER_IP"     envDefault:"20"`
	ReadPerIP     int           `env:"RATE_LIMIT_READ_PER_IP"     envDefault:"300"`
	Allowlist     []string      `env:"RATE_LIMIT_ALLOWLIST"       envSeparator:","`

	// TrustedProxies lists addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL"  envDefault:"1m"`
}

// TracingConfig enables OTLP/HTTP span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"dbtcheck"`
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production") || strings.EqualFold(c.Environment, "prod")
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations that are unsafe or cannot be wired.
func (c Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.OTP.InBand {
		errs = append(errs, errors.New("OTP_IN_BAND must be false when APP_ENV is production"))
	}
	if c.IsProduction() && strings.EqualFold(c.Status.Verifier, VerifierSimulated) {
		errs = append(errs, errors.New("VERIFIER=simulated is not allowed when APP_ENV is production"))
	}
	for _, v := range c.RateLimit.TrustedProxies {
		if err := validateProxy(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
		}
	}
	switch strings.ToLower(c.Status.Verifier) {
	case VerifierSimulated:
	case VerifierRegistry:
		if strings.TrimSpace(c.Status.RegistryURL) == "" {
			errs = append(errs, errors.New("REGISTRY_URL is required when VERIFIER=registry"))
		}
	default:
		errs = append(errs, fmt.Errorf("VERIFIER must be %q or %q, got %q", VerifierSimulated, VerifierRegistry, c.Status.Verifier))
	}
	if c.OTP.MaxAttempts < 0 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must not be negative"))
	}
	if c.OTP.Expiry < 0 {
		errs = append(errs, errors.New("OTP_EXPIRY must not be negative"))
	}
	if c.Status.LeadIn < 0 || c.Status.Step2Delay < 0 || c.Status.Step3Delay < 0 {
		errs = append(errs, errors.New("status delays must not be negative"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Chat.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("CHAT_MAX_CONCURRENT must be positive"))
	}
	return errors.Join(errs...)
}

func validateProxy(v string) error {
	if v == "" {
		return nil
	}
	if strings.Contains(v, "/") {
		_, err := netip.ParsePrefix(v)
		return err
	}
	_, err := netip.ParseAddr(v)
	return err
}
