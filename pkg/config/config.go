package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Pricing      PricingConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CINEPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"CINEPASS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CINEPASS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CINEPASS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CINEPASS_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"CINEPASS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"CINEPASS_DB_DSN"`
	Driver     string `envconfig:"CINEPASS_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"CINEPASS_SQLITE_PATH" default:"file:cinepass.db?cache=shared"`

	MaxOpenConns    int           `envconfig:"CINEPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CINEPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CINEPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CINEPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; when neither URL nor Address is set the process
// keeps cart and session state in the relational store instead.
type RedisConfig struct {
	URL          string        `envconfig:"CINEPASS_REDIS_URL"`
	Address      string        `envconfig:"CINEPASS_REDIS_ADDR"`
	Password     string        `envconfig:"CINEPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"CINEPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CINEPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CINEPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CINEPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CINEPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CINEPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"CINEPASS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CINEPASS_JWT_ISSUER" default:"cinepass"`
	ExpirationMinutes int    `envconfig:"CINEPASS_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TokenTTL returns the session token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CINEPASS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CINEPASS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CINEPASS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CINEPASS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CINEPASS_ARGON_KEY_LEN" default:"32"`
}

// PricingConfig holds the per-order surcharge and the tax rate applied to the
// discounted subtotal. Cinema tickets carry no tax by default.
type PricingConfig struct {
	ConvenienceFee decimal.Decimal `envconfig:"CINEPASS_CONVENIENCE_FEE" default:"5.00"`
	TaxRate        decimal.Decimal `envconfig:"CINEPASS_TAX_RATE" default:"0"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `envconfig:"CINEPASS_SESSION_IDLE_TIMEOUT" default:"30m"`
	CartTTL     time.Duration `envconfig:"CINEPASS_CART_TTL" default:"720h"`
	SweepEvery  time.Duration `envconfig:"CINEPASS_SESSION_SWEEP_INTERVAL" default:"1m"`
}

// RateLimitConfig throttles login and registration attempts per client IP
// and per email. Limits only apply when redis is configured.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"CINEPASS_AUTH_RATE_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"CINEPASS_AUTH_RATE_IP_LIMIT" default:"20"`
	EmailLimit int           `envconfig:"CINEPASS_AUTH_RATE_EMAIL_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"CINEPASS_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"CINEPASS_AUTO_MIGRATE" default:"false"`
	PersistCoupons bool `envconfig:"CINEPASS_PERSIST_COUPONS" default:"false"`
	WriteBehind    bool `envconfig:"CINEPASS_WRITE_BEHIND" default:"false"`
}

func (db DBConfig) validate(useSQLite bool) error {
	if useSQLite {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when %s is set", EnvSQLitePath, EnvUseSQLite)
		}
		return nil
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, EnvUseSQLite)
	}
	return nil
}

func (p PricingConfig) validate() error {
	if p.ConvenienceFee.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvConvenienceFee)
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvTaxRate)
	}
	return nil
}
