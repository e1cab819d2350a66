package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "trystyle"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TRYSTYLE_DB_DSN"
	EnvDBHost = "TRYSTYLE_DB_HOST"
	EnvDBUser = "TRYSTYLE_DB_USER"
	EnvDBName = "TRYSTYLE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Checkout     CheckoutConfig
	Pricing      PricingConfig
	Razorpay     RazorpayConfig
	Stripe       StripeConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRYSTYLE_APP_ENV" required:"true"`
	Port         string `envconfig:"TRYSTYLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRYSTYLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRYSTYLE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRYSTYLE_DB_DSN"`
	Driver string `envconfig:"TRYSTYLE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRYSTYLE_DB_HOST"`
	LegacyPort     int    `envconfig:"TRYSTYLE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRYSTYLE_DB_USER"`
	LegacyPassword string `envconfig:"TRYSTYLE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRYSTYLE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRYSTYLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRYSTYLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRYSTYLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRYSTYLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRYSTYLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRYSTYLE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRYSTYLE_REDIS_ADDR"`
	Password     string        `envconfig:"TRYSTYLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRYSTYLE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRYSTYLE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRYSTYLE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRYSTYLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRYSTYLE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRYSTYLE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRYSTYLE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRYSTYLE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRYSTYLE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"TRYSTYLE_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"TRYSTYLE_RATE_LIMIT_MAX" default:"120"`
}

// CheckoutConfig tunes reservation holds and the expiry sweep.
type CheckoutConfig struct {
	ReservationTTL    time.Duration `envconfig:"TRYSTYLE_RESERVATION_TTL" default:"10m"`
	SweepInterval     time.Duration `envconfig:"TRYSTYLE_RESERVATION_SWEEP_INTERVAL" default:"5m"`
	LowStockThreshold int           `envconfig:"TRYSTYLE_LOW_STOCK_THRESHOLD" default:"10"`
	ReturnWindowDays  int           `envconfig:"TRYSTYLE_RETURN_WINDOW_DAYS" default:"7"`
}

// PricingConfig holds tax and shipping knobs for the pricing engine.
type PricingConfig struct {
	SellerState           string `envconfig:"TRYSTYLE_SELLER_STATE" default:"Maharashtra"`
	DefaultGSTRate        string `envconfig:"TRYSTYLE_DEFAULT_GST_RATE" default:"0.18"`
	FreeShippingThreshold int64  `envconfig:"TRYSTYLE_FREE_SHIPPING_THRESHOLD_PAISE" default:"99900"`
	DefaultShippingPaise  int64  `envconfig:"TRYSTYLE_DEFAULT_SHIPPING_PAISE" default:"9900"`
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"TRYSTYLE_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"TRYSTYLE_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"TRYSTYLE_RAZORPAY_WEBHOOK_SECRET"`
}

type StripeConfig struct {
	APIKey string `envconfig:"TRYSTYLE_STRIPE_API_KEY"`
	Secret string `envconfig:"TRYSTYLE_STRIPE_SECRET"`
	Env    string `envconfig:"TRYSTYLE_STRIPE_ENV" default:"test"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRYSTYLE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRYSTYLE_AUTO_MIGRATE" default:"false"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
