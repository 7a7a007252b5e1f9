package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Razorpay     RazorpayConfig
	Orders       OrdersConfig
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
	Env          string `envconfig:"KACHABAZAAR_APP_ENV" required:"true"`
	Port         string `envconfig:"KACHABAZAAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KACHABAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KACHABAZAAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KACHABAZAAR_DB_DSN"`
	Driver string `envconfig:"KACHABAZAAR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"KACHABAZAAR_DB_HOST"`
	Port     int    `envconfig:"KACHABAZAAR_DB_PORT" default:"5432"`
	User     string `envconfig:"KACHABAZAAR_DB_USER"`
	Password string `envconfig:"KACHABAZAAR_DB_PASSWORD"`
	Name     string `envconfig:"KACHABAZAAR_DB_NAME"`
	SSLMode  string `envconfig:"KACHABAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KACHABAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KACHABAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KACHABAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KACHABAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KACHABAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KACHABAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"KACHABAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"KACHABAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KACHABAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KACHABAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KACHABAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KACHABAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KACHABAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RazorpayConfig struct {
	KeyID          string        `envconfig:"KACHABAZAAR_RAZORPAY_KEY_ID" required:"true"`
	KeySecret      string        `envconfig:"KACHABAZAAR_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret  string        `envconfig:"KACHABAZAAR_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	BaseURL        string        `envconfig:"KACHABAZAAR_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	RequestTimeout time.Duration `envconfig:"KACHABAZAAR_RAZORPAY_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	SellerOpenLimit    int           `envconfig:"KACHABAZAAR_ORDERS_SELLER_OPEN_LIMIT" default:"3"`
	WebhookDedupeTTL   time.Duration `envconfig:"KACHABAZAAR_ORDERS_WEBHOOK_DEDUPE_TTL" default:"720h"`
	IdempotencyKeyTTL  time.Duration `envconfig:"KACHABAZAAR_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
	DefaultCurrency    string        `envconfig:"KACHABAZAAR_ORDERS_DEFAULT_CURRENCY" default:"INR"`
	ExchangeCodeLength int           `envconfig:"KACHABAZAAR_ORDERS_EXCHANGE_CODE_LENGTH" default:"8"`
	SnapshotMaxBytes   int           `envconfig:"KACHABAZAAR_ORDERS_SNAPSHOT_MAX_BYTES" default:"16384"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KACHABAZAAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"KACHABAZAAR_DB_HOST": db.Host,
		"KACHABAZAAR_DB_USER": db.User,
		"KACHABAZAAR_DB_NAME": db.Name,
	}
	for _, env := range []string{"KACHABAZAAR_DB_HOST", "KACHABAZAAR_DB_USER", "KACHABAZAAR_DB_NAME"} {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either KACHABAZAAR_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
