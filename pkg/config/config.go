package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "THREADLEAF"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "THREADLEAF_DB_DSN"
	EnvDBHost = "THREADLEAF_DB_HOST"
	EnvDBUser = "THREADLEAF_DB_USER"
	EnvDBName = "THREADLEAF_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Returns      ReturnsConfig
	Orders       OrdersConfig
	Shipping     ShippingConfig
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
	Env          string `envconfig:"THREADLEAF_APP_ENV" required:"true"`
	Port         string `envconfig:"THREADLEAF_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"THREADLEAF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THREADLEAF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THREADLEAF_DB_DSN"`
	Driver string `envconfig:"THREADLEAF_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"THREADLEAF_DB_HOST"`
	LegacyPort     int    `envconfig:"THREADLEAF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"THREADLEAF_DB_USER"`
	LegacyPassword string `envconfig:"THREADLEAF_DB_PASSWORD"`
	LegacyName     string `envconfig:"THREADLEAF_DB_NAME"`
	LegacySSLMode  string `envconfig:"THREADLEAF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THREADLEAF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THREADLEAF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THREADLEAF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THREADLEAF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THREADLEAF_REDIS_URL"`
	Address      string        `envconfig:"THREADLEAF_REDIS_ADDR"`
	Password     string        `envconfig:"THREADLEAF_REDIS_PASSWORD"`
	DB           int           `envconfig:"THREADLEAF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THREADLEAF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THREADLEAF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THREADLEAF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THREADLEAF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THREADLEAF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THREADLEAF_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THREADLEAF_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THREADLEAF_JWT_EXPIRATION_MINUTES" default:"60"`
}

// ReturnsConfig governs the post-delivery return window.
type ReturnsConfig struct {
	WindowDays int `envconfig:"THREADLEAF_RETURN_WINDOW_DAYS" default:"7"`
}

type OrdersConfig struct {
	DefaultDeliveryCharge string `envconfig:"THREADLEAF_ORDERS_DEFAULT_DELIVERY_CHARGE" default:"0"`
}

type ShippingConfig struct {
	BaseURL  string        `envconfig:"THREADLEAF_SHIPPING_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	Email    string        `envconfig:"THREADLEAF_SHIPPING_EMAIL"`
	Password string        `envconfig:"THREADLEAF_SHIPPING_PASSWORD"`
	TokenTTL time.Duration `envconfig:"THREADLEAF_SHIPPING_TOKEN_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"THREADLEAF_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"THREADLEAF_AUTO_MIGRATE" default:"false"`
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
