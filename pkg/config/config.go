package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Catalog      CatalogConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPSPHERE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSPHERE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPSPHERE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSPHERE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPSPHERE_DB_DSN"`
	Driver string `envconfig:"SHOPSPHERE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPSPHERE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPSPHERE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPSPHERE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPSPHERE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPSPHERE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPSPHERE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSPHERE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSPHERE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSPHERE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSPHERE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSPHERE_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"SHOPSPHERE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSPHERE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSPHERE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSPHERE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSPHERE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPSPHERE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPSPHERE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPSPHERE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CatalogConfig carries the injected store-owner identity used when products
// are created through the admin surface without an explicit owner.
type CatalogConfig struct {
	OwnerID string `envconfig:"SHOPSPHERE_CATALOG_OWNER_ID" required:"true"`
}

func (c CatalogConfig) validate() error {
	if _, err := uuid.Parse(c.OwnerID); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvCatalogOwnerID, err)
	}
	return nil
}

// OwnerUUID returns the parsed store-owner id. Load has already validated it.
func (c CatalogConfig) OwnerUUID() uuid.UUID {
	id, _ := uuid.Parse(c.OwnerID)
	return id
}

type CheckoutConfig struct {
	ShippingFlatCents    int            `envconfig:"SHOPSPHERE_CHECKOUT_SHIPPING_FLAT_CENTS" default:"500"`
	FreeShippingMinCents int            `envconfig:"SHOPSPHERE_CHECKOUT_FREE_SHIPPING_MIN_CENTS" default:"10000"`
	CouponPercents       map[string]int `envconfig:"SHOPSPHERE_CHECKOUT_COUPON_PERCENTS"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPSPHERE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPSPHERE_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	Channel        string `envconfig:"SHOPSPHERE_OUTBOX_CHANNEL" default:"shopsphere-domain-events"`
	BatchSize      int    `envconfig:"SHOPSPHERE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"SHOPSPHERE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"SHOPSPHERE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
