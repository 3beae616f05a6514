package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Tenant       TenantConfig
	Pricing      PricingConfig
	Gateway      GatewayConfig
	Platform     PlatformConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Reconcile    ReconcileConfig
	Payment      PaymentConfig
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
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type TenantConfig struct {
	// DefaultID identifies the single tenant of the current deployment. All
	// catalog, contact and order rows are still scoped by tenant id.
	DefaultID string `envconfig:"STOREFRONT_TENANT_ID" default:"default"`
}

type PricingConfig struct {
	ReferenceCurrency string  `envconfig:"STOREFRONT_PRICING_REFERENCE_CURRENCY" default:"ILS"`
	FallbackRate      float64 `envconfig:"STOREFRONT_PRICING_FALLBACK_RATE" default:"3.7"`
	DefaultLanguage   string  `envconfig:"STOREFRONT_PRICING_DEFAULT_LANGUAGE" default:"he"`
}

type GatewayConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_GATEWAY_BASE_URL"`
	SandboxBaseURL string        `envconfig:"STOREFRONT_GATEWAY_SANDBOX_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"STOREFRONT_GATEWAY_REQUEST_TIMEOUT" default:"40s"`
}

type PlatformConfig struct {
	SquareAccessToken    string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	SquareEnv            string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	SquareLocationID     string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
	SquarePlanVariation  string `envconfig:"STOREFRONT_SQUARE_PLAN_VARIATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (p PlatformConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.SquareEnv))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"STOREFRONT_PUBSUB_NOTIFICATION_TOPIC" default:"storefront-notification-events"`
}

type ReconcileConfig struct {
	BatchSize    int           `envconfig:"STOREFRONT_RECONCILE_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"STOREFRONT_RECONCILE_POLL_INTERVAL" default:"30s"`
	MaxAttempts  int           `envconfig:"STOREFRONT_RECONCILE_MAX_ATTEMPTS" default:"10"`
}

type PaymentConfig struct {
	TokenTimeout time.Duration `envconfig:"STOREFRONT_PAYMENT_TOKEN_TIMEOUT" default:"30s"`
	ChargeLimit  int64         `envconfig:"STOREFRONT_PAYMENT_CHARGE_LIMIT" default:"5"`
	ChargeWindow time.Duration `envconfig:"STOREFRONT_PAYMENT_CHARGE_WINDOW" default:"1m"`
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
