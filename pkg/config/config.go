package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App              AppConfig
	Service          ServiceConfig
	DB               DBConfig
	Redis            RedisConfig
	JWT              JWTConfig
	Password         PasswordConfig
	AuthRateLimit    AuthRateLimitConfig
	GatewayRateLimit GatewayRateLimitConfig
	FeatureFlags     FeatureFlagsConfig
	VNPay            VNPayConfig
	Currency         CurrencyConfig
	Payments         PaymentsConfig
	Cron             CronConfig
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
	Env          string `envconfig:"GAMEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"GAMEHUB_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"GAMEHUB_APP_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"GAMEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GAMEHUB_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"GAMEHUB_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"GAMEHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GAMEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GAMEHUB_DB_DSN"`
	Driver string `envconfig:"GAMEHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GAMEHUB_DB_HOST"`
	Port     int    `envconfig:"GAMEHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"GAMEHUB_DB_USER"`
	Password string `envconfig:"GAMEHUB_DB_PASSWORD"`
	Name     string `envconfig:"GAMEHUB_DB_NAME"`
	SSLMode  string `envconfig:"GAMEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GAMEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GAMEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAMEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GAMEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GAMEHUB_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// NormalizedDriver lower-cases the configured driver and defaults to postgres.
func (db DBConfig) NormalizedDriver() string {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if driver == "" {
		return DBDriverPostgres
	}
	return driver
}

type RedisConfig struct {
	URL          string        `envconfig:"GAMEHUB_REDIS_URL"`
	Address      string        `envconfig:"GAMEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"GAMEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"GAMEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GAMEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GAMEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GAMEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GAMEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GAMEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"GAMEHUB_REDIS_KEY_PREFIX" default:"gh"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GAMEHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GAMEHUB_JWT_ISSUER" default:"gamehub"`
	ExpirationMinutes      int    `envconfig:"GAMEHUB_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GAMEHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GAMEHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GAMEHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GAMEHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GAMEHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GAMEHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GAMEHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// GatewayRateLimitConfig throttles unauthenticated gateway callbacks per client IP.
type GatewayRateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"GAMEHUB_GATEWAY_RATE_LIMIT_RPS" default:"5"`
	Burst             int     `envconfig:"GAMEHUB_GATEWAY_RATE_LIMIT_BURST" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GAMEHUB_AUTO_MIGRATE" default:"false"`
}

type VNPayConfig struct {
	TmnCode    string `envconfig:"GAMEHUB_VNPAY_TMN_CODE" required:"true"`
	HashSecret string `envconfig:"GAMEHUB_VNPAY_HASH_SECRET" required:"true"`
	BaseURL    string `envconfig:"GAMEHUB_VNPAY_BASE_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"GAMEHUB_VNPAY_RETURN_URL" required:"true"`
	Version    string `envconfig:"GAMEHUB_VNPAY_VERSION" default:"2.1.0"`
	Locale     string `envconfig:"GAMEHUB_VNPAY_LOCALE" default:"vn"`
	TimeZone   string `envconfig:"GAMEHUB_VNPAY_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
}

type CurrencyConfig struct {
	USDToVNDRate decimal.Decimal `envconfig:"GAMEHUB_USD_TO_VND_RATE" default:"25000"`
}

type PaymentsConfig struct {
	// PendingTTL is how long an issued payment URL stays payable (vnp_ExpireDate).
	PendingTTL time.Duration `envconfig:"GAMEHUB_PAYMENT_PENDING_TTL" default:"30m"`
	// ExpiryGrace is how long past vnp_ExpireDate the cron worker waits before
	// it gives up on a pending payment.
	ExpiryGrace    time.Duration `envconfig:"GAMEHUB_PAYMENT_EXPIRY_GRACE" default:"15m"`
	IdempotencyTTL time.Duration `envconfig:"GAMEHUB_PAYMENT_IDEMPOTENCY_TTL" default:"168h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GAMEHUB_CRON_INTERVAL" default:"5m"`
	// MetricsAddr serves /metrics for the worker; empty disables it.
	MetricsAddr string `envconfig:"GAMEHUB_CRON_METRICS_ADDR" default:":9091"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.NormalizedDriver() != DBDriverPostgres {
		return fmt.Errorf("%s is required for driver %q", EnvDBDSN, db.Driver)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
