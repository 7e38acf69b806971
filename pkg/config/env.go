package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so the
// prefix only matters for fields without one.
const EnvPrefix = "GAMEHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverMySQL    = "mysql"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "GAMEHUB_APP_ENV"
	EnvPort      = "GAMEHUB_APP_PORT"
	EnvLogLevel  = "GAMEHUB_LOG_LEVEL"
	EnvDBDSN     = "GAMEHUB_DB_DSN"
	EnvDBDriver  = "GAMEHUB_DB_DRIVER"
	EnvDBHost    = "GAMEHUB_DB_HOST"
	EnvDBPort    = "GAMEHUB_DB_PORT"
	EnvDBUser    = "GAMEHUB_DB_USER"
	EnvDBPass    = "GAMEHUB_DB_PASSWORD"
	EnvDBName    = "GAMEHUB_DB_NAME"
	EnvDBSSLMode = "GAMEHUB_DB_SSLMODE"
	EnvRedisURL  = "GAMEHUB_REDIS_URL"

	EnvJWTSecret              = "GAMEHUB_JWT_SECRET"
	EnvJWTIssuer              = "GAMEHUB_JWT_ISSUER"
	EnvJWTExpMins             = "GAMEHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GAMEHUB_REFRESH_TOKEN_TTL_MINUTES"

	EnvVNPayTmnCode    = "GAMEHUB_VNPAY_TMN_CODE"
	EnvVNPayHashSecret = "GAMEHUB_VNPAY_HASH_SECRET"
	EnvVNPayReturnURL  = "GAMEHUB_VNPAY_RETURN_URL"
	EnvUSDToVNDRate    = "GAMEHUB_USD_TO_VND_RATE"
	EnvPendingTTL      = "GAMEHUB_PAYMENT_PENDING_TTL"
	EnvExpiryGrace     = "GAMEHUB_PAYMENT_EXPIRY_GRACE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
