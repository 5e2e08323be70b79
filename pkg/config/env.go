package config

const EnvPrefix = "CINEPASS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "CINEPASS_APP_ENV"
	EnvPort           = "CINEPASS_APP_PORT"
	EnvLogLevel       = "CINEPASS_LOG_LEVEL"
	EnvDBDSN          = "CINEPASS_DB_DSN"
	EnvSQLitePath     = "CINEPASS_SQLITE_PATH"
	EnvUseSQLite      = "CINEPASS_USE_SQLITE"
	EnvRedisURL       = "CINEPASS_REDIS_URL"
	EnvJWTSecret      = "CINEPASS_JWT_SECRET"
	EnvConvenienceFee = "CINEPASS_CONVENIENCE_FEE"
	EnvTaxRate        = "CINEPASS_TAX_RATE"
	EnvIdleTimeout    = "CINEPASS_SESSION_IDLE_TIMEOUT"
	EnvPersistCoupons = "CINEPASS_PERSIST_COUPONS"
)
