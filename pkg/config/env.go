package config

const (
	EnvPrefix = "BISKAKEN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "BISKAKEN_APP_ENV"
	EnvPort           = "BISKAKEN_APP_PORT"
	EnvDBDSN          = "BISKAKEN_DB_DSN"
	EnvDBHost         = "BISKAKEN_DB_HOST"
	EnvDBUser         = "BISKAKEN_DB_USER"
	EnvDBName         = "BISKAKEN_DB_NAME"
	EnvDBPassword     = "BISKAKEN_DB_PASSWORD"
	EnvRedisURL       = "BISKAKEN_REDIS_URL"
	EnvJWTSecret      = "BISKAKEN_JWT_SECRET"
	EnvJWTIssuer      = "BISKAKEN_JWT_ISSUER"
	EnvPaystackSecret = "BISKAKEN_PAYSTACK_SECRET_KEY"
	EnvPaystackURL    = "BISKAKEN_PAYSTACK_BASE_URL"
	EnvPaystackTO     = "BISKAKEN_PAYSTACK_TIMEOUT"
	EnvGCPProjectID   = "BISKAKEN_GCP_PROJECT_ID"
	EnvNotifTopic     = "BISKAKEN_PUBSUB_NOTIFICATION_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
