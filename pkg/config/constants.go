package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "minimart"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load, tests, and ops tooling.
const (
	EnvAppEnv   = "MINIMART_APP_ENV"
	EnvPort     = "MINIMART_APP_PORT"
	EnvDBDSN    = "MINIMART_DB_DSN"
	EnvDBHost   = "MINIMART_DB_HOST"
	EnvDBUser   = "MINIMART_DB_USER"
	EnvDBName   = "MINIMART_DB_NAME"
	EnvRedisURL = "MINIMART_REDIS_URL"

	EnvJWTSecret  = "MINIMART_JWT_SECRET"
	EnvJWTIssuer  = "MINIMART_JWT_ISSUER"
	EnvJWTExpMins = "MINIMART_JWT_EXPIRATION_MINUTES"

	EnvTwoFAIssuer = "MINIMART_TWOFA_ISSUER"

	EnvPubSubOrdersTopic = "MINIMART_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID      = "MINIMART_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
