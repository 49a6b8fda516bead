package config

const (
	// EnvPrefix namespaces every environment variable the app reads.
	EnvPrefix = "shopsphere"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "SHOPSPHERE_APP_ENV"
	EnvPort       = "SHOPSPHERE_APP_PORT"
	EnvRedisURL   = "SHOPSPHERE_REDIS_URL"
	EnvJWTSecret  = "SHOPSPHERE_JWT_SECRET"
	EnvJWTIssuer  = "SHOPSPHERE_JWT_ISSUER"
	EnvJWTExpMins = "SHOPSPHERE_JWT_EXPIRATION_MINUTES"

	EnvDBDSN  = "SHOPSPHERE_DB_DSN"
	EnvDBHost = "SHOPSPHERE_DB_HOST"
	EnvDBUser = "SHOPSPHERE_DB_USER"
	EnvDBName = "SHOPSPHERE_DB_NAME"

	EnvCatalogOwnerID = "SHOPSPHERE_CATALOG_OWNER_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
