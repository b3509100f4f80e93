package config

// EnvPrefix is empty because every struct tag already carries the full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	NotificationSinkStore  = "store"
	NotificationSinkPubSub = "pubsub"
	NotificationSinkKafka  = "kafka"
)

const (
	EnvAppEnv   = "HIRELANKA_APP_ENV"
	EnvPort     = "HIRELANKA_APP_PORT"
	EnvDBDSN    = "HIRELANKA_DB_DSN"
	EnvDBHost   = "HIRELANKA_DB_HOST"
	EnvDBUser   = "HIRELANKA_DB_USER"
	EnvDBName   = "HIRELANKA_DB_NAME"
	EnvDBPass   = "HIRELANKA_DB_PASSWORD"
	EnvRedisURL = "HIRELANKA_REDIS_URL"

	EnvJWTSecret = "HIRELANKA_JWT_SECRET"
	EnvJWTIssuer = "HIRELANKA_JWT_ISSUER"

	EnvPayHereMerchantID     = "HIRELANKA_PAYHERE_MERCHANT_ID"
	EnvPayHereMerchantSecret = "HIRELANKA_PAYHERE_MERCHANT_SECRET"
	EnvPayHereMode           = "HIRELANKA_PAYHERE_MODE"

	EnvCommissionDefaultRate = "HIRELANKA_COMMISSION_DEFAULT_RATE"
	EnvNotificationSinks     = "HIRELANKA_NOTIFICATIONS_SINKS"
	EnvKafkaBrokers          = "HIRELANKA_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
