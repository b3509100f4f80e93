package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	PayHere       PayHereConfig
	Commission    CommissionConfig
	Notifications NotificationsConfig
	Kafka         KafkaConfig
	Webhook       WebhookConfig
	RateLimit     RateLimitConfig
	Telemetry     TelemetryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MigrationConfig is the subset needed to run schema migrations, so the
// migrate tool does not require gateway or token secrets.
type MigrationConfig struct {
	App AppConfig
	DB  DBConfig
}

func LoadMigration() (*MigrationConfig, error) {
	var cfg MigrationConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing migration config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HIRELANKA_APP_ENV" required:"true"`
	Port         string `envconfig:"HIRELANKA_APP_PORT" required:"true"`
	Version      string `envconfig:"HIRELANKA_APP_VERSION" default:"dev"`
	LogLevel     string `envconfig:"HIRELANKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HIRELANKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"HIRELANKA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"HIRELANKA_DB_DSN"`

	LegacyHost     string `envconfig:"HIRELANKA_DB_HOST"`
	LegacyPort     int    `envconfig:"HIRELANKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HIRELANKA_DB_USER"`
	LegacyPassword string `envconfig:"HIRELANKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"HIRELANKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"HIRELANKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HIRELANKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HIRELANKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HIRELANKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HIRELANKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"HIRELANKA_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HIRELANKA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HIRELANKA_REDIS_ADDR"`
	Password     string        `envconfig:"HIRELANKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"HIRELANKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HIRELANKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HIRELANKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HIRELANKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HIRELANKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HIRELANKA_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"HIRELANKA_REDIS_KEY_PREFIX" default:"hl"`
}

// JWTConfig describes the tokens issued by the external auth service.
type JWTConfig struct {
	Secret            string `envconfig:"HIRELANKA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HIRELANKA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HIRELANKA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HIRELANKA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"HIRELANKA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SettlementTopic   string `envconfig:"HIRELANKA_PUBSUB_SETTLEMENT_TOPIC" default:"hl-settlement-events"`
	NotificationTopic string `envconfig:"HIRELANKA_PUBSUB_NOTIFICATION_TOPIC" default:"hl-notification-events"`
	// batching knobs applied to every publisher handle
	DelayThreshold time.Duration `envconfig:"HIRELANKA_PUBSUB_DELAY_THRESHOLD" default:"10ms"`
	CountThreshold int           `envconfig:"HIRELANKA_PUBSUB_COUNT_THRESHOLD" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"HIRELANKA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"HIRELANKA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"HIRELANKA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"HIRELANKA_OUTBOX_METRICS_ADDR" default:":9090"`
}

// PayHereConfig carries the merchant credentials and callback roots for the hosted checkout.
type PayHereConfig struct {
	MerchantID     string `envconfig:"HIRELANKA_PAYHERE_MERCHANT_ID" required:"true"`
	MerchantSecret string `envconfig:"HIRELANKA_PAYHERE_MERCHANT_SECRET" required:"true"`
	Mode           string `envconfig:"HIRELANKA_PAYHERE_MODE" default:"sandbox"`
	Currency       string `envconfig:"HIRELANKA_PAYHERE_CURRENCY" default:"LKR"`
	Country        string `envconfig:"HIRELANKA_PAYHERE_COUNTRY" default:"Sri Lanka"`
	ClientURL      string `envconfig:"HIRELANKA_CLIENT_URL" default:"http://localhost:3000"`
	ServerURL      string `envconfig:"HIRELANKA_SERVER_URL" default:"http://localhost:8080"`
}

// Sandbox reports whether checkout should target the gateway's sandbox host.
func (p PayHereConfig) Sandbox() bool {
	return !strings.EqualFold(strings.TrimSpace(p.Mode), "live")
}

type CommissionConfig struct {
	DefaultRate string `envconfig:"HIRELANKA_COMMISSION_DEFAULT_RATE" default:"15"`
}

type NotificationsConfig struct {
	Sinks []string `envconfig:"HIRELANKA_NOTIFICATIONS_SINKS" default:"store"`
}

func (n NotificationsConfig) Enabled(sink string) bool {
	for _, candidate := range n.Sinks {
		if strings.EqualFold(strings.TrimSpace(candidate), sink) {
			return true
		}
	}
	return false
}

func (n NotificationsConfig) validate() error {
	for _, sink := range n.Sinks {
		switch strings.ToLower(strings.TrimSpace(sink)) {
		case NotificationSinkStore, NotificationSinkPubSub, NotificationSinkKafka:
		default:
			return fmt.Errorf("unknown notification sink %q", sink)
		}
	}
	return nil
}

type KafkaConfig struct {
	Brokers           []string `envconfig:"HIRELANKA_KAFKA_BROKERS"`
	NotificationTopic string   `envconfig:"HIRELANKA_KAFKA_NOTIFICATION_TOPIC" default:"notifications"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"HIRELANKA_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

// RateLimitConfig bounds the unauthenticated webhook and the checkout endpoint.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"HIRELANKA_RATE_LIMIT_WINDOW" default:"1m"`
	WebhookLimit  int           `envconfig:"HIRELANKA_RATE_LIMIT_WEBHOOK" default:"300"`
	CheckoutLimit int           `envconfig:"HIRELANKA_RATE_LIMIT_CHECKOUT" default:"30"`
}

type TelemetryConfig struct {
	Enabled      bool   `envconfig:"HIRELANKA_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"HIRELANKA_OTLP_ENDPOINT" default:"localhost:4317"`
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
