package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Paystack     PaystackConfig
	Invoices     InvoiceConfig
	Webhooks     WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"BISKAKEN_APP_ENV" required:"true"`
	Port         string `envconfig:"BISKAKEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BISKAKEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BISKAKEN_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"BISKAKEN_LOG_FORMAT"`
	PublicURL    string `envconfig:"BISKAKEN_PUBLIC_URL" default:"http://localhost:8080"`

	CORSOrigins    []string `envconfig:"BISKAKEN_CORS_ORIGINS" default:"http://localhost:3000"`
	RateLimitRPM   int      `envconfig:"BISKAKEN_RATE_LIMIT_PER_MINUTE" default:"120"`
	WebhookRateRPM int      `envconfig:"BISKAKEN_WEBHOOK_RATE_LIMIT_PER_MINUTE" default:"600"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BISKAKEN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BISKAKEN_DB_DSN"`
	Driver string `envconfig:"BISKAKEN_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BISKAKEN_DB_HOST"`
	Port     int    `envconfig:"BISKAKEN_DB_PORT" default:"5432"`
	User     string `envconfig:"BISKAKEN_DB_USER"`
	Password string `envconfig:"BISKAKEN_DB_PASSWORD"`
	Name     string `envconfig:"BISKAKEN_DB_NAME"`
	SSLMode  string `envconfig:"BISKAKEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BISKAKEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BISKAKEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BISKAKEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BISKAKEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	LockTimeout     time.Duration `envconfig:"BISKAKEN_DB_LOCK_TIMEOUT" default:"5s"`

	SlowQuery  time.Duration `envconfig:"BISKAKEN_DB_SLOW_QUERY" default:"500ms"`
	LogQueries bool          `envconfig:"BISKAKEN_DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BISKAKEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BISKAKEN_REDIS_ADDR"`
	Password     string        `envconfig:"BISKAKEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"BISKAKEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BISKAKEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BISKAKEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BISKAKEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BISKAKEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BISKAKEN_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"BISKAKEN_REDIS_KEY_PREFIX" default:"bk"`
}

// JWTConfig only covers verification; tokens are minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"BISKAKEN_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BISKAKEN_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite           bool `envconfig:"BISKAKEN_USE_SQLITE" default:"false"`
	AutoMigrate         bool `envconfig:"BISKAKEN_AUTO_MIGRATE" default:"false"`
	SendOnCreateDefault bool `envconfig:"BISKAKEN_INVOICE_SEND_ON_CREATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"BISKAKEN_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"BISKAKEN_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Timeout     time.Duration `envconfig:"BISKAKEN_PAYSTACK_TIMEOUT" default:"15s"`
	CallbackURL string        `envconfig:"BISKAKEN_PAYSTACK_CALLBACK_URL"`
	Currency    string        `envconfig:"BISKAKEN_PAYSTACK_CURRENCY" default:"GHS"`
}

// Configured reports whether a secret key is present. The webhook rejects
// every request when it is not.
func (p PaystackConfig) Configured() bool {
	return strings.TrimSpace(p.SecretKey) != ""
}

type InvoiceConfig struct {
	NumberPrefix      string `envconfig:"BISKAKEN_INVOICE_NUMBER_PREFIX" default:"INV"`
	FallbackEmailHost string `envconfig:"BISKAKEN_INVOICE_FALLBACK_EMAIL_HOST" default:"biskaken.com"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BISKAKEN_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BISKAKEN_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"BISKAKEN_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"BISKAKEN_PUBSUB_NOTIFICATION_TOPIC" default:"bk-notification-events"`
	NotificationSubscription string `envconfig:"BISKAKEN_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BISKAKEN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BISKAKEN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BISKAKEN_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BISKAKEN_CRON_INTERVAL" default:"15m"`
	AttemptTTL      time.Duration `envconfig:"BISKAKEN_CRON_PAYMENT_ATTEMPT_TTL" default:"24h"`
	OutboxRetention time.Duration `envconfig:"BISKAKEN_CRON_OUTBOX_RETENTION" default:"720h"`
	PruneBatch      int           `envconfig:"BISKAKEN_CRON_OUTBOX_PRUNE_BATCH" default:"1000"`
	JobTimeout      time.Duration `envconfig:"BISKAKEN_CRON_JOB_TIMEOUT" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
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
