package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EnvProduction = "production"

	NotifyModeInline = "inline"
	NotifyModeKafka  = "kafka"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"3000"`
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	PgURL     string `env:"PG_URL,required,notEmpty"`
	PgPoolMax int    `env:"PG_POOL_MAX" envDefault:"10"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Shared secret the provider sends in WebhookSignatureHeader.
	WebhookCallbackToken   string `env:"WEBHOOK_CALLBACK_TOKEN"`
	WebhookSignatureHeader string `env:"WEBHOOK_SIGNATURE_HEADER" envDefault:"x-callback-token"`
	// "enforce" or "warn"; empty derives the policy from APP_ENV.
	WebhookSignaturePolicy string `env:"WEBHOOK_SIGNATURE_POLICY"`
	WebhookMaxBodyBytes    int64  `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"1048576"`

	WebhookRateLimitWindow time.Duration `env:"WEBHOOK_RATE_LIMIT_WINDOW" envDefault:"60s"`
	WebhookRateLimitMax    int           `env:"WEBHOOK_RATE_LIMIT_MAX" envDefault:"60"`
	APIRateLimitWindow     time.Duration `env:"API_RATE_LIMIT_WINDOW" envDefault:"15m"`
	APIRateLimitMax        int           `env:"API_RATE_LIMIT_MAX" envDefault:"1000"`
	RateLimitStore         string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	RedisAddr              string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword          string        `env:"REDIS_PASSWORD"`

	AdminToken string `env:"ADMIN_TOKEN"`

	MailAPIURL        string        `env:"MAIL_API_URL"`
	MailAPIKey        string        `env:"MAIL_API_KEY"`
	MailFrom          string        `env:"MAIL_FROM" envDefault:"Billing <billing@example.com>"`
	MailLogoPath      string        `env:"MAIL_LOGO_PATH" envDefault:"assets/logo.png"`
	MailSendTimeout   time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"15s"`
	MailRatePerSecond float64       `env:"MAIL_RATE_PER_SECOND" envDefault:"5"`

	// Notification dispatch: "inline" (detached goroutine) or "kafka" (publish + in-process consumer)
	NotifyMode string `env:"NOTIFY_MODE" envDefault:"inline"`

	KafkaBrokers               []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaNotificationsTopic    string   `env:"KAFKA_NOTIFICATIONS_TOPIC" envDefault:"notifications.email"`
	KafkaNotificationsDLQTopic string   `env:"KAFKA_NOTIFICATIONS_DLQ_TOPIC" envDefault:"notifications.email.dlq"`
	KafkaNotificationsGroup    string   `env:"KAFKA_NOTIFICATIONS_CONSUMER_GROUP" envDefault:"webhook-notifier"`

	AuditOpensearchURLs  []string `env:"AUDIT_OPENSEARCH_URLS" envSeparator:","`
	AuditOpensearchIndex string   `env:"AUDIT_OPENSEARCH_INDEX" envDefault:"webhook-events"`
}

func New() (Config, error) {
	c, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
