package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PaymentWebhooks/config"
	"PaymentWebhooks/internal/api/dispatch"
	"PaymentWebhooks/internal/api/domain/notification"
	"PaymentWebhooks/internal/api/domain/payment"
	"PaymentWebhooks/internal/api/external/kafka"
	"PaymentWebhooks/internal/api/external/mail"
	"PaymentWebhooks/internal/api/external/opensearch"
	"PaymentWebhooks/internal/api/handlers"
	"PaymentWebhooks/internal/api/middleware"
	order_repo "PaymentWebhooks/internal/api/repo/order"
	"PaymentWebhooks/pkg/health"
	"PaymentWebhooks/pkg/logger"
	"PaymentWebhooks/pkg/postgres"
	"PaymentWebhooks/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const shutdownTimeout = 10 * time.Second

type waiter interface {
	Wait()
}

func Run(cfg config.Config) error {
	logger.Setup(logger.Options{Level: cfg.LogLevel, Console: cfg.LogFormat == "console"})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	policy, err := middleware.ParseSignaturePolicy(cfg.WebhookSignaturePolicy, cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("api - Run - signature policy: %w", err)
	}

	pool, err := postgres.New(cfg.PgURL, postgres.MaxPoolSize(cfg.PgPoolMax))
	if err != nil {
		return fmt.Errorf("api - Run - postgres.New: %w", err)
	}
	defer pool.Close()

	if err := ApplyMigrations(cfg.PgURL, MigrationFS); err != nil {
		return fmt.Errorf("api - Run - ApplyMigrations: %w", err)
	}

	healthRegistry := health.NewRegistry(health.NewPostgresChecker(pool.Pool))

	store, closeStore, err := newRateLimitStore(cfg, healthRegistry)
	if err != nil {
		return fmt.Errorf("api - Run - rate limit store: %w", err)
	}
	defer closeStore()

	webhookLimiter, err := ratelimit.New(store, ratelimit.Config{Window: cfg.WebhookRateLimitWindow, Max: cfg.WebhookRateLimitMax})
	if err != nil {
		return fmt.Errorf("api - Run - webhook limiter: %w", err)
	}
	apiLimiter, err := ratelimit.New(store, ratelimit.Config{Window: cfg.APIRateLimitWindow, Max: cfg.APIRateLimitMax})
	if err != nil {
		return fmt.Errorf("api - Run - api limiter: %w", err)
	}

	notifier := notification.NewNotifier(newMailSender(cfg),
		notification.WithFrom(cfg.MailFrom),
		notification.WithLogo(cfg.MailLogoPath),
	)

	orderRepo := order_repo.NewPgOrderRepo(pool)

	inline := dispatch.NewInline(notifier, cfg.MailSendTimeout)
	var dispatcher payment.Dispatcher = inline
	var pending waiter = inline
	var workersDone <-chan struct{}

	if cfg.NotifyMode == config.NotifyModeKafka {
		slog.Info("Notify mode: kafka - starting notification consumer")
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
		defer publisher.Close()

		kd := dispatch.NewKafka(publisher, inline)
		dispatcher, pending = kd, kd
		healthRegistry.Register(health.NewKafkaChecker(cfg.KafkaBrokers))
		workersDone = StartWorkers(ctx, cfg, notifier)
	}

	serviceOpts := []payment.Option{}
	if sink := newAuditSink(ctx, cfg); sink != nil {
		serviceOpts = append(serviceOpts, payment.WithAuditSink(sink))
	}
	paymentService := payment.NewService(orderRepo, dispatcher, serviceOpts...)

	webhookVerifier := middleware.NewTokenVerifier(cfg.WebhookSignatureHeader, cfg.WebhookCallbackToken)
	adminVerifier := middleware.NewTokenVerifier("Authorization", cfg.AdminToken)

	engine := NewGinEngine()
	router := NewRouter(
		handlers.NewWebhookHandler(paymentService, cfg.WebhookMaxBodyBytes, cfg.IsProduction()),
		handlers.NewEventsHandler(orderRepo),
		healthRegistry,
		Guards{
			CORS: middleware.CORS(cfg.WebhookSignatureHeader),
			Webhook: []gin.HandlerFunc{
				middleware.RequireSignature(webhookVerifier, policy, "Invalid callback token"),
				middleware.RateLimit(webhookLimiter, "webhook"),
			},
			Admin: []gin.HandlerFunc{
				middleware.RateLimit(apiLimiter, "api"),
				middleware.RequireSignature(adminVerifier, middleware.PolicyEnforce, "Unauthorized"),
			},
		},
	)
	router.SetUp(engine)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.Port, "signature_policy", policy, "notify_mode", cfg.NotifyMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		cancel()
		return fmt.Errorf("api - Run - http server: %w", err)
	}

	slog.Info("Shutting down gracefully...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	pending.Wait()
	if workersDone != nil {
		<-workersDone
	}
	return nil
}

func newRateLimitStore(cfg config.Config, registry *health.Registry) (ratelimit.Store, func(), error) {
	switch cfg.RateLimitStore {
	case config.RateLimitStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		registry.Register(health.NewRedisChecker(client))
		return ratelimit.NewRedisStore(client), func() { _ = client.Close() }, nil
	case config.RateLimitStoreMemory, "":
		return ratelimit.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.RateLimitStore)
	}
}

// newMailSender returns nil when the mail API is not configured; the notifier
// then reports every delivery as skipped.
func newMailSender(cfg config.Config) notification.Sender {
	client, err := mail.NewClient(cfg.MailAPIURL, cfg.MailAPIKey,
		mail.WithTimeout(cfg.MailSendTimeout),
		mail.WithRateLimit(cfg.MailRatePerSecond),
	)
	if err != nil {
		slog.Warn("Mail API not configured, customer notifications disabled", slog.Any("error", err))
		return nil
	}
	return client
}

func newAuditSink(ctx context.Context, cfg config.Config) payment.AuditSink {
	if len(cfg.AuditOpensearchURLs) == 0 {
		return nil
	}
	sink, err := opensearch.NewAuditSink(ctx, cfg.AuditOpensearchURLs, cfg.AuditOpensearchIndex)
	if err != nil {
		slog.Warn("Audit mirror disabled", slog.Any("error", err))
		return nil
	}
	return sink
}
