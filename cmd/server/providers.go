package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tender-server/internal/config"
	"tender-server/internal/domain/attachment"
	"tender-server/internal/domain/chat"
	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/auth"
	"tender-server/internal/infrastructure/cache"
	"tender-server/internal/infrastructure/crontab"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/mailer"
	"tender-server/internal/infrastructure/pubsub"
	"tender-server/internal/infrastructure/queue"
	"tender-server/internal/infrastructure/storage"
	"tender-server/internal/interfaces/httpserver"
	"tender-server/internal/interfaces/httpserver/handlers/attachmenthandler"
	"tender-server/internal/interfaces/httpserver/handlers/chathandler"
	"tender-server/internal/interfaces/httpserver/handlers/companyhandler"
	"tender-server/internal/interfaces/httpserver/handlers/ratinghandler"
	"tender-server/internal/interfaces/httpserver/handlers/tenderhandler"
	"tender-server/internal/interfaces/httpserver/middlewares"
	v1 "tender-server/internal/interfaces/httpserver/routes/v1"
	"tender-server/internal/worker"
)

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		ReadDSN:         cfg.DatabaseReadURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := database.Migrate(ctx, db, log); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

func newProfileCache(cfg *config.Config) (*cache.ProfileCache, error) {
	return cache.NewProfileCache(cfg.ProfileCacheSize)
}

// newRedisClient returns a nil client when REDIS_URL is not configured.
func newRedisClient(ctx context.Context, cfg *config.Config) (redis.UniversalClient, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// newLocker returns a nil locker without Redis; accepts then rely on row locks alone.
func newLocker(client redis.UniversalClient, log zerolog.Logger) tender.Locker {
	if client == nil {
		return nil
	}
	return cache.NewLocker(client, log)
}

func newBroker(ctx context.Context, cfg *config.Config, client redis.UniversalClient, messages chat.Repository, log zerolog.Logger) (chat.Broker, func(), error) {
	switch cfg.LiveFeedBroker {
	case config.BrokerRedis:
		if client == nil {
			return nil, nil, fmt.Errorf("redis broker selected without a redis client")
		}
		return pubsub.NewRedisBroker(client, log), func() {}, nil
	case config.BrokerPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create listen pool: %w", err)
		}
		broker := pubsub.NewPostgresBroker(pool, messages, log)
		broker.Start(ctx)
		return broker, func() {
			_ = broker.Close()
			pool.Close()
		}, nil
	default:
		broker := pubsub.NewMemoryBroker(log)
		return broker, func() { _ = broker.Close() }, nil
	}
}

func newNotificationQueue(cfg *config.Config, db *database.DB, log zerolog.Logger) notification.Queue {
	if cfg.NotificationMode == config.NotificationOutbox {
		return queue.NewPostgresQueue(db, cfg.NotificationMaxAttempts, cfg.NotificationRetryBackoff, log)
	}
	return queue.NewMemoryQueue(cfg.NotificationQueueSize, log)
}

// newOutboxHousekeeper returns nil unless the queue is the database outbox.
func newOutboxHousekeeper(q notification.Queue) crontab.OutboxHousekeeper {
	if outbox, ok := q.(*queue.PostgresQueue); ok {
		return outbox
	}
	return nil
}

func newMailer(cfg *config.Config, log zerolog.Logger) notification.Mailer {
	if cfg.MailAPIURL == "" {
		log.Warn().Msg("MAIL_API_URL not set, emails are logged instead of sent")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom, cfg.MailTimeout, log)
}

func newRenderer(cfg *config.Config) (*notification.Renderer, error) {
	return notification.NewRenderer(cfg.NotificationTemplates)
}

func newTenderService(cfg *config.Config, repo tender.Repository, companies tender.CompanyDirectory, notifier notification.Notifier, locker tender.Locker, log zerolog.Logger) *tender.Service {
	return tender.NewService(repo, companies, notifier, locker, cfg.AppBaseURL, log)
}

func newChatService(cfg *config.Config, repo chat.Repository, broker chat.Broker, profiles chat.ProfileResolver, notifier notification.Notifier, log zerolog.Logger) *chat.Service {
	return chat.NewService(repo, broker, profiles, notifier, cfg.AppBaseURL, log)
}

func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (attachment.Storage, error) {
	if cfg.StorageBackend == config.StorageS3 {
		return storage.NewS3Storage(ctx, cfg, log)
	}
	return storage.NewLocalStorage(cfg.LocalStoragePath, cfg.LocalStorageBaseURL, log)
}

func newAttachmentService(cfg *config.Config, store attachment.Storage, log zerolog.Logger) *attachment.Service {
	return attachment.NewService(store, cfg.MaxAttachmentBytes, log)
}

func newChatHandler(cfg *config.Config, service *chat.Service, feed *chat.LiveFeed, log zerolog.Logger) *chathandler.ChatHandler {
	return chathandler.NewChatHandler(service, feed, cfg.CORSOrigins, log)
}

// routeGuards are the /v1 middlewares.
type routeGuards struct {
	auth           gin.HandlerFunc
	requireCompany gin.HandlerFunc
}

func newRouteGuards(ctx context.Context, cfg *config.Config, companies middlewares.CompanyLookup, log zerolog.Logger) (routeGuards, func(), error) {
	guards := routeGuards{requireCompany: middlewares.RequireCompany(companies)}
	if !cfg.AuthEnabled {
		log.Warn().Msg("authentication disabled, trusting X-User-Id headers")
		guards.auth = middlewares.AuthMiddleware(nil, log)
		return guards, func() {}, nil
	}

	validator, err := auth.NewJWTValidator(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthAudience, log)
	if err != nil {
		return routeGuards{}, nil, err
	}
	guards.auth = middlewares.AuthMiddleware(validator, log)
	return guards, validator.Close, nil
}

func newV1Route(
	companies *companyhandler.CompanyHandler,
	tenders *tenderhandler.TenderHandler,
	ratings *ratinghandler.RatingHandler,
	chats *chathandler.ChatHandler,
	attachments *attachmenthandler.AttachmentHandler,
	guards routeGuards,
) *v1.V1Route {
	return v1.NewV1Route(companies, tenders, ratings, chats, attachments, guards.auth, guards.requireCompany)
}

func newHTTPOptions(db *gorm.DB, client redis.UniversalClient, store attachment.Storage) httpserver.Options {
	opts := httpserver.Options{
		Readiness: map[string]httpserver.ReadinessCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"storage": store.Health,
		},
	}
	if client != nil {
		opts.Readiness["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		opts.FilesRoot = local.Root()
	}
	return opts
}

func newWorkerPool(cfg *config.Config, deliverer worker.Deliverer, log zerolog.Logger) *worker.Pool {
	return worker.NewPool(deliverer, worker.Config{
		WorkerCount:  cfg.NotificationWorkers,
		PollInterval: cfg.NotificationPollEvery,
		SendTimeout:  cfg.MailTimeout,
	}, log)
}

func newCrontab(cfg *config.Config, tenders *tender.Service, outbox crontab.OutboxHousekeeper, pool *worker.Pool, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(cfg.TenderExpirySchedule, tenders, outbox, pool, log)
}

var _ middlewares.CompanyLookup = (*company.Service)(nil)
