package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tender-server/internal/config"
	"tender-server/internal/domain/chat"
	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/domain/rating"
	"tender-server/internal/infrastructure/crontab"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/logger"
	"tender-server/internal/infrastructure/observability"
	"tender-server/internal/infrastructure/repository/chatrepo"
	"tender-server/internal/infrastructure/repository/companyrepo"
	"tender-server/internal/infrastructure/repository/ratingrepo"
	"tender-server/internal/infrastructure/repository/tenderrepo"
	"tender-server/internal/interfaces/httpserver"
	"tender-server/internal/interfaces/httpserver/handlers/attachmenthandler"
	"tender-server/internal/interfaces/httpserver/handlers/companyhandler"
	"tender-server/internal/interfaces/httpserver/handlers/ratinghandler"
	"tender-server/internal/interfaces/httpserver/handlers/tenderhandler"
	"tender-server/internal/worker"
)

// @title Tender Marketplace API
// @version 1.0
// @description B2B tender marketplace: company profiles, tenders and bids, ratings, and real-time company-to-company chat.
// @contact.name Tender Marketplace Team
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HTTPServer
	workers    *worker.Pool
	cron       *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(cfg *config.Config, httpServer *httpserver.HTTPServer, workers *worker.Pool, cron *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		cfg:        cfg,
		httpServer: httpServer,
		workers:    workers,
		cron:       cron,
		log:        log,
	}
}

// Start runs the notification workers, the scheduler and the HTTP server until ctx ends.
func (a *Application) Start(ctx context.Context) error {
	a.workers.Start(ctx)
	defer func() {
		a.log.Info().Msg("stopping worker pool")
		a.workers.Stop(a.cfg.ShutdownTimeout)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.httpServer.Run(gctx)
	})
	g.Go(func() error {
		return a.cron.Run(gctx)
	})
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	gormDB, closeDB, err := newGormDB(ctx, newDatabaseConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer closeDB()
	db := database.NewDB(gormDB)

	companyRepository := companyrepo.NewCompanyGormRepository(db)
	tenderRepository := tenderrepo.NewTenderGormRepository(db)
	ratingRepository := ratingrepo.NewRatingGormRepository(db)
	chatRepository := chatrepo.NewChatGormRepository(db)

	profileCache, err := newProfileCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize profile cache")
	}

	redisClient, closeRedis, err := newRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer closeRedis()

	broker, closeBroker, err := newBroker(ctx, cfg, redisClient, chatRepository, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize live feed broker")
	}
	defer closeBroker()

	renderer, err := newRenderer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load notification templates")
	}
	notificationQueue := newNotificationQueue(cfg, db, log)
	notificationService := notification.NewService(renderer, notificationQueue, newMailer(cfg, log), log)

	companyService := company.NewService(companyRepository, profileCache, log)
	tenderService := newTenderService(cfg, tenderRepository, companyService, notificationService, newLocker(redisClient, log), log)
	ratingService := rating.NewService(ratingRepository, tenderService, companyService, log)
	chatService := newChatService(cfg, chatRepository, broker, companyService, notificationService, log)
	liveFeed := chat.NewLiveFeed(broker, chatService, log)

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize attachment storage")
	}
	attachmentService := newAttachmentService(cfg, store, log)

	guards, closeGuards, err := newRouteGuards(ctx, cfg, companyService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}
	defer closeGuards()

	v1Route := newV1Route(
		companyhandler.NewCompanyHandler(companyService),
		tenderhandler.NewTenderHandler(tenderService),
		ratinghandler.NewRatingHandler(ratingService),
		newChatHandler(cfg, chatService, liveFeed, log),
		attachmenthandler.NewAttachmentHandler(attachmentService),
		guards,
	)
	httpServer := httpserver.NewHttpServer(cfg, v1Route, newHTTPOptions(gormDB, redisClient, store), log)

	workerPool := newWorkerPool(cfg, notificationService, log)
	cron := newCrontab(cfg, tenderService, newOutboxHousekeeper(notificationQueue), workerPool, log)

	app := NewApplication(cfg, httpServer, workerPool, cron, log)
	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
