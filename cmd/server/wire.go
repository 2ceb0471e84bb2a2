//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"tender-server/internal/config"
	"tender-server/internal/domain/attachment"
	"tender-server/internal/domain/chat"
	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/domain/rating"
	"tender-server/internal/domain/tender"
	"tender-server/internal/infrastructure/cache"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/logger"
	"tender-server/internal/infrastructure/repository/chatrepo"
	"tender-server/internal/infrastructure/repository/companyrepo"
	"tender-server/internal/infrastructure/repository/ratingrepo"
	"tender-server/internal/infrastructure/repository/tenderrepo"
	"tender-server/internal/interfaces/httpserver"
	"tender-server/internal/interfaces/httpserver/handlers/attachmenthandler"
	"tender-server/internal/interfaces/httpserver/handlers/companyhandler"
	"tender-server/internal/interfaces/httpserver/handlers/ratinghandler"
	"tender-server/internal/interfaces/httpserver/handlers/tenderhandler"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/worker"
)

var infrastructureSet = wire.NewSet(
	newDatabaseConfig,
	newGormDB,
	database.NewDB,
	newProfileCache,
	wire.Bind(new(company.ProfileCache), new(*cache.ProfileCache)),
	newRedisClient,
	newLocker,
	newBroker,
	newStorage,
	newNotificationQueue,
	newOutboxHousekeeper,
	newMailer,
	newRenderer,
)

var repositorySet = wire.NewSet(
	companyrepo.NewCompanyGormRepository,
	tenderrepo.NewTenderGormRepository,
	ratingrepo.NewRatingGormRepository,
	chatrepo.NewChatGormRepository,
)

var domainSet = wire.NewSet(
	notification.NewService,
	wire.Bind(new(notification.Notifier), new(*notification.Service)),
	wire.Bind(new(worker.Deliverer), new(*notification.Service)),
	company.NewService,
	wire.Bind(new(tender.CompanyDirectory), new(*company.Service)),
	wire.Bind(new(chat.ProfileResolver), new(*company.Service)),
	wire.Bind(new(rating.ProfileInvalidator), new(*company.Service)),
	wire.Bind(new(middlewares.CompanyLookup), new(*company.Service)),
	newTenderService,
	wire.Bind(new(rating.AwardLookup), new(*tender.Service)),
	rating.NewService,
	newChatService,
	wire.Bind(new(chat.SenderResolver), new(*chat.Service)),
	chat.NewLiveFeed,
	newAttachmentService,
)

var httpSet = wire.NewSet(
	companyhandler.NewCompanyHandler,
	wire.Bind(new(companyhandler.CompanyService), new(*company.Service)),
	tenderhandler.NewTenderHandler,
	wire.Bind(new(tenderhandler.TenderService), new(*tender.Service)),
	ratinghandler.NewRatingHandler,
	wire.Bind(new(ratinghandler.RatingService), new(*rating.Service)),
	newChatHandler,
	attachmenthandler.NewAttachmentHandler,
	wire.Bind(new(attachmenthandler.AttachmentService), new(*attachment.Service)),
	newRouteGuards,
	newV1Route,
	newHTTPOptions,
	httpserver.NewHttpServer,
)

// BuildApplication assembles the same graph as main with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		infrastructureSet,
		repositorySet,
		domainSet,
		httpSet,
		newWorkerPool,
		newCrontab,
		NewApplication,
	)
	return nil, nil, nil
}
