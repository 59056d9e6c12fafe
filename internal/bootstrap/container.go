package bootstrap

import (
	"context"
	"log"

	"projecthub-be/internal/collab"
	"projecthub-be/internal/config"
	"projecthub-be/internal/controller"
	"projecthub-be/internal/pkg/logger"
	"projecthub-be/internal/repository/unitofwork"
	"projecthub-be/internal/service"

	pktNats "projecthub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ActivityController controller.IActivityController

	// Background Services (Exposed for main.go to run)
	InvalidationConsumer service.IInvalidationConsumerService

	// Collaboration
	CollabHandler *collab.Handler
	CollabHub     *collab.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Collaboration Hub
	collabLogger := logger.NewIsolatedLogger("logs/collab.log")
	hub := collab.NewHub(uowFactory, cfg.Collab.PersistEvery, rdb, collabLogger)
	go hub.Run()

	// 3. Services
	publisherService := service.NewPublisherService(cfg.Collab.InvalidationTopic, pubSub)
	invalidationConsumer := service.NewInvalidationConsumerService(
		pubSub,
		cfg.Collab.InvalidationTopic,
		hub, // Hub implements RoomInvalidator
	)

	documentService := service.NewDocumentService(uowFactory, publisherService, natsPub)

	activityService := service.NewActivityService(uowFactory, natsSub, sysLogger)
	if natsSub != nil {
		go activityService.Start()
	}

	// Handler
	collabHandler := collab.NewHandler(hub, collabLogger)

	// 4. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		ActivityController: controller.NewActivityController(activityService),

		InvalidationConsumer: invalidationConsumer,

		CollabHandler: collabHandler,
		CollabHub:     hub,
	}
}
