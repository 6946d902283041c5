package bootstrap

import (
	"context"
	"log"

	"sharecycle-be/internal/config"
	"sharecycle-be/internal/controller"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/handler"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/implementation"
	"sharecycle-be/internal/repository/memory"
	"sharecycle-be/internal/repository/unitofwork"
	"sharecycle-be/internal/service"
	"sharecycle-be/internal/websocket"
	pkgEvents "sharecycle-be/pkg/events"
	pktNats "sharecycle-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DonationController controller.IDonationController
	RequestController  controller.IRequestController
	LocationController controller.ILocationController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	c := &Container{Logger: sysLogger}

	// 2. In-process bus for listing cache invalidation
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	listingCache := memory.NewListingCache(cfg.Listing.CacheTTL)
	publisherService := service.NewPublisherService(cfg.Listing.InvalidateTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Listing.InvalidateTopic, listingCache, sysLogger)

	// 3. Infrastructure. Both NATS and Redis are optional; without them events
	// are dropped and the hub only serves local sockets.
	var busPublisher pkgEvents.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		busPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	rdb := newRedisClient(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 4. Domain services
	eventPublisher := events.NewNatsPublisher(busPublisher, sysLogger)
	geocoder := service.NewLocationService(cfg.Geocoding, sysLogger)

	donationService := service.NewDonationService(uowFactory, geocoder, eventPublisher, publisherService, listingCache, sysLogger)
	requestService := service.NewRequestService(uowFactory, eventPublisher, publisherService, listingCache, sysLogger)

	// 5. Notification System
	notifRepo := implementation.NewNotificationRepository(db)
	c.NotificationService = service.NewNotificationService(notifRepo, natsSub, c.WebSocketHub, wsLogger) // Hub implements NotificationDelivery
	c.NotificationHandler = handler.NewNotificationHandler(c.NotificationService, c.WebSocketHub, cfg.Auth.JWTSecret, wsLogger)

	// 6. Controllers
	c.DonationController = controller.NewDonationController(donationService, requestService, cfg.Auth.JWTSecret)
	c.RequestController = controller.NewRequestController(requestService, cfg.Auth.JWTSecret)
	c.LocationController = controller.NewLocationController(geocoder)

	return c
}

// Close releases bus and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. WebSocket fan-out is local only", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
