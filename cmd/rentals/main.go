package main

import (
	"github.com/joho/godotenv"

	matcheshandler "rentmate/internal/matches/handler"
	matchesservice "rentmate/internal/matches/service"
	"rentmate/internal/rentals/events"
	rentalshandler "rentmate/internal/rentals/handler"
	rentalsrepo "rentmate/internal/rentals/repository"
	"rentmate/internal/rentals/service"
	"rentmate/internal/rentals/validator"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/app"
	"rentmate/pkg/clock"
	"rentmate/pkg/config"
	mongotx "rentmate/pkg/db/mongo"
	"rentmate/pkg/kafka"
	kafka_middleware "rentmate/pkg/kafka/middleware"
	"rentmate/pkg/lock"
)

const ServiceName = "rentals"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Rentals service")
	serverApp := app.NewApplication(cfg)

	publisher, closePublisher := initPublisher(cfg)
	serverApp.OnShutdown(closePublisher)

	matches, rentals, admin := initHandlers(cfg, publisher)
	serverApp.SetApp(matches, rentals, admin)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher events.Publisher) (*matcheshandler.MatchesHandler, *rentalshandler.RentalHandler, *rentalshandler.AdminHandler) {
	clk := clock.System()
	rentalValidator := validator.NewRentalValidator(cfg.Log)

	users := usersrepo.NewMongoUserRepository(cfg)
	rentals := rentalsrepo.NewMongoRentalRepository(cfg)
	claims := rentalsrepo.NewMongoSlotClaimRepository(cfg)
	tx := mongotx.NewTransactionManager(cfg.Client.Mongo)

	var locker lock.Locker
	if cfg.Client.Redis != nil {
		locker = lock.NewRedisLocker(cfg.Client.Redis)
	} else {
		locker = lock.NewMemoryLocker(clk)
	}

	finder := matchesservice.NewMatchFinder(users, claims, rentalValidator, cfg)
	ledger := service.NewRentalLedger(rentals, claims, users, tx, publisher, rentalValidator, clk, cfg)
	orchestrator := service.NewBookingOrchestrator(finder, ledger, users, locker, cfg)
	orders := service.NewOrdersService(rentals, users, clk, cfg)

	cfg.Log.Info("Rental services initialized", "database", cfg.MongoDatabaseName, "redis_lock", cfg.Client.Redis != nil)

	return matcheshandler.NewMatchesHandler(finder, cfg.Log),
		rentalshandler.NewRentalHandler(orchestrator, ledger, orders, cfg),
		rentalshandler.NewAdminHandler(ledger, orders, cfg)
}

func initPublisher(cfg *config.Config) (events.Publisher, func()) {
	if !cfg.EventsEnabled {
		cfg.Log.Warn("Rental events disabled, OTP notifications will not be sent")
		return events.Noop(), func() {}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", cfg.Kafka.Topic, "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	if !kafka_middleware.AttachProducer(producer, cfg.Kafka, cfg.Log, metrics) {
		cfg.Log.Info("Kafka producer middleware disabled")
	}

	return events.NewKafkaPublisher(producer, cfg.Log), func() {
		cfg.Log.Info("Kafka producer metrics", "snapshot", metrics.Snapshot())
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
