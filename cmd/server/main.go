package main // service entry point

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-reservation/internal/config"
	"github.com/iliyamo/event-seat-reservation/internal/database"
	"github.com/iliyamo/event-seat-reservation/internal/handler"
	"github.com/iliyamo/event-seat-reservation/internal/queue"
	"github.com/iliyamo/event-seat-reservation/internal/repository"
	"github.com/iliyamo/event-seat-reservation/internal/repository/memstore"
	"github.com/iliyamo/event-seat-reservation/internal/router"
	"github.com/iliyamo/event-seat-reservation/internal/service"
)

func main() {
	// Load a local .env if present; real deployments set env vars
	// directly and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	store := openStore(cfg)
	engine := service.NewReservationEngine(store, nil, cfg.ExpiryGrace, cfg.ClaimTimeout)

	// Expiry delivery: RabbitMQ when a broker URL is configured,
	// otherwise in-process timers.
	var scheduler service.ExpiryScheduler
	if cfg.AMQPURL != "" {
		scheduler = queue.NewAMQPScheduler(cfg.AMQPURL)
		go func() {
			if err := queue.StartExpiryConsumer(cfg.AMQPURL, engine.ExpireBooking); err != nil {
				log.Printf("expiry consumer stopped: %v", err)
			}
		}()
	} else {
		log.Println("no broker configured, using in-process expiry timers")
		scheduler = queue.NewTimerScheduler(engine.ExpireBooking)
	}
	engine.SetScheduler(scheduler)

	rdb := config.NewRedisClient()

	e := echo.New()
	router.Register(e, router.Deps{
		Cfg:     cfg,
		Auth:    handler.NewAuthHandler(cfg, store),
		Events:  handler.NewEventHandler(engine),
		Booking: handler.NewBookingHandler(engine),
		Redis:   rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreDriver)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// openStore selects the storage backend.  The memory store exists for
// local development and tests; production runs on MySQL.
func openStore(cfg config.Config) repository.Store {
	if cfg.StoreDriver == "memory" {
		return memstore.New()
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	return repository.NewMySQLStore(db)
}
