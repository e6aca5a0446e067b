package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/config"
	"github.com/satriadp/meeting-room-reservation/internal/database"
	"github.com/satriadp/meeting-room-reservation/internal/handler"
	appmw "github.com/satriadp/meeting-room-reservation/internal/middleware"
	"github.com/satriadp/meeting-room-reservation/internal/queue"
	"github.com/satriadp/meeting-room-reservation/internal/repository"
	"github.com/satriadp/meeting-room-reservation/internal/router"
	"github.com/satriadp/meeting-room-reservation/internal/service"
	"github.com/satriadp/meeting-room-reservation/internal/sheets"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; caching and rate limiting disabled")
	}

	rooms := repository.NewRoomRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	bookings := repository.NewBookingRepo(db)

	notifier := service.NewEventNotifier("")
	views := service.NewRedisViewCache(rdb, cacheCfg.Prefix)
	engine := booking.NewEngine(bookings, users, notifier, views, nil)

	var reconciler *sheets.Reconciler
	if cfg.SheetsEnabled() {
		sheet, err := sheets.NewGoogleSheet(context.Background(), cfg.SheetsID, cfg.SheetsClientEmail, cfg.SheetsPrivateKey)
		if err != nil {
			log.Fatalf("sheet client: %v", err)
		}
		reconciler = sheets.NewReconciler(rooms, users, bookings, sheet)
	} else {
		log.Println("sheet sync not configured; /v1/admin/sync endpoints disabled")
	}

	// Consume booking events into logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	// Sweep missed check-ins in the background.
	go func() {
		ticker := time.NewTicker(cfg.CheckInSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n, err := engine.SweepMissedCheckIns(ctx)
			cancel()
			if err != nil {
				log.Printf("check-in sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("check-in sweep marked %d bookings as missed", n)
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(appmw.NewTokenBucket(rlCfg, rdb))

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Rooms:     handler.NewRoomHandler(rooms, bookings),
		Bookings:  handler.NewBookingHandler(engine, bookings),
		Profile:   handler.NewProfileHandler(users),
		Stats:     handler.NewStatsHandler(rooms, bookings),
		Analytics: handler.NewAnalyticsHandler(rooms, bookings),
		AdminRoom: handler.NewAdminRoomHandler(rooms),
		AdminUser: handler.NewAdminUserHandler(cfg, users),
		Sync:      handler.NewSyncHandler(reconciler),
	}, cfg, cacheCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
