package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/config"
	"github.com/vistaro/booking-service/internal/database"
	"github.com/vistaro/booking-service/internal/handler"
	"github.com/vistaro/booking-service/internal/middleware"
	"github.com/vistaro/booking-service/internal/queue"
	"github.com/vistaro/booking-service/internal/repository"
	"github.com/vistaro/booking-service/internal/router"
	"github.com/vistaro/booking-service/internal/service"
	"github.com/vistaro/booking-service/internal/validate"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the limiter and cache become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	// Repositories
	seatRepo := repository.NewSeatRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	slotRepo := repository.NewSlotRepo(db)
	foodRepo := repository.NewFoodRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Services
	lockManager := service.NewLockManager(db, seatRepo, reservationRepo, cfg.ReservationTTL)
	finalizer := service.NewFinalizer(db, seatRepo, reservationRepo, bookingRepo, foodRepo,
		service.PublishBookingConfirmed)

	sweeper, err := service.StartSweeper(lockManager, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper start failed: %v", err)
	}
	defer sweeper.Stop()

	// Booking event consumer runs for the life of the process and reconnects
	// on its own; it exits when the context is cancelled.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go queue.StartBookingConsumer(consumerCtx)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	seatHandler := handler.NewSeatHandler(seatRepo, lockManager)
	bookingHandler := handler.NewBookingHandler(finalizer, bookingRepo)
	slotHandler := handler.NewSlotHandler(slotRepo)
	foodHandler := handler.NewFoodHandler(foodRepo)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterCatalog(e, slotHandler, foodHandler, cache)
	router.RegisterSeats(e, seatHandler, cfg.JWTSecret, limit)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("http server stopped: %v", err)
		}
	}()

	// Block until interrupted, then drain in-flight requests.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
