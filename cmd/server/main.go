package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/mailer"
	"github.com/iliyamo/hotel-booking/internal/media"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/payment"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/scheduler"
	"github.com/iliyamo/hotel-booking/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("load .env: %v", err)
	}
	cfg := config.Load() // Load environment config
	if cfg.IsDev() {
		log.SetHeader("${time_rfc3339} ${level} ${short_file}:${line}")
		log.SetLevel(log.DEBUG)
	} else {
		log.SetLevel(log.INFO) // default header is JSON
	}

	// ---- Storage ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalf("%v", err)
		}
	}
	rdb := config.NewRedisClient(config.LoadRedisConfig()) // nil when unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	hotels := repository.NewHotelRepo(db)
	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	tickets := repository.NewTicketRepo(db)

	// ---- Services ----
	clock := clockwork.NewRealClock()
	queueCfg := config.LoadQueueConfig()
	mail := mailer.New(config.LoadMailConfig(), cfg.ClientURL)
	publisher := service.NewPublisher(queueCfg, bookings, clock)
	manager := booking.NewManager(bookings, rooms, clock, publisher)
	checkout := payment.NewService(config.LoadStripeConfig(), cfg.ClientURL, nil, payments, manager, clock)

	mediaCfg := config.LoadMediaConfig()
	uploader, err := media.New(mediaCfg.CloudName, mediaCfg.APIKey, mediaCfg.APISecret, mediaCfg.Folder)
	if err != nil {
		log.Fatalf("cloudinary: %v", err)
	}

	jobs, err := scheduler.New(config.LoadSchedulerConfig(), clock, bookings, mail, tokens)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	jobs.Start()

	bg, stopBackground := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := queue.NewConsumer(queueCfg, mail).Run(bg); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("booking consumer: %v", err)
		}
	}()

	// ---- HTTP ----
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = middleware.NewValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Errorf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			log.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("8M"))

	rl := config.LoadRateLimitConfig()
	e.Use(middleware.NewRateLimiter(rl, rdb))
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	router.Register(e, router.Handlers{
		Health:   handler.NewHealthHandler(db, rdb),
		Auth:     handler.NewAuthHandler(cfg, users, tokens, mail),
		Users:    handler.NewUserHandler(users),
		Hotels:   handler.NewHotelHandler(hotels, rooms, cache, uploader),
		Rooms:    handler.NewRoomHandler(rooms, manager.Checker(), cache, uploader),
		Bookings: handler.NewBookingHandler(manager, bookings),
		Payments: handler.NewPaymentHandler(payments, manager, checkout),
		Tickets:  handler.NewTicketHandler(tickets),
	}, router.Options{
		JWTSecret:   cfg.JWTSecret,
		AuthLimiter: middleware.NewRateLimiter(rl.ForAuth(), rdb),
		Cache:       cache,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	if err := jobs.Shutdown(); err != nil {
		log.Errorf("scheduler shutdown: %v", err)
	}
	stopBackground()
	<-consumerDone
	publisher.Wait()
}
