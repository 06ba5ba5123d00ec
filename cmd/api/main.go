package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/trailborn/tours-api/internal/http/handlers"
	sessionmw "github.com/trailborn/tours-api/internal/http/middleware"
	"github.com/trailborn/tours-api/internal/migrations"
	"github.com/trailborn/tours-api/internal/platform/mailer"
	"github.com/trailborn/tours-api/internal/platform/payments"
	"github.com/trailborn/tours-api/internal/ratings"
	"github.com/trailborn/tours-api/internal/repo/postgres"
	"github.com/trailborn/tours-api/internal/repo/redisrepo"
	"github.com/trailborn/tours-api/pkg/config"
	"github.com/trailborn/tours-api/pkg/database"
	"github.com/trailborn/tours-api/pkg/events"
	"github.com/trailborn/tours-api/pkg/logger"
	mw "github.com/trailborn/tours-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, cfg.Database.URL, migrations.FS); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Event bus is optional; without NATS the API still serves traffic.
	var bus events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Warn("failed to connect to NATS, events disabled", "error", err)
		} else {
			defer natsBus.Close()
			bus = natsBus
		}
	}

	userRepo := postgres.NewUserRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	tourRepo := postgres.NewTourRepository(pool, reviewRepo)
	bookingRepo := postgres.NewBookingRepository(pool)
	reviewStore := ratings.NewStore(reviewRepo, bus)

	emailSvc := newMailer(cfg)
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency)

	views, err := handlers.NewViewsHandler(tourRepo)
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}

	api := &handlers.API{
		Auth:     handlers.NewAuthHandler(userRepo, emailSvc, bus, cfg),
		Users:    handlers.NewUsersHandler(userRepo),
		Tours:    handlers.NewToursHandler(tourRepo),
		Reviews:  handlers.NewReviewsHandler(reviewStore),
		Bookings: handlers.NewBookingsHandler(bookingRepo, tourRepo, gateway, bus, cfg),
		Views:    views,
		Session:  sessionmw.NewSession(cfg.Auth.JWTSecret, userRepo),
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.App.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Redis.URL != "" {
		idemStore, err := redisrepo.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("failed to connect to Redis, idempotency disabled", "error", err)
		} else {
			defer idemStore.Close()
			r.Use(mw.Idempotency(idemStore))
		}
	}

	r.Mount("/", api.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Server.Port, "env", cfg.App.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.FromEmail, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}
