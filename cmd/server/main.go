package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/minisitehub/backend/internal/config"
	"github.com/minisitehub/backend/internal/handler"
	appMiddleware "github.com/minisitehub/backend/internal/middleware"
	"github.com/minisitehub/backend/internal/repository"
	"github.com/minisitehub/backend/internal/service"
	"github.com/minisitehub/backend/internal/ws"
	"github.com/minisitehub/backend/pkg/logger"
	"github.com/minisitehub/backend/pkg/payment"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if present (for local development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "minisitehub-backend",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database error", zap.Error(err))
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatal("migration error", zap.Error(err))
	}
	log.Info("database connected and migrated")

	// Checkout session cache
	sessions, err := repository.NewSessionCache(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis error", zap.Error(err))
	}
	defer sessions.Close()
	log.Info("redis connected")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	minisiteRepo := repository.NewMinisiteRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		log.Fatal("admin seed error", zap.Error(err))
	}

	availabilitySvc := service.NewSlugAvailabilityService(minisiteRepo, reservationRepo, paymentRepo, log)
	reservationSvc := service.NewReservationService(reservationRepo, availabilitySvc, log)
	publishSvc := service.NewPublishService(minisiteRepo, paymentRepo, log)

	gateway := payment.NewMockGateway()
	activationSvc := service.NewSubscriptionActivationService(gateway, paymentRepo, sessions, log)
	checkoutSvc := service.NewCheckoutService(reservationSvc, gateway, sessions, log)
	wooSvc := service.NewWooCommerceIntegration(gateway, activationSvc, reservationSvc, sessions, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	healthHandler := handler.NewHealthHandler(db, sessions)
	userHandler := handler.NewUserHandler(authSvc)
	plansHandler := handler.NewPlansHandler()
	publishHandler := handler.NewPublishHandler(availabilitySvc, reservationSvc, publishSvc, activationSvc)
	paymentHandler := handler.NewPaymentHandler(checkoutSvc, wooSvc, gateway)
	adminHandler := handler.NewAdminHandler(db, authSvc)
	countdownHandler := ws.NewCountdownHandler(reservationSvc, authSvc)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(appMiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Health check and public routes (no auth)
	r.Get("/health", healthHandler.Check)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/plans", plansHandler.List)
	r.Post("/api/payment/webhook", paymentHandler.Webhook) // Public webhook

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		// Auth
		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		// Slug availability and reservations
		r.Post("/api/slugs/check", publishHandler.CheckSlug)
		r.Post("/api/slugs/reserve", publishHandler.ReserveSlug)
		r.Delete("/api/reservations/{id}", publishHandler.CancelReservation)
		r.Get("/api/reservations/{id}/valid", publishHandler.ValidateReservation)

		// Publishing
		r.Get("/api/minisites/{id}/publish", publishHandler.GetPublishForm)
		r.Post("/api/minisites/{id}/publish", publishHandler.Publish)

		// Payment
		r.Post("/api/payment/checkout", paymentHandler.CreateCheckout)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/stats", adminHandler.GetStats)
			r.Get("/api/admin/users", adminHandler.ListUsers)
			r.Get("/api/users", userHandler.List)
			r.Post("/api/users", userHandler.Create)
			r.Delete("/api/users/{id}", userHandler.Delete)
		})
	})

	// WebSocket countdown (auth via query param)
	r.HandleFunc("/reservations/{reservationId}/countdown", countdownHandler.Handle)

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info("server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
