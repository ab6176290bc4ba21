package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	adminApi "logileet/internal/admin/api"
	adminApp "logileet/internal/admin/app"
	adminRepo "logileet/internal/admin/repo"
	authApi "logileet/internal/auth/api"
	authApp "logileet/internal/auth/app"
	authRepo "logileet/internal/auth/repo"
	deliveryApi "logileet/internal/delivery/api"
	"logileet/internal/delivery/adapter/routing"
	deliveryApp "logileet/internal/delivery/app"
	deliveryDomain "logileet/internal/delivery/domain"
	deliveryRepo "logileet/internal/delivery/repo"
	"logileet/internal/shared/config"
	"logileet/internal/shared/db"
	"logileet/internal/shared/jwt"
	"logileet/internal/shared/middleware"
	"logileet/internal/shared/mq"
	"logileet/internal/shared/util"
	trackingApi "logileet/internal/tracking/api"
	trackingApp "logileet/internal/tracking/app"
	trackingRepo "logileet/internal/tracking/repo"
	vehicleApi "logileet/internal/vehicle/api"
	vehicleApp "logileet/internal/vehicle/app"
	vehicleRepo "logileet/internal/vehicle/repo"
	"logileet/internal/ws"
)

func main() {
	logger := util.NewLogger()
	instance := "main"

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal(instance, fmt.Errorf("failed to load config: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal(instance, err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal(instance, err)
	}
	logger.OK(instance, "database connected and migrated")

	// The broker is optional infrastructure. Lifecycle events are relayed
	// best-effort; everything else works without it.
	var pub deliveryDomain.Publisher
	if conn, ch, err := mq.ConnectToRMQ(&cfg.RabbitMQ); err != nil {
		logger.Warn(instance, fmt.Sprintf("RabbitMQ unavailable, lifecycle relay disabled: %v", err))
	} else {
		defer conn.Close()
		if err := mq.DeclareStatusExchange(ch); err != nil {
			logger.Fatal(instance, fmt.Errorf("failed to declare exchange: %w", err))
		}
		pub = mq.NewPublisher(ch)
		logger.OK(instance, "RabbitMQ connected, exchange declared: "+mq.StatusExchange)
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTLHours)
	auth := middleware.NewAuth(tokens)
	hub := ws.NewHub(logger)

	routeProvider := routing.NewTomTomProvider(
		cfg.Routing.BaseURL, cfg.Routing.APIKey,
		time.Duration(cfg.Routing.TimeoutSeconds)*time.Second,
	)

	authService := authApp.NewAuthService(authRepo.NewUserRepo(pool), tokens, logger)
	deliveryStore := deliveryRepo.NewDeliveryRepo(pool)
	deliveryService := deliveryApp.NewDeliveryService(deliveryStore, routeProvider, hub, pub, logger)
	trackingService := trackingApp.NewTrackingService(
		trackingRepo.NewTrackingRepo(pool), deliveryStore, hub, logger, cfg.Tracking.RetentionDays)
	vehicleService := vehicleApp.NewVehicleService(vehicleRepo.NewVehicleRepo(pool), logger)
	adminService := adminApp.NewAdminService(adminRepo.NewAdminRepo(pool), logger)

	trackingService.StartRetentionSweep(ctx, time.Duration(cfg.Tracking.SweepIntervalMinutes)*time.Minute)

	mux := http.NewServeMux()
	authApi.NewHandler(authService, logger).RegisterRoutes(mux, auth)
	deliveryApi.NewHandler(deliveryService, logger).RegisterRoutes(mux, auth)
	trackingApi.NewHandler(trackingService, logger).RegisterRoutes(mux, auth)
	vehicleApi.NewHandler(vehicleService, logger).RegisterRoutes(mux, auth)
	adminApi.NewHandler(adminService, logger).RegisterRoutes(mux, auth)
	ws.NewHandler(hub, tokens, logger).RegisterRoutes(mux)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		util.WriteData(w, http.StatusOK, "OK", map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().UTC(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.OK(instance, "server listening on port "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(instance, err)
		}
	}()

	<-ctx.Done()
	logger.Info(instance, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(instance, fmt.Errorf("graceful shutdown failed: %w", err))
		os.Exit(1)
	}

	logger.OK(instance, "server stopped")
}
