package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"

	"github.com/joshua-takyi/airportcar/internal/config"
	"github.com/joshua-takyi/airportcar/internal/connect"
	"github.com/joshua-takyi/airportcar/internal/container"
	"github.com/joshua-takyi/airportcar/internal/geo"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/notify"
	"github.com/joshua-takyi/airportcar/internal/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting airport car API server", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supaClient, err := connect.InitSupabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")

	mongoClient, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully")

	validator, err := helpers.NewTokenValidator(ctx, cfg.SupabaseURL, cfg.IsDevelopment(), logger)
	if err != nil {
		logger.Error("Failed to initialize token validation", "error", err)
		os.Exit(1)
	}

	mapsClient, err := geo.NewMapsClient(cfg.GoogleMapsAPIKey, cfg.MapsCountry)
	if err != nil {
		logger.Error("Failed to initialize Google Maps client", "error", err)
		os.Exit(1)
	}

	var cld *cloudinary.Cloudinary
	if cfg.CloudinaryEnabled() {
		cld, err = connect.CloudinaryCredentials(cfg)
		if err != nil {
			logger.Error("Failed to connect to Cloudinary", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("Cloudinary not configured, CMS image uploads are disabled")
	}

	var notifier notify.Notifier
	var rabbit *connect.RabbitMQ
	if cfg.AMQPURL != "" {
		rabbit, err = connect.RabbitMQConnect(ctx, cfg.AMQPURL, 5, logger)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		publisher, err := notify.NewPublisher(rabbit.Chan, cfg.NotificationExchange, logger)
		if err != nil {
			logger.Error("Failed to set up notification exchange", "error", err)
			os.Exit(1)
		}
		notifier = publisher
		logger.Info("Connected to RabbitMQ successfully", "exchange", cfg.NotificationExchange)
	} else {
		logger.Warn("AMQP_URL not set, booking notifications will only be logged")
	}

	appContainer := container.NewContainer(container.Deps{
		Config:         cfg,
		Logger:         logger,
		SupabaseClient: supaClient,
		MongoDBClient:  mongoClient,
		Maps:           mapsClient,
		TokenValidator: validator,
		Cloudinary:     cld,
		Notifier:       notifier,
	})

	indexCtx, cancelIndexes := context.WithTimeout(ctx, 30*time.Second)
	if err := appContainer.Repo.EnsureIndexes(indexCtx); err != nil {
		logger.Error("Failed to ensure MongoDB indexes", "error", err)
		cancelIndexes()
		os.Exit(1)
	}
	cancelIndexes()

	if !cfg.PaymentsEnabled() {
		logger.Warn("STRIPE_SECRET_KEY not set, deposit payment links are disabled")
	}
	if cfg.AdminDevBypass {
		logger.Warn("ADMIN_DEV_BYPASS is set, loopback requests are treated as admin in development")
	}

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// let queued booking notifications drain before the broker goes away
	appContainer.BookingService.Wait()
	validator.Close()
	rabbit.Close()
	if err := connect.MongoDBDisconnect(); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}

	return slog.New(handler)
}
