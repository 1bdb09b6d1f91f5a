package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/koolihub/koolihub/internal/adapters/http"
	natsadapter "github.com/koolihub/koolihub/internal/adapters/nats"
	"github.com/koolihub/koolihub/internal/adapters/postgres"
	"github.com/koolihub/koolihub/internal/adapters/valkey"
	"github.com/koolihub/koolihub/internal/core/ports"
	"github.com/koolihub/koolihub/internal/core/usecases"
	"github.com/koolihub/koolihub/internal/pkg/config"
	"github.com/koolihub/koolihub/internal/pkg/logging"
	"github.com/koolihub/koolihub/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("koolihub-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache and broker are optional; the API degrades without them.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache = vc
		defer vc.Close()
	}

	var events ports.EventPublisher
	nc, err := natsadapter.Connect(cfg.NATS.URL, cfg.Telemetry.ServiceName)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
		pub, err := natsadapter.NewPublisher(nc)
		if err != nil {
			slog.Warn("booking stream unavailable", "error", err)
		} else {
			events = pub
		}
	}

	tripRepo := postgres.NewTripRepo(db)
	bookingRepo := postgres.NewBookingRepo(db)

	searchOpts := usecases.SearchOptions{
		RadiusKm:            cfg.Booking.SearchRadiusKm,
		SimilarityThreshold: cfg.Booking.SimilarityThreshold,
		PrefilterRadiusKm:   cfg.Booking.PrefilterRadiusKm,
		CandidateLimit:      cfg.Booking.CandidateLimit,
		CacheTTL:            cfg.Booking.SearchCacheTTL(),
	}

	deps := &http.Dependencies{
		Trips:     usecases.NewTripService(tripRepo, cache),
		Search:    usecases.NewTripSearchService(tripRepo, cache, searchOpts),
		Bookings:  usecases.NewBookingService(tripRepo, bookingRepo, events),
		NATS:      nc,
		DB:        db,
		Cache:     vc,
		RateLimit: cfg.Server.RateLimit,
		Version:   version,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "KooliHub API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.koolihub.in",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
