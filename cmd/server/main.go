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

	"github.com/andina-erp/be-procurement/db/migrations"
	"github.com/andina-erp/be-procurement/internal/client"
	"github.com/andina-erp/be-procurement/internal/config"
	"github.com/andina-erp/be-procurement/internal/database"
	"github.com/andina-erp/be-procurement/internal/handler"
	"github.com/andina-erp/be-procurement/internal/logger"
	"github.com/andina-erp/be-procurement/internal/middleware"
	"github.com/andina-erp/be-procurement/internal/repository"
	"github.com/andina-erp/be-procurement/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Procurement Service")

	// Run migrations before anything touches the schema
	if err := migrations.Run(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Migrations applied")
	if cfg.Database.MigrateOnly {
		return
	}

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	requirementRepo := repository.NewRequirementRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	configRepo := repository.NewApprovalConfigRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)
	orderRepo := repository.NewPurchaseOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Initialize external clients
	identityClient := client.NewIdentityHTTPClient(cfg.Clients.IdentityURL, cfg.Clients.Timeout)
	ratesClient := client.NewRatesHTTPClient(cfg.Clients.RatesURL, cfg.Clients.Timeout)

	// Audit publisher is optional; a nil publisher silently drops events.
	var audit *client.AuditPublisher
	if cfg.NATS.Enabled {
		audit, err = client.NewAuditPublisher(cfg.NATS.URL, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer audit.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS audit publisher initialized")
	}

	// Initialize services
	resolver := service.NewApprovalResolver(configRepo, log)
	procurementService := service.NewProcurementService(quotationRepo, orderRepo, ratesClient, audit, log)
	workflowService := service.NewWorkflowService(quotationRepo, signatureRepo, procurementService, resolver, identityClient, audit, log)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, audit, log)
	requirementService := service.NewRequirementService(requirementRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(requirementService, workflowService, procurementService, paymentService, configRepo, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(&log.Logger))
	r.Use(middleware.Recovery(&log.Logger))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Route("/api/v1", httpHandler.Routes)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
