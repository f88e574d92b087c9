package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/fieldion/api/missed-call-router/internal/config"
	"gitlab.com/fieldion/api/missed-call-router/internal/gateway"
	"gitlab.com/fieldion/api/missed-call-router/internal/observer"
	"gitlab.com/fieldion/api/missed-call-router/internal/server"
	"gitlab.com/fieldion/api/missed-call-router/internal/storage"
	"gitlab.com/fieldion/api/missed-call-router/internal/usecase"
	"gitlab.com/fieldion/api/missed-call-router/pkg/logger"
	"gitlab.com/fieldion/api/missed-call-router/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting missed-call router",
		zap.String("environment", cfg.Environment),
		zap.String("store_base_id", cfg.Store.BaseID),
		zap.Int("port", cfg.Server.Port),
	)

	// A single outbound client shared by the record store and the gateway.
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	store := storage.NewClient(
		cfg.Store.BaseURL,
		cfg.Store.BaseID,
		cfg.Store.APIKey,
		cfg.Store.ProfilesTable,
		cfg.Store.LogTable,
		httpClient,
	)
	if !store.Configured() {
		logger.Log.Warn("Record store credentials not set, duplicate guard and transaction log are disabled")
	}

	sender := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.AccountSID,
		cfg.Gateway.AuthToken,
		httpClient,
	)

	service := usecase.NewDispatchService(store, store, sender, usecase.RoutingConfig{
		TemplateSID:  cfg.Gateway.TemplateSID,
		WhatsAppFrom: cfg.Gateway.WhatsAppFrom,
	})

	signature := server.NewSignatureValidator(cfg.Gateway.AuthToken, cfg.Gateway.PublicURL)
	if signature == nil {
		logger.Log.Warn("Webhook signature validation disabled, set TWILIO_AUTH_TOKEN and PUBLIC_URL to enable")
	}

	httpServer := server.NewServer(strconv.Itoa(cfg.Server.Port), service, store, signature, logger.Log)

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		httpServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	httpServer.Start()

	logger.Log.Info("Endpoints available",
		zap.String("webhook", fmt.Sprintf("http://localhost:%d/webhook/sms", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	// Probe the record store in the background so a slow or unreachable
	// store delays readiness reporting, not webhook availability.
	probeCtx, probeCancel := context.WithCancel(context.Background())
	defer probeCancel()
	if store.Configured() {
		utils.SafeGo(func() {
			if err := store.WaitReady(probeCtx); err != nil {
				logger.Log.Error("Record store probe failed, log writes may not succeed", zap.Error(err))
				return
			}
			logger.Log.Info("Record store reachable")
		}, func(r interface{}, stack []byte) {
			logger.Log.Error("Panic during record store probe",
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
		})
	}

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	probeCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	start := time.Now()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
	} else {
		logger.Log.Info("[shutdown] HTTP server stopped",
			zap.Duration("duration", time.Since(start)))
	}

	logger.Log.Info("Missed-call router shutdown complete")
}
