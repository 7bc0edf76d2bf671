package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"khidma/internal/amqp"
	"khidma/internal/auth"
	"khidma/internal/cache"
	"khidma/internal/cli"
	apphttp "khidma/internal/http"
	"khidma/internal/importer"
	applog "khidma/internal/log"
	"khidma/internal/metrics"
	"khidma/internal/ocr"
	"khidma/internal/ports"
	"khidma/internal/printing"
	"khidma/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("khidma", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	repo := cli.OpenStore(ctx, logger, cfg)
	defer repo.Close()

	// Events are optional: without a broker the worker's periodic sync
	// still mirrors collections.
	var events ports.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", "error", err)
		} else {
			amqpClient = c
			events = c
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	cacheMgr := cache.NewManager()
	cacheMgr.StartCleanup(time.Minute)

	gate, err := auth.New(cfg.AuthPassword, cfg.AuthPasswordHash, cfg.CookieSecure)
	if err != nil {
		logger.Error("Failed to initialize password gate", "error", err)
		os.Exit(1)
	}

	registry := services.NewRegistryService(repo, cfg.CacheTTL, cacheMgr)
	deps := apphttp.Deps{
		Dashboard:   services.NewDashboardService(repo),
		Collections: services.NewCollectionService(repo, events),
		Registry:    registry,
		Settlement:  services.NewSettlementService(repo, events),
		Reports:     services.NewReportService(repo),
		Sadaqat:     services.NewSadaqatService(repo),
		Importer:    importer.New(repo),
		Gate:        gate,
		Metrics:     metrics.New(),
		Ready:       repo.Ping,
	}

	var gemini *ocr.Gemini
	if cfg.OCREnabled() {
		g, err := ocr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("OCR disabled", "error", err)
		} else {
			gemini = g
			deps.OCR = g
		}
	}

	var chrome *printing.Chrome
	if cfg.PDFEnabled {
		chrome = printing.NewChrome(printing.Config{
			RemoteURL: cfg.ChromeURL,
			NoSandbox: os.Getuid() == 0,
		})
		deps.Printer = chrome
		logger.Info("PDF rendering enabled", "remote", cfg.ChromeURL != "")
	}

	if sheets := cli.OpenSheets(ctx, logger, cfg); sheets != nil {
		deps.Sheets = sheets
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	}, deps)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheMgr.Stop()
		if chrome != nil {
			_ = chrome.Close()
		}
		if gemini != nil {
			_ = gemini.Close()
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
	})

	logger.Info("Starting khidma server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"ocr", deps.OCR != nil,
		"pdf", deps.Printer != nil,
		"sheets", deps.Sheets != nil,
		"events", events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
