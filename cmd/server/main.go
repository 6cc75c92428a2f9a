package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/config"
	"github.com/lwitkowski/aero-offers/internal/analytics"
	"github.com/lwitkowski/aero-offers/internal/api"
	"github.com/lwitkowski/aero-offers/internal/fx"
	"github.com/lwitkowski/aero-offers/internal/offersapi"
	"github.com/lwitkowski/aero-offers/internal/pagination"
	"github.com/lwitkowski/aero-offers/internal/scheduler"
	"github.com/lwitkowski/aero-offers/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warn("Invalid LOG_LEVEL, using info")
	}
	gin.SetMode(cfg.Server.GinMode)

	// Offers API client
	client, err := offersapi.NewClient(cfg.OffersAPI.BaseURL, cfg.OffersAPI.Timeout, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create offers API client")
	}
	client.SetModelLimit(cfg.OffersAPI.ModelLimit)

	// Exchange rates used when an offer carries no euro amount
	var rateSource fx.RateSource
	var refresher scheduler.RatesRefresher
	var ratesStatus api.RatesStatus
	if cfg.Rates.Enabled {
		rates := fx.NewRates(logger, cfg.Rates.URL)
		rateSource = rates
		refresher = rates
		ratesStatus = rates
	}
	converter := fx.NewConverter(rateSource)

	// One pagination controller per browser session
	sessions := session.NewStore(func(filter pagination.Filter) *pagination.Controller {
		return pagination.NewController(client, cfg.OffersAPI.PageSize, filter, logger)
	}, cfg.Sessions.TTL, logger)

	tracker, dispatcher := setupAnalytics(cfg, logger)

	sched := scheduler.NewScheduler(refresher, sessions, scheduler.Config{
		RatesInterval: time.Duration(cfg.Rates.RefreshHours) * time.Hour,
		SweepInterval: cfg.Sessions.SweepInterval,
	}, logger)
	sched.Start()

	handler := api.NewHandler(client, sessions, converter, tracker, api.HandlerConfig{
		DefaultLocale: cfg.Formatting.DefaultLocale,
		SessionTTL:    cfg.Sessions.TTL,
		ModelLimit:    cfg.OffersAPI.ModelLimit,
		Rates:         ratesStatus,
	}, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	if err := api.SetupRoutes(router, handler, cfg.Server.AllowedOrigins); err != nil {
		logger.WithError(err).Fatal("Failed to set up routes")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	sched.Stop()
	sessions.Close()
	if dispatcher != nil {
		if err := dispatcher.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop analytics dispatcher")
		}
	}
	logger.Info("Server stopped")
}

// setupAnalytics returns a fluentd backed tracker when analytics is enabled
// and reachable, and a no-op tracker otherwise.
func setupAnalytics(cfg *config.Config, logger *logrus.Logger) (analytics.Tracker, *analytics.Dispatcher) {
	if !cfg.Analytics.Enabled {
		return analytics.NoopTracker{}, nil
	}

	poster, err := analytics.NewFluentPoster(analytics.FluentConfig{
		Host:      cfg.Analytics.FluentHost,
		Port:      cfg.Analytics.FluentPort,
		TagPrefix: cfg.Analytics.TagPrefix,
		Timeout:   5 * time.Second,
	})
	if err != nil {
		logger.WithError(err).Warn("Analytics disabled, fluentd client could not be created")
		return analytics.NoopTracker{}, nil
	}

	queue := analytics.NewEventQueue(
		cfg.Analytics.QueueSize,
		cfg.Analytics.BatchSize,
		time.Duration(cfg.Analytics.FlushInterval)*time.Second,
		logger,
	)
	dispatcher := analytics.NewDispatcher(poster, queue, analytics.DispatcherConfig{
		Tag:        "events",
		MaxRetries: cfg.Analytics.MaxRetries,
		RetryDelay: time.Duration(cfg.Analytics.RetryDelay) * time.Second,
	}, logger)
	dispatcher.Start()

	return analytics.NewQueueTracker(queue, logger), dispatcher
}
