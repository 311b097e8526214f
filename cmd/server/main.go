// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shopmetrics/stockcast/internal/api"
	"github.com/shopmetrics/stockcast/internal/cache"
	"github.com/shopmetrics/stockcast/internal/config"
	"github.com/shopmetrics/stockcast/internal/forecast"
	"github.com/shopmetrics/stockcast/internal/repository"
	"github.com/shopmetrics/stockcast/internal/repository/postgres"
	"github.com/shopmetrics/stockcast/internal/service"
	"github.com/shopmetrics/stockcast/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	alertCache, err := cache.NewAlertCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Alert cache unavailable, continuing without caching")
		alertCache = cache.NewNoopAlertCache()
	}

	svc := buildForecastService(db, alertCache, cfg)

	router := api.NewRouter(svc, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func buildForecastService(db *postgres.DB, alertCache cache.AlertCache, cfg *config.Config) *service.ForecastService {
	products := repository.NewProductRepository(db.DB)
	sales := repository.NewSalesRepository(db.DB)
	forecasts := repository.NewForecastRepository(db)

	history := forecast.NewHistoryReader(sales, cfg.Forecast.LookbackDays, cfg.Forecast.MinHistoryDays)
	generator := forecast.NewGenerator(history, forecasts)
	evaluator := forecast.NewEvaluator(sales, forecasts, cfg.Forecast.EvalWindowDays)
	alerts := forecast.NewAlertEngine(products, forecasts, cfg.Forecast.SafetyMargin)
	pipeline := forecast.NewPipeline(
		products, generator, evaluator, alerts,
		cfg.Forecast.Workers,
		time.Duration(cfg.Forecast.ProductTimeoutSecs)*time.Second,
	)

	return service.NewForecastService(products, sales, forecasts, generator, evaluator, alerts, pipeline, alertCache)
}
