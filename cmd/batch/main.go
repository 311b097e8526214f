// cmd/batch/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/shopmetrics/stockcast/internal/cache"
	"github.com/shopmetrics/stockcast/internal/config"
	"github.com/shopmetrics/stockcast/internal/forecast"
	"github.com/shopmetrics/stockcast/internal/repository"
	"github.com/shopmetrics/stockcast/internal/repository/postgres"
	"github.com/shopmetrics/stockcast/internal/service"
	"github.com/shopmetrics/stockcast/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func buildService(c *cli.Context) (*service.ForecastService, *postgres.DB, error) {
	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

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

	svc := service.NewForecastService(products, sales, forecasts, generator, evaluator, alerts, pipeline, cache.NewNoopAlertCache())
	return svc, db, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runBatch(c *cli.Context) error {
	svc, db, err := buildService(c)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := svc.RunBatch(c.Context)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runEvaluate(c *cli.Context) error {
	svc, db, err := buildService(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var productID *int64
	if id := c.Int64("product-id"); id > 0 {
		productID = &id
	}

	report, err := svc.GetAccuracy(c.Context, c.Int("horizon"), productID)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runAlerts(c *cli.Context) error {
	svc, db, err := buildService(c)
	if err != nil {
		return err
	}
	defer db.Close()

	set, err := svc.GetRestockAlerts(c.Context)
	if err != nil {
		return err
	}
	return printJSON(set)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "batch",
		Usage: "Run forecast batch cycles from the command line",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the full pipeline: forecast all products, grade, and assess alerts",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: runBatch,
			},
			{
				Name:  "evaluate",
				Usage: "Grade pending forecasts and print the accuracy report for a horizon",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Forecast horizon in days (1, 7, or 30)",
						Value: 7,
					},
					&cli.Int64Flag{
						Name:  "product-id",
						Usage: "Restrict the report to a single product",
					},
				},
				Action: runEvaluate,
			},
			{
				Name:  "alerts",
				Usage: "Assess restock urgency for all products and print the alert set",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: runAlerts,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
