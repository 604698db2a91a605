package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/joefazee/optionsdesk/app"
	"github.com/joefazee/optionsdesk/app/database"
	"github.com/joefazee/optionsdesk/app/desk"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
)

func main() {
	manifestPath := flag.String("manifest", "deploy.toml", "deployment manifest")
	envFile := flag.String("env", ".env", "dotenv file loaded before the environment")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	appLogger := logger.NewZeroLogger(os.Stderr, logger.ParseLevel(cfg.LogLevel), logger.Fields{
		"service": "optionsdesk-deploy",
		"env":     cfg.Env,
	})
	fatal := func(action string, err error) {
		appLogger.Fatal(err, map[string]interface{}{"action": action})
	}

	m, err := loadManifest(*manifestPath)
	if err != nil {
		fatal("read_manifest", err)
	}
	req, err := m.request()
	if err != nil {
		fatal("read_manifest", err)
	}

	db, err := database.New(&cfg.DB)
	if err != nil {
		fatal("connect_database", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		fatal("connect_database", err)
	}
	defer sqlDB.Close()
	if err := database.Migrate(sqlDB); err != nil {
		fatal("migrate", err)
	}

	var rdb *redis.Client
	if cfg.Events.Bus == events.BusRedis {
		rdb = cache.NewRedisClient(&cfg.Cache)
		defer rdb.Close()
	}
	registry := metrics.New()
	bus, err := events.NewBus(&cfg.Events, rdb, appLogger, registry)
	if err != nil {
		fatal("create_event_bus", err)
	}
	defer bus.Close()

	calc, err := pricing.NewCalculator(&cfg.Pricing)
	if err != nil {
		fatal("create_calculator", err)
	}
	svc := desk.NewService(desk.NewRepository(db), calc, &cfg.Desk,
		events.NewNotifier(bus, appLogger, cfg.Events.PublishTimeout), appLogger, registry)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	result, err := svc.Deploy(ctx, req)
	if err != nil {
		fatal("deploy", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fatal("print_result", err)
	}
}
