package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/joefazee/optionsdesk/app"
	"github.com/joefazee/optionsdesk/app/accounts"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/app/archive"
	"github.com/joefazee/optionsdesk/app/database"
	"github.com/joefazee/optionsdesk/app/desk"
	apiDoc "github.com/joefazee/optionsdesk/app/doc"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/options"
	"github.com/joefazee/optionsdesk/app/pricing"
	_ "github.com/joefazee/optionsdesk/docs"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/deps"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/internal/router"
	"github.com/joefazee/optionsdesk/internal/sanitizer"
	"github.com/joefazee/optionsdesk/internal/security"
	"github.com/joefazee/optionsdesk/internal/validator"
)

// @title Options Desk API
// @version 1.0
// @description Covered-call options desk: create, buy, resell, exercise and rebalance options on supported tokens.

// @license.name MIT License
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	appLogger := logger.NewZeroLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel), logger.Fields{
		"service": "optionsdesk",
		"env":     cfg.Env,
	})

	if err := validator.RegisterGinRules(); err != nil {
		appLogger.Fatal(err, map[string]interface{}{"action": "register_validation_rules"})
	}

	db, err := database.New(&cfg.DB)
	if err != nil {
		appLogger.Fatal(err, map[string]interface{}{"action": "connect_database"})
	}
	if cfg.DB.AutoMigrate {
		sqlDB, err := db.DB()
		if err != nil {
			appLogger.Fatal(err, map[string]interface{}{"action": "migrate"})
		}
		if err := database.Migrate(sqlDB); err != nil {
			appLogger.Fatal(err, map[string]interface{}{"action": "migrate"})
		}
	}

	var rdb *redis.Client
	if cfg.Cache.Backend == cache.RedisBackend || cfg.Events.Bus == events.BusRedis {
		rdb = cache.NewRedisClient(&cfg.Cache)
		defer rdb.Close()
	}
	cacheService, err := cache.New[string](&cfg.Cache, rdb, "optionsdesk")
	if err != nil {
		appLogger.Fatal(err, map[string]interface{}{"action": "create_cache"})
	}

	tokenMaker, err := security.NewPasetoMaker(cfg.Accounts.SymmetricKey)
	if err != nil {
		appLogger.Fatal(err, map[string]interface{}{"action": "create_token_maker"})
	}

	container := deps.NewContainer(db, tokenMaker, sanitizer.NewHTMLStripper(), appLogger, cacheService)
	container.Redis = rdb
	container.Metrics = metrics.New()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.CorsMiddleware(), container.Metrics.GinMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mounter := router.NewMounter(r, container).WithAuth(accounts.AuthMiddleware(tokenMaker))
	stream, sweeper, exporter := mountModules(ctx, mounter, container, cfg, appLogger)
	defer stream.Close()

	probes := map[string]api.HealthProbe{"database": database.Ping(db)}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	r.GET("/api/v1/healthz", api.HealthCheck(probes))
	r.GET("/metrics", gin.WrapH(container.Metrics.Handler()))
	apiDoc.Init(r, cfg.Env, "")

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("starting options desk API", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return stream.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	if exporter != nil {
		g.Go(func() error { return exporter.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal(err, map[string]interface{}{"action": "serve"})
	}
	appLogger.Info("options desk API stopped", nil)
}

// mountModules wires the feature modules in dependency order.
func mountModules(ctx context.Context,
	m *router.Mounter,
	c *deps.Container,
	cfg *app.Config,
	appLogger logger.Logger,
) (*events.Module, *options.Sweeper, *archive.Exporter) {
	fatal := func(module string, err error) {
		appLogger.Fatal(err, map[string]interface{}{"action": "init_module", "module": module})
	}

	stream, err := events.Init(m, c, &cfg.Events)
	if err != nil {
		fatal("events", err)
	}
	if _, err := pricing.Init(m, c, &cfg.Pricing); err != nil {
		fatal("pricing", err)
	}
	if _, err := desk.Init(m, c, &cfg.Desk); err != nil {
		fatal("desk", err)
	}
	if _, err := accounts.Init(m, c, &cfg.Accounts); err != nil {
		fatal("accounts", err)
	}
	_, sweeper, err := options.Init(m, c, &cfg.Options)
	if err != nil {
		fatal("options", err)
	}
	exporter, err := archive.Init(ctx, c, &cfg.Archive)
	if err != nil {
		fatal("archive", err)
	}
	return stream, sweeper, exporter
}
