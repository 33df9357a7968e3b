package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/iota-uz/orghierarchy/internal/server"
	"github.com/iota-uz/orghierarchy/modules"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/pkg/application"
	"github.com/iota-uz/orghierarchy/pkg/configuration"
	"github.com/iota-uz/orghierarchy/pkg/eventbus"
	"github.com/iota-uz/orghierarchy/pkg/logging"
	"github.com/iota-uz/orghierarchy/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	if conf.MigrationsOnStart {
		db := stdlib.OpenDBFromPool(pool)
		if err := persistence.Migrate(context.Background(), db, goose.DialectPostgres, logger); err != nil {
			_ = db.Close()
			log.Fatalf("failed to apply migrations: %v", err)
		}
		_ = db.Close()
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(runCtx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
