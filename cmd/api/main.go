package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketmanager/internal/api/http"
	"github.com/spec-kit/ticketmanager/internal/api/http/handlers"
	"github.com/spec-kit/ticketmanager/internal/config"
	"github.com/spec-kit/ticketmanager/internal/events"
	"github.com/spec-kit/ticketmanager/internal/migration"
	"github.com/spec-kit/ticketmanager/internal/notify"
	"github.com/spec-kit/ticketmanager/internal/observability"
	"github.com/spec-kit/ticketmanager/internal/persistence"
	"github.com/spec-kit/ticketmanager/internal/service"
	"github.com/spec-kit/ticketmanager/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := applyFlags(cfg, os.Args[1:]); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := persistence.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open ticket store", zap.Error(err))
	}
	defer stores.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	gate := service.NewGate()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var publisher notify.Publisher = notify.NewLogPublisher(logger)
	if redis.Enabled() {
		publisher = notify.NewRedisPublisher(redis.Client, cfg.Notification.Channel)
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      stores.Active,
		Gate:       gate,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		PageBudget: cfg.Search.PageBudget,
	})

	manager := migration.NewManager(stores.Active, stores.Previous, logger)
	if err := persistence.RunMigrations(ctx, manager, gate, logger); err != nil {
		// The gate stays closed; the HTTP surface keeps reporting the failure.
		logger.Error("storage conversion failed; ticket operations suspended", zap.Error(err))
	}

	notificationService := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)
	sweeper := worker.NewNotificationSweeper(stores.Active, publisher, gate, metrics, logger)
	if err := worker.StartNotificationWorker(notificationService, sweeper, cfg.Notification); err != nil {
		logger.Fatal("failed to start notification worker", zap.Error(err))
	}
	defer sweeper.Stop()

	deps := map[string]handlers.Pinger{"store": stores.Active}
	if redis.Enabled() && cfg.Notification.Enabled {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, gate, metrics),
		Tickets: handlers.NewTicketsHandler(ticketService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// applyFlags overlays command-line overrides on the environment config.
func applyFlags(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("ticketmanager", pflag.ContinueOnError)
	backend := fs.String("backend", cfg.Storage.Backend, "storage backend: sqlite, mysql or postgres")
	convertFrom := fs.String("convert-from", cfg.Storage.PreviousBackend, "backend holding the data before a switch")
	sqlitePath := fs.String("sqlite-path", cfg.Storage.SQLitePath, "embedded database file")
	addr := fs.String("addr", "", "HTTP bind address, host:port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Storage.Backend = strings.ToLower(*backend)
	cfg.Storage.PreviousBackend = strings.ToLower(*convertFrom)
	cfg.Storage.SQLitePath = *sqlitePath
	if *addr != "" {
		host, port, err := net.SplitHostPort(*addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", *addr, err)
		}
		cfg.App.Host, cfg.App.Port = host, port
	}
	return cfg.Validate()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
