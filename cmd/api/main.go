package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketops/ticket-notifier/internal/api/http"
	"github.com/ticketops/ticket-notifier/internal/api/http/handlers"
	"github.com/ticketops/ticket-notifier/internal/config"
	"github.com/ticketops/ticket-notifier/internal/events"
	"github.com/ticketops/ticket-notifier/internal/mail"
	"github.com/ticketops/ticket-notifier/internal/observability"
	"github.com/ticketops/ticket-notifier/internal/persistence"
	"github.com/ticketops/ticket-notifier/internal/push"
	"github.com/ticketops/ticket-notifier/internal/repository"
	"github.com/ticketops/ticket-notifier/internal/service"
	"github.com/ticketops/ticket-notifier/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	slaConfigRepo := repository.NewSLAConfigRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewDeviceTokenRepository(redis.Client)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	credentials := mail.NewCredentialCache(cfg.Mail, logger)
	graph := mail.NewGraphClient(cfg.Mail.GraphBaseURL, credentials, logger)
	resolver := mail.NewIdentityResolver(graph, cfg.Mail.SenderObjectID, logger)
	sender := mail.NewDispatcher(graph, logger)

	recipientService := service.NewRecipientService(departmentRepo, userRepo, logger)
	slaService := service.NewSLAService(service.SLADependencies{
		TicketRepo:     ticketRepo,
		SLAConfigRepo:  slaConfigRepo,
		DepartmentRepo: departmentRepo,
		Recipients:     recipientService,
		Resolver:       resolver,
		Sender:         sender,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
	}, cfg.Mail, cfg.Sweep, logger)
	notifyService := service.NewNotifyService(recipientService, resolver, sender, dispatcher, cfg.Mail, logger)

	fanout := push.NewFanout(tokenRepo, cfg.Push, metrics, logger)
	fanout.Register(dispatcher)

	if cfg.Sweep.Enabled {
		slaWorker := worker.NewSLAWorker(slaService, cfg.Sweep.Interval(), logger)
		go slaWorker.Run(ctx)
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	notifyHandler := handlers.NewNotifyHandler(notifyService, slaService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Notify: notifyHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
