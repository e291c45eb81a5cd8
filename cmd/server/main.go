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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/config"
	"github.com/dihanio/NesaVent-sub001/internal/database"
	"github.com/dihanio/NesaVent-sub001/internal/handler"
	"github.com/dihanio/NesaVent-sub001/internal/middleware"
	"github.com/dihanio/NesaVent-sub001/internal/queue"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
	"github.com/dihanio/NesaVent-sub001/internal/router"
	"github.com/dihanio/NesaVent-sub001/internal/service"
	"github.com/dihanio/NesaVent-sub001/internal/telemetry"
)

const serviceName = "nesavent-api"

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	orders := repository.NewOrderRepo(db)
	tickets := repository.NewTicketRepo(db)
	withdrawals := repository.NewWithdrawalRepo(db)
	notifications := repository.NewNotificationRepo(db)
	paymentEvents := repository.NewPaymentEventRepo(db)

	var publisher service.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger)
		startConsumers(ctx, cfg.RabbitURL, logger)
	} else {
		logger.Warn("RABBITMQ_URL not set, broker publishing disabled")
	}
	var gateway service.PaymentGateway
	if cfg.MidtransServerKey != "" {
		gateway = service.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransProduction)
	} else {
		logger.Warn("MIDTRANS_SERVER_KEY not set, orders are created without payment sessions")
	}

	notifier := service.NewNotificationService(notifications, publisher, logger)
	catalog := service.NewCatalogService(db, events, service.NewDummyDetector(), notifier, logger)
	orderSvc := service.NewOrderService(db, users, events, orders, gateway, cfg.OrderExpiry, logger)
	paymentSvc := service.NewPaymentService(db, orders, events, tickets, paymentEvents, gateway, notifier, publisher, logger)
	ticketSvc := service.NewTicketService(tickets, events, logger)
	ledger := service.NewLedgerService(db, users, events, withdrawals, notifier, cfg.Ledger, logger)
	moderation := service.NewModerationService(db, events, users, tokens, notifier, logger)
	invalidateCatalog := func(ctx context.Context) {
		if err := middleware.InvalidateCache(ctx, cacheCfg, rdb); err != nil {
			logger.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	moderation.OnCatalogChange = invalidateCatalog
	paymentSvc.OnCatalogChange = invalidateCatalog

	go paymentSvc.RunExpirySweeper(ctx, cfg.OrderSweepInterval)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(middleware.Tracing(serviceName))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.Metrics())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	cache := middleware.NewRedisCache(cacheCfg, rdb, logger)

	authH := handler.NewAuthHandler(cfg, users, tokens, logger)
	eventH := handler.NewEventHandler(catalog)
	orderH := handler.NewOrderHandler(orderSvc, paymentSvc)
	ticketH := handler.NewTicketHandler(ticketSvc)
	withdrawalH := handler.NewWithdrawalHandler(ledger)
	adminH := handler.NewAdminHandler(moderation)
	notificationH := handler.NewNotificationHandler(notifier)

	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterAuth(e, authH, cfg.JWTSecret, limiter)
	router.RegisterPublic(e, eventH, orderH, cfg.JWTSecret, cache)
	router.RegisterCustomer(e, orderH, ticketH, notificationH, adminH, cfg.JWTSecret, limiter)
	router.RegisterMitra(e, eventH, ticketH, withdrawalH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, withdrawalH, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// startConsumers runs the log sinks that stand in for the email and push
// collaborators.
func startConsumers(ctx context.Context, url string, logger *zap.Logger) {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "logs"
	}
	for _, c := range []*queue.Consumer{
		{URL: url, Queue: queue.NotificationCreatedQueue, Handler: queue.NotificationLogHandler(dir), Logger: logger},
		{URL: url, Queue: queue.TicketIssuedQueue, Handler: queue.TicketLogHandler(dir), Logger: logger},
	} {
		go func(c *queue.Consumer) {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", zap.String("queue", c.Queue), zap.Error(err))
			}
		}(c)
	}
}
