package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pizza-service/config"
	"pizza-service/internal/api"
	"pizza-service/internal/broker"
	"pizza-service/internal/filestore"
	"pizza-service/internal/notify"
	"pizza-service/internal/redisclient"
	"pizza-service/internal/service"
	"pizza-service/internal/store"
	"pizza-service/internal/util"
	"pizza-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pizza service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.JaegerEndpoint != "" {
		tp, err := util.InitTracer("pizza-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Redis backs the catalog cache and the status hub; both are optional.
	var (
		cache *redisclient.Client
		hub   api.StatusSubscriber
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache and status push", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = redisClient
			hub = redisClient
			logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var (
		eventPublisher *broker.EventPublisher
		orderEvents    service.OrderEventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		orderEvents = eventPublisher
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else if cache != nil {
		orderEvents = worker.NewDirectStatusPush(cache)
	}

	var notifier service.Notifier = notify.NewLogNotifier()
	if cfg.Telegram.Enabled() {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		logger.Info("Telegram notifications enabled")
	}

	dispatcher := worker.NewDispatcher(cfg.Business.NotifyWorkers, cfg.Business.NotifyTimeout)
	files := filestore.New(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)

	orderService := service.NewOrderService(db, db, notifier, orderEvents, dispatcher, service.OrderOptions{
		StrictTransitions: cfg.Business.StrictStatusTransitions,
	})

	var catalogCache service.CatalogCache
	if cache != nil {
		catalogCache = cache
	}
	var pizzaEvents service.PizzaEventPublisher
	if eventPublisher != nil {
		pizzaEvents = eventPublisher
	}
	pizzaService := service.NewPizzaService(db, files, catalogCache, pizzaEvents, cfg.Business.CatalogCacheTTL)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, pizzaService, db, hub, cfg.Storage.UploadDir)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if eventPublisher != nil && cache != nil {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		statusWorker := worker.NewStatusWorker(consumer, cache)
		g.Go(func() error {
			defer statusWorker.Stop()
			if err := statusWorker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("status worker: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server forced to shutdown", zap.Error(err))
		}
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			logger.Warn("Pending notifications abandoned", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}
