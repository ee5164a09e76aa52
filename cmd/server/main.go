package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chattrix/internal/config"
	"chattrix/internal/handler"
	"chattrix/internal/httpserver"
	"chattrix/internal/mqhandler"
	"chattrix/internal/realtime"
	"chattrix/internal/repository"
	"chattrix/internal/service"
	"chattrix/pkg/circuitbreaker"
	"chattrix/pkg/db"
	"chattrix/pkg/logger"
	"chattrix/pkg/mq"
	"chattrix/pkg/redis"
	"chattrix/pkg/util"

	"go.uber.org/zap"
)

type stores struct {
	notifications service.NotificationStore
	relationships service.RelationshipStore
	close         func()
}

func openStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		log.Info("Opening SQLite store", zap.String("path", cfg.Store.SQLitePath))
		sqlDB, err := repository.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			notifications: repository.NewSQLiteNotificationRepository(sqlDB),
			relationships: repository.NewSQLiteRelationshipRepository(sqlDB),
			close:         func() { sqlDB.Close() },
		}, nil
	default:
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			notifications: repository.NewNotificationRepository(pool),
			relationships: repository.NewRelationshipRepository(pool),
			close:         pool.Close,
		}, nil
	}
}

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting chattrix notification service...",
		zap.String("store", cfg.Store.Driver),
		zap.String("port", cfg.Server.Port),
		zap.Bool("enforce_ownership", cfg.Notification.EnforceOwnership),
		zap.Bool("consumer_enabled", cfg.Notification.Consumer.Enabled),
	)

	// Store
	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("Failed to init store", zap.Error(err))
	}
	defer st.close()
	log.Info("Store initialized successfully")

	// Realtime
	hub := realtime.NewHub(cfg.Realtime.SendBuffer, log)

	// Services
	notificationService := service.NewNotificationService(st.notifications, hub, log, service.Options{
		ListLimit:        cfg.Notification.ListLimit,
		EnforceOwnership: cfg.Notification.EnforceOwnership,
	})
	relationshipService := service.NewRelationshipService(st.relationships, log)

	// MQ consumer for notification.requested
	var consumer *mq.Consumer
	var publisher *mq.Publisher
	if cfg.Notification.Consumer.Enabled {
		consumer, publisher = startConsumer(cfg, notificationService, log)
	}

	// HTTP Server
	router := httpserver.NewRouter(log, httpserver.Handlers{
		Notification: handler.NewNotificationHandler(notificationService, log),
		Relationship: handler.NewRelationshipHandler(relationshipService, log),
		Realtime: handler.NewRealtimeHandler(hub, realtime.SessionConfig{
			WriteTimeout: cfg.Realtime.WriteTimeout,
			PingInterval: cfg.Realtime.PingInterval,
		}, log),
	}, notificationService, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("chattrix notification service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	if consumer != nil {
		consumer.Stop()
	}

	// websocket 连接已被 hijack，Shutdown 不会等待它们
	hub.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	if consumer != nil {
		consumer.Close()
	}
	if publisher != nil {
		publisher.Close()
	}

	log.Info("Shutdown complete")
}

func startConsumer(cfg *config.Config, creator mqhandler.NotificationCreator, log *zap.Logger) (*mq.Consumer, *mq.Publisher) {
	cc := cfg.Notification.Consumer

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	if err := redis.Ping(context.Background(), rdb); err != nil {
		// 去重和重试计数在 Redis 不可用时降级为直接处理
		log.Warn("Redis unavailable, dedup and retry counting degraded", zap.Error(err))
	}
	dedupTTL := time.Duration(cc.DedupTTLSeconds) * time.Second
	deduper := util.NewDeduper(rdb, dedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, dedupTTL)

	// MQ Publisher (DLQ)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}

	breaker := circuitbreaker.NewCircuitBreaker(mqhandler.BreakerConfig())
	h := mqhandler.NewNotificationRequestedHandler(creator, deduper, retryCounter, publisher, breaker, cc.MaxRetries, log)

	log.Info("Initializing MQ consumer...",
		zap.String("queue", cc.Queue),
		zap.String("routing_key", cc.RoutingKey),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cc.Queue, cc.RoutingKey, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	consumer.SetHandler(h.Handle)

	go func() {
		log.Info("Starting notification.requested consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()
	return consumer, publisher
}
