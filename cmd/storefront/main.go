package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/checkout"
	"github.com/apada-appleid/biosell-sub000/internal/client"
	"github.com/apada-appleid/biosell-sub000/internal/config"
	h "github.com/apada-appleid/biosell-sub000/internal/http"
	"github.com/apada-appleid/biosell-sub000/internal/logger"
	"github.com/apada-appleid/biosell-sub000/internal/publisher"
	"github.com/apada-appleid/biosell-sub000/internal/session"
	"github.com/apada-appleid/biosell-sub000/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger is not built yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	store, closeStore, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeStore()

	var events checkout.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		p := publisher.NewOrderPublisher(cfg.KafkaTopic, log, cfg.KafkaBrokers...)
		defer func() {
			if err := p.Close(); err != nil {
				log.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		events = p
		log.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	registry := session.NewRegistry(session.Config{
		Storage:       store,
		Addresses:     client.NewAddressClient(client.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.AddressTimeout}, log),
		Orders:        client.NewOrderClient(client.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.OrderTimeout}, log),
		Publisher:     events,
		SubmitTimeout: cfg.OrderTimeout,
		IdleTTL:       cfg.SessionIdleTTL,
		Logger:        log,
	})
	evictCtx, stopEvict := context.WithCancel(context.Background())
	defer stopEvict()
	go registry.Run(evictCtx, time.Minute)

	srv := newServer(cfg, h.NewRouter(h.RouterConfig{
		Registry:       registry,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
	}))

	go func() {
		log.Info("storefront starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exited")
}

// newServer sets the write deadline from config so a checkout that runs to
// its full collaborator budget can still deliver its response.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", zap.Error(err))
			}
		}
		return storage.NewRedisStorage(rdb, cfg.CartTTL, time.Hour), closeFn, nil

	case config.BackendMongo:
		db, err := storage.ConnectMongoDB(ctx, storage.MongoConfig{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDBName,
			MaxPoolSize: cfg.MongoMaxPoolSize,
			MinPoolSize: cfg.MongoMinPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		ms := storage.NewMongoStorage(db)
		if err := ms.CreateIndexes(ctx); err != nil {
			log.Warn("mongo index creation failed", zap.Error(err))
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Client().Disconnect(disconnectCtx); err != nil {
				log.Warn("mongo disconnect failed", zap.Error(err))
			}
		}
		return ms, closeFn, nil

	default:
		return storage.NewMemoryStorage(), func() {}, nil
	}
}
