package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_kitchen/internal/auth"
	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/cache"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/config"
	"github.com/fjod/go_kitchen/internal/events"
	h "github.com/fjod/go_kitchen/internal/http"
	"github.com/fjod/go_kitchen/internal/inquiry"
	"github.com/fjod/go_kitchen/internal/logger"
	"github.com/fjod/go_kitchen/internal/notify"
	"github.com/fjod/go_kitchen/internal/repository"
	"github.com/fjod/go_kitchen/internal/session"
	"github.com/fjod/go_kitchen/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New("storefront", cfg.Log.Level)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	engine := availability.NewEngine(loc, time.Now)

	// Catalog
	dishes, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	closers = append(closers, func() { _ = dishes.Close() })
	if err := dishes.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return err
	}
	log.Info("catalog ready", "path", cfg.Catalog.DBPath)

	// Cart store
	store, closeStore, err := openCartStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	if cfg.Cart.Breaker.Enabled && cfg.Cart.Store != config.StoreMemory {
		store = repository.NewBreakerStore(store, repository.BreakerSettings{
			MaxFailures: cfg.Cart.Breaker.MaxFailures,
			OpenTimeout: cfg.Cart.Breaker.OpenTimeout,
		}, log)
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("redis connection failed: %w", err)
		}
		cached := cache.NewCachedStore(store, cache.NewRedisCache(redisClient, cfg.Cart.CacheTTL), log)
		closers = append(closers, func() {
			cached.Flush()
			_ = redisClient.Close()
		})
		store = cached
		log.Info("redis cart cache enabled", "addr", cfg.Redis.Addr)
	}

	// Sessions
	syncer := session.NewSyncer(store, cfg.Cart.SyncTimeout, log)
	loader := session.NewLoader(store, dishes, engine, log)
	manager, err := session.NewManager(session.ManagerConfig{
		IdleTimeout:  cfg.Cart.IdleTimeout,
		IdentityMode: cfg.Cart.IdentityMode,
		Limits:       cfg.Limits,
	}, loader, syncer, engine, log)
	if err != nil {
		return err
	}
	closers = append(closers, manager.Close)

	// Inquiries
	inquiries, closeInquiries, err := openInquiryRepository(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, closeInquiries)

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := notify.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		publisher = rabbit
		closers = append(closers, func() { _ = rabbit.Close() })
		log.Info("inquiry notifications enabled")
	}

	// Auth events
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewAuthConsumer(manager, log, cfg.Kafka.Brokers...)
		done := make(chan struct{})
		go func() {
			defer close(done)
			consumer.Run(consumerCtx)
		}()
		closers = append(closers, func() {
			stopConsumer()
			<-done
			consumer.Close()
		})
		log.Info("auth event consumer started", "brokers", cfg.Kafka.Brokers)
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	router := h.NewRouter(h.RouterConfig{
		Sessions:    manager,
		Catalog:     dishes,
		Engine:      engine,
		Images:      storage.NewImageSigner(cfg.Images),
		Inquiries:   inquiry.NewService(inquiries, dishes, engine, publisher, log),
		Verifier:    verifier,
		Timeout:     cfg.HTTP.RequestTimeout,
		MaxBodySize: cfg.HTTP.MaxRequestBodySize,
		Log:         log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "port", cfg.HTTP.Port, "cart_store", cfg.Cart.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}

func openCartStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (repository.Store, func(), error) {
	switch cfg.Cart.Store {
	case config.StorePostgres:
		db, err := repository.ConnectPostgres(ctx, &repository.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := repository.RunMigrations(db, cfg.Postgres.CartMigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("connected to PostgreSQL cart store", "host", cfg.Postgres.Host)
		return repository.NewPostgresStore(db), func() { _ = db.Close() }, nil

	case config.StoreMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewMongoStore(db, cfg.Mongo.CartTTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		log.Info("connected to MongoDB cart store", "database", cfg.Mongo.Database)
		return store, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	default:
		log.Warn("using in-memory cart store, saved carts are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func openInquiryRepository(ctx context.Context, cfg *config.Config) (inquiry.Repository, func(), error) {
	if cfg.Inquiry.Store != config.StorePostgres {
		return inquiry.NewMemoryRepository(), func() {}, nil
	}

	connString := cfg.Postgres.URL()
	if err := inquiry.RunMigrations(connString, cfg.Postgres.InquiryMigrationsPath); err != nil {
		return nil, nil, err
	}
	pool, err := inquiry.Connect(ctx, connString)
	if err != nil {
		return nil, nil, err
	}
	return inquiry.NewPostgresRepository(pool), pool.Close, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
