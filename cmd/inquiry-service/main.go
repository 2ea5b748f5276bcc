package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/bharatmart/inquiry-service/internal/cart"
	"github.com/bharatmart/inquiry-service/internal/checkout"
	"github.com/bharatmart/inquiry-service/internal/config"
	h "github.com/bharatmart/inquiry-service/internal/http"
	"github.com/bharatmart/inquiry-service/internal/location"
	"github.com/bharatmart/inquiry-service/internal/orders"
	"github.com/bharatmart/inquiry-service/internal/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	st, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer closeStorage()
	keys := storage.NewKeys(cfg.Storage.Namespace)

	writer, history, closeSink, err := openOrderSink(ctx, cfg.Orders)
	if err != nil {
		log.Fatalf("Failed to open %s order sink: %v", cfg.Orders.Sink, err)
	}
	defer closeSink()

	cartStore := cart.New(ctx, st, keys.Cart)
	unsubscribe := cartStore.Subscribe(func(snap cart.Snapshot) {
		log.Printf("cart changed: %d lines, %d units, total %s", len(snap.Items), snap.TotalQty, snap.TotalAmount)
	})
	defer unsubscribe()

	var geocoder location.ReverseGeocoder
	if cfg.Location.GeocoderURL != "" {
		client := &http.Client{
			Timeout:   cfg.Location.DetectTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		geocoder = location.NewNominatimGeocoder(cfg.Location.GeocoderURL, cfg.Location.GeocoderUserAgent, client,
			location.WithMinInterval(cfg.Location.GeocoderInterval))
	}
	locOpts := []location.Option{location.WithDetectTimeout(cfg.Location.DetectTimeout)}
	if cfg.Location.DiscardStale {
		locOpts = append(locOpts, location.WithDiscardStale())
	}
	locStore := location.NewStore(st, keys, geocoder, locOpts...)

	tz, err := time.LoadLocation(cfg.Checkout.Timezone)
	if err != nil {
		log.Fatalf("Failed to load timezone %q: %v", cfg.Checkout.Timezone, err)
	}
	compiler := checkout.NewCompiler(cfg.Checkout.Storefront, checkout.NewMoneyFormatter(cfg.Checkout.MoneyLocale), tz)
	checkoutService := checkout.NewService(cartStore, locStore, compiler, writer, checkout.Config{
		WhatsAppHost:      cfg.Checkout.WhatsAppHost,
		WhatsAppNumber:    cfg.Checkout.WhatsAppNumber,
		OrderWriteTimeout: cfg.Orders.WriteTimeout,
	})

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(cartStore, cfg.RequestTimeout),
		Location: h.NewLocationHandler(locStore, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(history, cfg.RequestTimeout),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort),
		Handler:      otelhttp.NewHandler(router, "inquiry-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Inquiry service starting on %s (storage=%s, orders=%s)", srv.Addr, cfg.Storage.Backend, cfg.Orders.Sink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	checkoutService.Wait()

	log.Println("server exited")
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Printf("Redis ping succeeded at %s", cfg.RedisAddr)
		return storage.NewRedisStore(client), closer("redis", client), nil
	case config.BackendSQLite:
		st, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Opened sqlite storage at %s", cfg.SQLitePath)
		return st, closer("sqlite", st), nil
	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}

// repository is an order store that can also be read back.
type repository interface {
	checkout.OrderWriter
	orders.History
}

func openRepository(ctx context.Context, kind string, cfg config.OrdersConfig) (repository, func(), error) {
	switch kind {
	case config.SinkMongo:
		db, err := orders.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := orders.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Printf("failed to create order indexes: %v", err)
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
		return repo, func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Printf("failed to disconnect mongo: %v", err)
			}
		}, nil
	case config.SinkPostgres:
		repo, err := orders.NewPostgresRepository(ctx, &orders.Credentials{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			repo.Close()
			return nil, nil, err
		}
		log.Printf("Connected to postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)
		return repo, closer("postgres", repo), nil
	default:
		return nil, nil, fmt.Errorf("unknown order repository %q", kind)
	}
}

// openOrderSink returns a nil writer for the "none" sink and a nil history
// when nothing can be read back.
func openOrderSink(ctx context.Context, cfg config.OrdersConfig) (checkout.OrderWriter, orders.History, func(), error) {
	switch cfg.Sink {
	case config.SinkMongo, config.SinkPostgres:
		repo, closeRepo, err := openRepository(ctx, cfg.Sink, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, repo, closeRepo, nil
	case config.SinkKafka:
		publisher := orders.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Printf("Publishing orders to kafka topic %s", cfg.KafkaTopic)
		if cfg.HistoryStore == config.SinkNone {
			return publisher, nil, closer("kafka", publisher), nil
		}

		repo, closeRepo, err := openRepository(ctx, cfg.HistoryStore, cfg)
		if err != nil {
			publisher.Close()
			return nil, nil, nil, err
		}
		projector := orders.NewProjector(repo, cfg.KafkaTopic, cfg.KafkaBrokers...)
		projectorCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			projector.Run(projectorCtx)
		}()
		log.Printf("Projecting order events into %s", cfg.HistoryStore)

		return publisher, repo, func() {
			cancel()
			<-done
			if err := projector.Close(); err != nil {
				log.Printf("failed to close order projector: %v", err)
			}
			closer("kafka", publisher)()
			closeRepo()
		}, nil
	default:
		return nil, nil, func() {}, nil
	}
}

func closer(name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Printf("failed to close %s: %v", name, err)
		}
	}
}
