package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// HTTPHost defaults to loopback: one process serves one buyer's device.
	HTTPHost        string
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Storage         StorageConfig
	Checkout        CheckoutConfig
	Location        LocationConfig
	Orders          OrdersConfig
}

type StorageConfig struct {
	Backend       string // STORAGE_BACKEND: memory, redis or sqlite
	Namespace     string
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
}

type CheckoutConfig struct {
	WhatsAppNumber string
	WhatsAppHost   string
	Storefront     string
	MoneyLocale    string
	Timezone       string
}

type LocationConfig struct {
	GeocoderURL       string // empty disables reverse geocoding; set GEOCODER_URL=none
	GeocoderUserAgent string
	GeocoderInterval  time.Duration // minimum spacing between upstream lookups
	DetectTimeout     time.Duration
	DiscardStale      bool
}

type OrdersConfig struct {
	Sink string // ORDER_SINK: none, mongo, postgres or kafka
	// HistoryStore is where a kafka sink's events are projected for reading
	// back: none, mongo or postgres.
	HistoryStore string
	WriteTimeout time.Duration
	MongoURI     string
	MongoDBName  string
	Postgres     DatabaseConfig
	KafkaBrokers []string
	KafkaTopic   string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"

	SinkNone     = "none"
	SinkMongo    = "mongo"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AutomaticEnv()

	// a missing .env is fine, env vars are enough
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var errs []string
	duration := func(key string, def time.Duration) time.Duration {
		raw := getEnvOrViper(v, key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}
	boolean := func(key string, def bool) bool {
		raw := getEnvOrViper(v, key, "")
		if raw == "" {
			return def
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid bool %q", key, raw))
			return def
		}
		return b
	}
	integer := func(key string, def int) int {
		raw := getEnvOrViper(v, key, "")
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
			return def
		}
		return n
	}

	cfg := &Config{
		HTTPHost:        getEnvOrViper(v, "HTTP_HOST", "127.0.0.1"),
		HTTPPort:        getEnvOrViper(v, "HTTP_PORT", "8080"),
		RequestTimeout:  duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		Storage: StorageConfig{
			Backend:       strings.ToLower(getEnvOrViper(v, "STORAGE_BACKEND", BackendMemory)),
			Namespace:     getEnvOrViper(v, "STORAGE_NAMESPACE", "bharatmart"),
			RedisAddr:     getEnvOrViper(v, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrViper(v, "REDIS_PASSWORD", ""),
			SQLitePath:    getEnvOrViper(v, "SQLITE_PATH", "bharatmart.db"),
		},
		Checkout: CheckoutConfig{
			WhatsAppNumber: getEnvOrViper(v, "CHECKOUT_WHATSAPP_NUMBER", "9983944688"),
			WhatsAppHost:   getEnvOrViper(v, "WHATSAPP_HOST", "wa.me"),
			Storefront:     getEnvOrViper(v, "STOREFRONT_NAME", "BharatMart"),
			MoneyLocale:    getEnvOrViper(v, "MONEY_LOCALE", "en-IN"),
			Timezone:       getEnvOrViper(v, "CHECKOUT_TIMEZONE", "Asia/Kolkata"),
		},
		Location: LocationConfig{
			GeocoderURL:       strings.TrimSpace(getEnvOrViper(v, "GEOCODER_URL", "https://nominatim.openstreetmap.org")),
			GeocoderUserAgent: getEnvOrViper(v, "GEOCODER_USER_AGENT", "bharatmart-inquiry-service/1.0"),
			GeocoderInterval:  duration("GEOCODER_MIN_INTERVAL", time.Second),
			DetectTimeout:     duration("GEOLOCATION_TIMEOUT", 10*time.Second),
			DiscardStale:      boolean("LOCATION_DISCARD_STALE", false),
		},
		Orders: OrdersConfig{
			Sink:         strings.ToLower(getEnvOrViper(v, "ORDER_SINK", SinkNone)),
			HistoryStore: strings.ToLower(getEnvOrViper(v, "ORDER_HISTORY_STORE", SinkNone)),
			WriteTimeout: duration("ORDER_WRITE_TIMEOUT", 5*time.Second),
			MongoURI:     getEnvOrViper(v, "MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:  getEnvOrViper(v, "MONGO_DB_NAME", "bharatmart"),
			Postgres: DatabaseConfig{
				Host:     getEnvOrViper(v, "DB_HOST", "localhost"),
				Port:     integer("DB_PORT", 5432),
				User:     getEnvOrViper(v, "DB_USER", "postgres"),
				Password: getEnvOrViper(v, "DB_PASSWORD", "postgres"),
				DBName:   getEnvOrViper(v, "DB_NAME", "bharatmart"),
			},
			KafkaBrokers: splitList(getEnvOrViper(v, "KAFKA_BROKERS", "localhost:9092")),
			KafkaTopic:   getEnvOrViper(v, "KAFKA_ORDERS_TOPIC", "orders-placed"),
		},
	}

	if strings.EqualFold(cfg.Location.GeocoderURL, "none") {
		cfg.Location.GeocoderURL = ""
	}

	switch cfg.Storage.Backend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_BACKEND: unknown backend %q", cfg.Storage.Backend))
	}
	switch cfg.Orders.Sink {
	case SinkNone, SinkMongo, SinkPostgres, SinkKafka:
	default:
		errs = append(errs, fmt.Sprintf("ORDER_SINK: unknown sink %q", cfg.Orders.Sink))
	}
	switch cfg.Orders.HistoryStore {
	case SinkNone, SinkMongo, SinkPostgres:
	default:
		errs = append(errs, fmt.Sprintf("ORDER_HISTORY_STORE: unknown store %q", cfg.Orders.HistoryStore))
	}
	if cfg.Orders.Sink == SinkKafka && len(cfg.Orders.KafkaBrokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required for the kafka order sink")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrViper(v *viper.Viper, key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
