package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/fjod/go_kitchen/internal/identity"
	"github.com/fjod/go_kitchen/internal/ratelimit"
	"github.com/fjod/go_kitchen/internal/storage"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	HTTP     HTTPConfig                `yaml:"http"`
	Log      LogConfig                 `yaml:"log"`
	Auth     AuthConfig                `yaml:"auth"`
	Business BusinessConfig            `yaml:"business"`
	Catalog  CatalogConfig             `yaml:"catalog"`
	Cart     CartConfig                `yaml:"cart"`
	Inquiry  InquiryConfig             `yaml:"inquiry"`
	Postgres PostgresConfig            `yaml:"postgres"`
	Mongo    MongoConfig               `yaml:"mongo"`
	Redis    RedisConfig               `yaml:"redis"`
	Kafka    KafkaConfig               `yaml:"kafka"`
	RabbitMQ RabbitMQConfig            `yaml:"rabbitmq"`
	Images   storage.Config            `yaml:"images"`
	Limits   map[string]ratelimit.Rule `yaml:"limits"`
}

type HTTPConfig struct {
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type BusinessConfig struct {
	Timezone string `yaml:"timezone"`
}

type CatalogConfig struct {
	DBPath         string `yaml:"db_path"`
	MigrationsPath string `yaml:"migrations_path"`
}

type CartConfig struct {
	Store        string        `yaml:"store"`
	IdentityMode identity.Mode `yaml:"identity_mode"`
	SyncTimeout  time.Duration `yaml:"sync_timeout"`
	IdleTimeout  time.Duration `yaml:"session_idle_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

type InquiryConfig struct {
	Store string `yaml:"store"`
}

type PostgresConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	DBName                string `yaml:"dbname"`
	CartMigrationsPath    string `yaml:"cart_migrations_path"`
	InquiryMigrationsPath string `yaml:"inquiry_migrations_path"`
}

// URL is the postgres:// form of the connection settings.
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	CartTTL  time.Duration `yaml:"cart_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:               "8080",
			RequestTimeout:     30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			MaxRequestBodySize: 1 << 20,
		},
		Log:      LogConfig{Level: "info"},
		Business: BusinessConfig{Timezone: "Asia/Kolkata"},
		Catalog: CatalogConfig{
			DBPath:         "./kitchen.db",
			MigrationsPath: "./internal/catalog/migrations",
		},
		Cart: CartConfig{
			Store:        StoreMemory,
			IdentityMode: identity.ModeRegistry,
			SyncTimeout:  5 * time.Second,
			IdleTimeout:  2 * time.Hour,
			CacheTTL:     15 * time.Minute,
			Breaker:      BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second},
		},
		Inquiry: InquiryConfig{Store: StoreMemory},
		Postgres: PostgresConfig{
			Host:                  "localhost",
			Port:                  5432,
			User:                  "kitchen",
			DBName:                "kitchen",
			CartMigrationsPath:    "./internal/repository/migrations",
			InquiryMigrationsPath: "./internal/inquiry/migrations",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "kitchen",
			CartTTL:  90 * 24 * time.Hour,
		},
		Limits: map[string]ratelimit.Rule{
			ratelimit.ActionCartAdd: {Every: time.Second, Burst: 20},
			ratelimit.ActionInquiry: {Every: 10 * time.Minute, Burst: 3},
		},
	}
}

// Load reads the YAML file at path, then applies .env and environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Port = getEnv("HTTP_PORT", cfg.HTTP.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Business.Timezone = getEnv("BUSINESS_TIMEZONE", cfg.Business.Timezone)
	cfg.Catalog.DBPath = getEnv("CATALOG_DB_PATH", cfg.Catalog.DBPath)
	cfg.Cart.Store = getEnv("CART_STORE", cfg.Cart.Store)
	cfg.Inquiry.Store = getEnv("INQUIRY_STORE", cfg.Inquiry.Store)
	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("POSTGRES_DB", cfg.Postgres.DBName)
	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.Images.Bucket = getEnv("IMAGES_BUCKET", cfg.Images.Bucket)
	cfg.Images.AccessKey = getEnv("IMAGES_ACCESS_KEY", cfg.Images.AccessKey)
	cfg.Images.SecretKey = getEnv("IMAGES_SECRET_KEY", cfg.Images.SecretKey)

	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POSTGRES_PORT %q: %w", v, err)
		}
		cfg.Postgres.Port = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Cart.Store {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown cart.store %q", c.Cart.Store)
	}
	if _, err := identity.NewResolver(c.Cart.IdentityMode); err != nil {
		return fmt.Errorf("invalid cart.identity_mode: %w", err)
	}
	switch c.Inquiry.Store {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("unknown inquiry.store %q", c.Inquiry.Store)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid business.timezone: %w", err)
	}
	return nil
}

// Location is the time zone the kitchen's weekdays are counted in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Business.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
