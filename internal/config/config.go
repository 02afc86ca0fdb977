// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	Stripe                  `yaml:"stripe"`
	JWTToken                `yaml:"jwttoken"`
	Sweeper                 `yaml:"sweeper"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CatalogTTL   time.Duration `yaml:"catalog_ttl" env-default:"10m"`
}

// RabbitMQ структура для настройки очереди событий биллинга
type RabbitMQ struct {
	RabbitURL       string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange        string        `yaml:"exchange" env-default:"billing"`
	Queue           string        `yaml:"queue" env-default:"billing.events"`
	RoutingKey      string        `yaml:"routing_key" env-default:"events"`
	DeadLetterQueue string        `yaml:"dead_letter_queue" env-default:"billing.events.dead"`
	ConnectRetries  int           `yaml:"connect_retries" env-default:"10"`
	ConnectDelay    time.Duration `yaml:"connect_delay" env-default:"3s"`
	Concurrency     int           `yaml:"concurrency" env-default:"10"`
	RetryQueue      string        `yaml:"retry_queue" env-default:"billing.events.retry"`
	RetryDelay      time.Duration `yaml:"retry_delay" env-default:"30s"`
	RetryLimit      int           `yaml:"retry_limit" env-default:"8"`
	PublishTimeout  time.Duration `yaml:"publish_timeout" env-default:"5s"`
}

// Stripe структура для настройки платёжного провайдера
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	SiteAddress   string `yaml:"site_url" env:"SITE_URL"`
}

// JWTToken структура для проверки jwt-токена сессии
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Sweeper структура для настройки дозавершения зависших намерений
type Sweeper struct {
	SweepInterval time.Duration `yaml:"interval" env-default:"1m"`
	StaleAfter    time.Duration `yaml:"stale_after" env-default:"5m"`
	BatchSize     int           `yaml:"batch_size" env-default:"50"`
	MaxAttempts   int           `yaml:"max_attempts" env-default:"10"`
}

const defaultSiteURL = "http://localhost:3000/"

// SiteURL возвращает базовый адрес сайта для ссылок возврата из оформления:
// без схемы подставляется https, в конце всегда один слеш.
func (s Stripe) SiteURL() string {
	url := strings.TrimSpace(s.SiteAddress)
	if url == "" {
		return defaultSiteURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// MustLoad функция для загрузки конфига, путь к файлу берётся из CONFIG_PATH.
// Переменные из .env в рабочем каталоге подгружаются, если файл есть; уже заданные
// переменные окружения не перезаписываются.
func MustLoad() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot read .env: %s", err)
	}
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
