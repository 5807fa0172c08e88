// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса.
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath     string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"./data/subscriptions.db"`
	RedisConnection `yaml:"redis_connection"`
	HTTPServer      `yaml:"http_server"`
	Telegram        `yaml:"telegram"`
	AccessToken     `yaml:"access_token"`
	Subscription    `yaml:"subscription"`
	RateLimit       `yaml:"rate_limit"`
	Backup          `yaml:"backup"`
	Rabbit          `yaml:"rabbitmq"`
	Payment         `yaml:"payment"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// Telegram структура с параметрами проверки подписи Telegram Login.
type Telegram struct {
	BotToken   string        `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	AuthMaxAge time.Duration `yaml:"auth_max_age" env-default:"24h"`
}

// AccessToken структура для выпуска токенов доступа.
type AccessToken struct {
	SecretKey  string        `yaml:"secret_key" env:"TOKEN_SECRET_KEY"`
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"168h"`
}

// Subscription параметры подписочной логики.
type Subscription struct {
	TrialDays int `yaml:"trial_days" env-default:"3"`
}

// RateLimit параметры ограничения частоты запросов.
type RateLimit struct {
	MaxRequests   int           `yaml:"max_requests" env-default:"30"`
	Window        time.Duration `yaml:"window" env-default:"1m"`
	PromoAttempts int           `yaml:"promo_attempts" env-default:"5"`
	PromoCooldown time.Duration `yaml:"promo_cooldown" env-default:"5m"`
}

// Backup параметры снапшотов базы данных.
type Backup struct {
	Dir            string        `yaml:"dir" env-default:"./backups"`
	RetentionDays  int           `yaml:"retention_days" env-default:"30"`
	Interval       time.Duration `yaml:"interval" env-default:"12h"`
	BootstrapEmpty bool          `yaml:"bootstrap_empty" env-default:"false"`
	AdminIDs       []int64       `yaml:"admin_ids"`
}

// Rabbit структура подключения к RabbitMQ; пустой URI отключает напоминания.
type Rabbit struct {
	URI        string        `yaml:"uri" env:"RABBITMQ_URI"`
	MaxRetries int           `yaml:"max_retries" env-default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Payment параметры вебхука платёжного провайдера.
type Payment struct {
	WebhookSecret string `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH.
func MustLoad() *Config {
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
