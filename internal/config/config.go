// Package config предоставляет структуры и функцию для парсинга и загрузки конфига бота.
package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string  `yaml:"env" env-default:"local"`
	StorageDriver           string  `yaml:"storage_driver" env-default:"postgres"` // postgres или memory
	StorageConnectionString string  `yaml:"storage_connection_string"`
	MigrationsPath          string  `yaml:"migrations_path" env-default:"./migrations"`
	Admins                  []int64 `yaml:"admins"`
	RedisConnection         `yaml:"redis_connection"`
	Session                 `yaml:"session"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	Telegram                `yaml:"telegram"`
	Access                  `yaml:"access"`
	Payments                `yaml:"payments"`
	Reminders               `yaml:"reminders"`
	Bot                     `yaml:"bot"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"10"`
	RateBurst   int           `yaml:"rate_burst" env-default:"20"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// Session выбирает хранилище сессий мастеров.
type Session struct {
	Backend        string        `yaml:"backend" env-default:"memory"` // memory или redis
	EntitlementTTL time.Duration `yaml:"entitlement_ttl" env-default:"1m"`
}

// RabbitMQ настройки очередей входящих событий и исходящих сообщений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	UpdatesQueue       string        `yaml:"updates_queue" env-default:"bot.updates"`
	OutboundExchange   string        `yaml:"outbound_exchange" env-default:"bot.outbound"`
	Prefetch           int           `yaml:"prefetch" env-default:"10"`
}

// Telegram настройки Bot API, нужные ядру: проверка подписки на канал.
type Telegram struct {
	BotToken   string        `yaml:"bot_token"`
	APIURL     string        `yaml:"api_url" env-default:"https://api.telegram.org"`
	ChannelID  string        `yaml:"channel_id"`
	ChannelURL string        `yaml:"channel_url"`
	Timeout    time.Duration `yaml:"timeout" env-default:"5s"`
}

// Access настройки пробного периода.
type Access struct {
	TrialDurationDays int `yaml:"trial_duration_days" env-default:"3"`
}

// Payments настройки выставления счетов.
type Payments struct {
	ProviderToken string `yaml:"provider_token"`
	Currency      string `yaml:"currency" env-default:"RUB"`
}

// Reminders настройки напоминаний об окончании доступа.
type Reminders struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval" env-default:"24h"`
	Window   time.Duration `yaml:"window" env-default:"24h"`
}

// Bot настройки обработки событий.
type Bot struct {
	Workers       int     `yaml:"workers" env-default:"8"`
	UserRateLimit float64 `yaml:"user_rate_limit" env-default:"2"` // событий в секунду на пользователя
	UserRateBurst int     `yaml:"user_rate_burst" env-default:"5"`
}

// MustLoad функция для загрузки конфига из файла, путь к которому задан в CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг по пути и проверяет обязательные поля.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "memory":
	case "postgres":
		if c.StorageConnectionString == "" {
			return fmt.Errorf("storage_connection_string is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.AddressRedis == "" {
			return fmt.Errorf("redis_connection.addressredis is required for redis session backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.TrialDurationDays <= 0 {
		return fmt.Errorf("access.trial_duration_days must be positive")
	}
	return nil
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admins, userID)
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageDriver: %s\n"+
			"Admins: %v\n"+
			"Session: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  UpdatesQueue: %s\n"+
			"  OutboundExchange: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"Telegram:\n"+
			"  ChannelID: %s\n"+
			"TrialDurationDays: %d\n"+
			"Currency: %s\n",
		c.Env,
		c.StorageDriver,
		c.Admins,
		c.Session.Backend,
		c.AddressRedis,
		c.DB,
		c.UpdatesQueue,
		c.OutboundExchange,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.ChannelID,
		c.TrialDurationDays,
		c.Currency,
	)
}
