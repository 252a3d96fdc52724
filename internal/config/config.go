package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`

	NovaPoshtaAPIKey string `env:"NOVA_POSHTA_API_KEY,required"`
	NovaPoshtaAPIURL string `env:"NOVA_POSHTA_API_URL" envDefault:"https://api.novaposhta.ua/v2.0/json/"`

	CRMAPIURL string `env:"CRM_API_URL,required"`
	CRMAPIKey string `env:"CRM_API_KEY,required"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	RedisAddr      string        `env:"REDIS_ADDR,required"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"10m"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Admin    AdminConfig    `envPrefix:"ADMIN_"`

	OrderTimeout       time.Duration `env:"ORDER_TIMEOUT" envDefault:"5m"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CRMRequestTimeout  time.Duration `env:"CRM_REQUEST_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST,required"`
	Port            int           `env:"PORT,required"`
	User            string        `env:"USER,required"`
	Password        string        `env:"PASSWORD,required"`
	Name            string        `env:"NAME,required"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type AdminConfig struct {
	ListenAddr string  `env:"LISTEN_ADDR" envDefault:":8080"`
	Token      string  `env:"TOKEN,required"`
	ChatID     int64   `env:"CHAT_ID"`
	IDs        []int64 `env:"IDS" envSeparator:","`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
