// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	Timezone                string `yaml:"timezone" env-default:"Asia/Shanghai"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	WeChat                  WeChat       `yaml:"wechat"`
	WeChatPay               WeChatPay    `yaml:"wechat_pay"`
	Kouzi                   Kouzi        `yaml:"kouzi"`
	OSS                     OSS          `yaml:"oss"`
	RabbitMQ                RabbitMQ     `yaml:"rabbitmq"`
	RateLimit               RateLimit    `yaml:"rate_limit"`
	Tiers                   []TierConfig `yaml:"tiers"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"30s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
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
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"168h"`
}

// WeChat — настройки входа через WeChat.
type WeChat struct {
	AppID     string        `yaml:"app_id" env:"WECHAT_APP_ID"`
	AppSecret string        `yaml:"app_secret" env:"WECHAT_APP_SECRET"`
	BaseURL   string        `yaml:"base_url" env-default:"https://api.weixin.qq.com"`
	Timeout   time.Duration `yaml:"timeout" env-default:"5s"`
}

// WeChatPay — настройки платёжного шлюза WeChat Pay v3.
type WeChatPay struct {
	AppID               string        `yaml:"app_id" env:"WECHAT_PAY_APP_ID"`
	MchID               string        `yaml:"mch_id" env:"WECHAT_PAY_MCH_ID"`
	SerialNo            string        `yaml:"serial_no" env:"WECHAT_PAY_SERIAL_NO"`
	PrivateKeyPath      string        `yaml:"private_key_path" env:"WECHAT_PAY_PRIVATE_KEY_PATH"`
	PlatformPublicPath  string        `yaml:"platform_public_key_path" env:"WECHAT_PAY_PLATFORM_KEY_PATH"`
	PlatformPublicKeyID string        `yaml:"platform_public_key_id" env:"WECHAT_PAY_PUBLIC_KEY_ID"`
	APIv3Key            string        `yaml:"api_v3_key" env:"WECHAT_PAY_API_V3_KEY"`
	NotifyURL           string        `yaml:"notify_url"`
	BaseURL             string        `yaml:"base_url"`
	Timeout             time.Duration `yaml:"timeout" env-default:"10s"`
}

// Kouzi — настройки API генерации контента.
type Kouzi struct {
	BaseURL   string        `yaml:"base_url" env:"KOUZI_API_URL"`
	APIKey    string        `yaml:"api_key" env:"KOUZI_API_KEY"`
	VoiceType int           `yaml:"voice_type" env-default:"1"`
	Timeout   time.Duration `yaml:"timeout" env-default:"60s"`
}

// OSS — настройки объектного хранилища для аудио.
type OSS struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key" env:"OSS_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"OSS_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env-default:"hanzi-audio"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// RabbitMQ — подключение к брокеру. Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// RateLimit — ограничение частоты генерации упражнений на пользователя.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"0.5"`
	Burst int     `yaml:"burst" env-default:"3"`
}

// TierConfig — позиция каталога членства в конфиге.
type TierConfig struct {
	MemberType int    `yaml:"member_type"`
	Days       int    `yaml:"days"`
	Amount     string `yaml:"amount"`
	Name       string `yaml:"name"`
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
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

// Location возвращает часовой пояс, в котором считаются границы суток и месяца.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config.Location: %w", err)
	}
	return loc, nil
}

// Catalog собирает каталог членства. Без секции tiers используется каталог по умолчанию.
func (c *Config) Catalog() (models.Catalog, error) {
	const op = "config.Catalog"
	if len(c.Tiers) == 0 {
		return models.DefaultCatalog(), nil
	}
	catalog := make(models.Catalog, len(c.Tiers))
	for _, t := range c.Tiers {
		if t.MemberType <= 0 || t.Days <= 0 {
			return nil, fmt.Errorf("%s: tier %d: member_type and days must be positive", op, t.MemberType)
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("%s: tier %d: %w", op, t.MemberType, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%s: tier %d: amount must be positive", op, t.MemberType)
		}
		if _, dup := catalog[t.MemberType]; dup {
			return nil, fmt.Errorf("%s: duplicate tier %d", op, t.MemberType)
		}
		catalog[t.MemberType] = models.Tier{
			MemberType: t.MemberType,
			Days:       t.Days,
			Amount:     amount,
			Name:       t.Name,
		}
	}
	return catalog, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Timezone: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"Tiers: %d\n",
		c.Env,
		c.Timezone,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		len(c.Tiers),
	)
}
