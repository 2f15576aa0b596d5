package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
)

type Config struct {
	Env         string      `yaml:"env" env:"ENV" env-default:"local"`
	Log         Log         `yaml:"log"`
	HTTP        HTTP        `yaml:"http"`
	StateStore  StateStore  `yaml:"state_store"`
	PubSub      PubSub      `yaml:"pubsub"`
	Postgres    PG          `yaml:"postgres"`
	Redis       Redis       `yaml:"redis"`
	Services    Services    `yaml:"services"`
	Consistency Consistency `yaml:"consistency"`
	Notifier    Notifier    `yaml:"notifier"`
	Limiter     Limiter     `yaml:"limiter"`
	Tracing     Tracing     `yaml:"tracing"`
	Metrics     Metrics     `yaml:"metrics"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
}

type StateStore struct {
	Name          string `yaml:"name" env:"STATE_STORE_NAME" env-default:"statestore"`
	Backend       string `yaml:"backend" env:"STATE_STORE_BACKEND" env-default:"redis"`
	RedisAddr     string `yaml:"redis_addr" env:"STATE_STORE_REDIS_ADDR" env-default:"localhost:6379"`
	PostgresURL   string `yaml:"postgres_url" env:"STATE_STORE_POSTGRES_URL"`
	MongoURI      string `yaml:"mongo_uri" env:"STATE_STORE_MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase string `yaml:"mongo_database" env:"STATE_STORE_MONGO_DATABASE" env-default:"shop_db"`
}

type PubSub struct {
	Backend       string   `yaml:"backend" env:"PUBSUB_BACKEND" env-default:"kafka"`
	Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	GroupID       string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
	MaxDeliveries int      `yaml:"max_deliveries" env:"PUBSUB_MAX_DELIVERIES" env-default:"3"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

type Services struct {
	ProductsURL string `yaml:"products_url" env:"PRODUCTS_URL" env-default:"http://localhost:3002"`
}

type Consistency struct {
	Mode             string `yaml:"mode" env:"CONSISTENCY_MODE" env-default:"last-write-wins"`
	MaxAttempts      int    `yaml:"max_attempts" env:"CONSISTENCY_MAX_ATTEMPTS" env-default:"5"`
	IdempotentOrders bool   `yaml:"idempotent_orders" env:"IDEMPOTENT_ORDERS" env-default:"false"`
}

type Notifier struct {
	Workers  int `yaml:"workers" env:"NOTIFIER_WORKERS" env-default:"4"`
	Capacity int `yaml:"capacity" env:"NOTIFIER_CAPACITY" env-default:"256"`
}

type Limiter struct {
	Max        int           `yaml:"max" env:"LIMITER_MAX" env-default:"100"`
	Expiration time.Duration `yaml:"expiration" env:"LIMITER_EXPIRATION" env-default:"1s"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

func MustLoad(fallbackPath string) *Config {
	cfg, err := Load(utils.ParseWithFallback("CONFIG_PATH", fallbackPath))
	if err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return cfg
}

// Load reads the yaml file at path with env overrides, or env alone when the file does not exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("config file %s does not exist, reading environment only", path)

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
