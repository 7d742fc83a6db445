package config

import (
	"os"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	KAFKA_BROKERS  string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC    string `env:"KAFKA_TOPIC"`
	KAFKA_GROUP_ID string `env:"KAFKA_GROUP_ID"`

	CLIENT_URL string `env:"CLIENT_URL"`
	CURRENCY   string `env:"CURRENCY"`

	PAYPAL_BASE_URL  string `env:"PAYPAL_BASE_URL"`
	PAYPAL_CLIENT_ID string `env:"PAYPAL_CLIENT_ID"`
	PAYPAL_SECRET    string `env:"PAYPAL_SECRET"`

	PROVIDERX_BASE_URL     string `env:"PROVIDERX_BASE_URL"`
	PROVIDERX_ACCESS_TOKEN string `env:"PROVIDERX_ACCESS_TOKEN"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT: os.Getenv("HTTP_PORT"),
		DB_STRING: os.Getenv("DB_STRING"),

		KAFKA_BROKERS:  os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:    os.Getenv("KAFKA_TOPIC"),
		KAFKA_GROUP_ID: os.Getenv("KAFKA_GROUP_ID"),

		CLIENT_URL: os.Getenv("CLIENT_URL"),
		CURRENCY:   os.Getenv("CURRENCY"),

		PAYPAL_BASE_URL:  os.Getenv("PAYPAL_BASE_URL"),
		PAYPAL_CLIENT_ID: os.Getenv("PAYPAL_CLIENT_ID"),
		PAYPAL_SECRET:    os.Getenv("PAYPAL_SECRET"),

		PROVIDERX_BASE_URL:     os.Getenv("PROVIDERX_BASE_URL"),
		PROVIDERX_ACCESS_TOKEN: os.Getenv("PROVIDERX_ACCESS_TOKEN"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.KAFKA_BROKERS == "" {
		cfg.KAFKA_BROKERS = "localhost:9092"
	}
	if cfg.KAFKA_TOPIC == "" {
		cfg.KAFKA_TOPIC = "store.order-events"
	}
	if cfg.KAFKA_GROUP_ID == "" {
		cfg.KAFKA_GROUP_ID = "store-notifications"
	}
	if cfg.CLIENT_URL == "" {
		cfg.CLIENT_URL = "http://localhost:4200"
	}
	if cfg.CURRENCY == "" {
		cfg.CURRENCY = "USD"
	}
	if cfg.PAYPAL_BASE_URL == "" {
		cfg.PAYPAL_BASE_URL = "https://api-m.sandbox.paypal.com"
	}
	if cfg.PROVIDERX_BASE_URL == "" {
		cfg.PROVIDERX_BASE_URL = "https://api.providerx.test"
	}

	return cfg, nil
}
