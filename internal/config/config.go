package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ticketforge/ticketing-api/internal/infrastructure/chain"
	"github.com/ticketforge/ticketing-api/shared/env"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/messaging"
	"github.com/ticketforge/ticketing-api/shared/monitoring"
	"github.com/ticketforge/ticketing-api/shared/postgres"
	"github.com/ticketforge/ticketing-api/shared/redis"
)

// Config is the full runtime configuration, read from the environment
type Config struct {
	HTTPPort    int
	MetricsPort int
	Environment string

	Postgres postgres.PostgresConfig
	Redis    redis.RedisConfig
	RabbitMQ messaging.RabbitMQConfig
	Gateway  chain.GatewayConfig
	Sentry   monitoring.SentryConfig
	Logging  logging.Config

	ChainRPCURL       string
	SignerAddress     string
	AggregatorAddress string
	PlatformOwner     string
	IssueCost         *big.Int
}

// Load reads the configuration, applying development defaults
func Load() (*Config, error) {
	env.Load()

	environment := env.GetString("ENVIRONMENT", "development")

	issueCost, ok := new(big.Int).SetString(env.GetString("ISSUE_COST", "50000000000000000"), 10)
	if !ok {
		return nil, fmt.Errorf("ISSUE_COST is not a decimal integer")
	}

	cfg := &Config{
		HTTPPort:    env.GetInt("HTTP_PORT", 8080),
		MetricsPort: env.GetInt("METRICS_PORT", 9090),
		Environment: environment,

		Postgres: postgres.PostgresConfig{
			PostgresHost:     env.GetString("POSTGRES_HOST", "localhost"),
			PostgresPort:     env.GetInt("POSTGRES_PORT", 5432),
			PostgresUser:     env.GetString("POSTGRES_USER", "postgres"),
			PostgresPassword: env.GetString("POSTGRES_PASSWORD", "postgres"),
			PostgresDatabase: env.GetString("POSTGRES_DB", "ticketing"),
			PostgresSSLMode:  env.GetString("POSTGRES_SSLMODE", "disable"),
		},
		Redis: redis.RedisConfig{
			RedisHost:     env.GetString("REDIS_HOST", "localhost"),
			RedisPort:     env.GetInt("REDIS_PORT", 6379),
			RedisPassword: env.GetString("REDIS_PASSWORD", ""),
			RedisDB:       env.GetInt("REDIS_DB", 0),
		},
		RabbitMQ: messaging.RabbitMQConfig{
			RabbitMQHost:     env.GetString("RABBITMQ_HOST", "localhost"),
			RabbitMQPort:     env.GetInt("RABBITMQ_PORT", 5672),
			RabbitMQUser:     env.GetString("RABBITMQ_USER", "guest"),
			RabbitMQPassword: env.GetString("RABBITMQ_PASSWORD", "guest"),
			RabbitMQExchange: env.GetString("RABBITMQ_EXCHANGE", "ticketing"),
		},
		Gateway: chain.GatewayConfig{
			BaseURL: env.GetString("GATEWAY_URL", "http://localhost:8090"),
			APIKey:  env.GetString("GATEWAY_API_KEY", ""),
			Timeout: time.Duration(env.GetInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Sentry: monitoring.SentryConfig{
			DSN:         env.GetString("SENTRY_DSN", ""),
			Environment: environment,
			ServiceName: "ticketing-api",
		},
		Logging: logging.Config{
			Level:       logging.LogLevel(env.GetString("LOG_LEVEL", "info")),
			Service:     "ticketing-api",
			Environment: environment,
			PrettyLog:   environment == "development",
		},

		ChainRPCURL:       env.GetString("CHAIN_RPC_URL", "http://localhost:8545"),
		SignerAddress:     env.GetString("SIGNER_ADDRESS", ""),
		AggregatorAddress: env.GetString("AGGREGATOR_ADDRESS", ""),
		PlatformOwner:     env.GetString("PLATFORM_OWNER", ""),
		IssueCost:         issueCost,
	}

	if cfg.PlatformOwner == "" {
		return nil, fmt.Errorf("PLATFORM_OWNER is required")
	}
	if cfg.SignerAddress == "" {
		return nil, fmt.Errorf("SIGNER_ADDRESS is required")
	}

	return cfg, nil
}
