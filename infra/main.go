package infra

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tnqbao/gau-catalog-service/config"
	"github.com/tnqbao/gau-catalog-service/infra/produce"
	otellog "go.opentelemetry.io/otel/log"
)

type Infra struct {
	Redis     *RedisClient
	Postgres  *PostgresClient
	Logger    *LoggerClient
	RabbitMQ  *RabbitMQClient
	Produce   *produce.Produce
	Storage   ObjectStorage
	Telemetry *TelemetryClient
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	telemetry, err := InitTelemetry(ctx, cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: telemetry disabled: %v", err)
		telemetry = &TelemetryClient{}
	}

	var loggerProvider otellog.LoggerProvider
	if telemetry.LoggerProvider != nil {
		loggerProvider = telemetry.LoggerProvider
	}
	logger := InitLoggerClient(cfg.EnvConfig, loggerProvider)

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	storage, err := InitObjectStorage(ctx, cfg.EnvConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize object storage: %v", err))
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		panic(fmt.Sprintf("Failed to prepare media bucket: %v", err))
	}

	infraInstance = &Infra{
		Redis:     redis,
		Postgres:  postgres,
		Logger:    logger,
		RabbitMQ:  rabbitMQ,
		Produce:   produceService,
		Storage:   storage,
		Telemetry: telemetry,
	}

	return infraInstance
}

// Close releases connections in reverse order of creation.
func (i *Infra) Close(ctx context.Context) {
	if i.RabbitMQ != nil {
		_ = i.RabbitMQ.Close()
	}
	if i.Postgres != nil {
		_ = i.Postgres.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Client.Close()
	}
	if i.Telemetry != nil {
		_ = i.Telemetry.Shutdown(ctx)
	}
}
