package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/config"
	"github.com/oksasatya/vowline/internal/application"
	"github.com/oksasatya/vowline/internal/container"
	pginfra "github.com/oksasatya/vowline/internal/infrastructure/postgres"
	"github.com/oksasatya/vowline/pkg/helpers"
)

// check_worker consumes SuiteRunJob messages, runs the whole suite for the
// caller and queues an alert email when any check fails.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-check-worker", cfg.Env)
	helpers.SetLevel(logger, cfg.LogLevel)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQSuiteQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	db, err := pginfra.OpenDB(ctx, cfg.PostgresDSN(), int(cfg.DBMaxConns), cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to open postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetSQLDB(db)
	container.SetRedis(rdb)

	if gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath); err != nil {
		logger.WithError(err).Warn("GCS unavailable; upload_security check will fail")
	} else {
		defer func() { _ = gcsClient.Close() }()
		container.SetGCS(gcsClient)
	}
	if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err != nil {
		logger.WithError(err).Warn("Elasticsearch unavailable; runs will not be indexed")
	} else {
		container.SetES(es)
	}

	// alerts go out through the email worker's queue
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.Fatalf("amqp publisher: %v", err)
	}
	defer pub.Close()

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQSuiteQueue, 1)
	if err != nil {
		logger.Fatalf("amqp consumer: %v", err)
	}
	defer consumer.Close()

	suite := container.NewSecuritySuite()
	logger.Infof("check worker listening on queue=%s", cfg.RabbitMQSuiteQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down...")
			return
		case msg, ok := <-consumer.Msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handle(ctx, cfg, suite, pub, logger, msg)
		}
	}
}

func handle(ctx context.Context, cfg *config.Config, suite *application.SecuritySuite, pub *helpers.RabbitPublisher, logger *logrus.Logger, msg amqp.Delivery) {
	switch application.HandleSuiteJob(ctx, cfg, suite, pub, logger, msg.Body) {
	case application.JobAck:
		_ = msg.Ack(false)
	case application.JobRequeue:
		_ = msg.Nack(false, true)
	default:
		_ = msg.Nack(false, false)
	}
}
