package main

import (
	"context"
	"log"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
	"github.com/imrishuroy/go-storefront-checkout/internal/config"
	"github.com/imrishuroy/go-storefront-checkout/internal/logging"
	"github.com/imrishuroy/go-storefront-checkout/internal/metrics"
)

func main() {
	cfg, err := config.Load(envOr("CONFIG_DIR", "configs"), os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(logging.Options{Env: cfg.App.Env, Level: cfg.App.LogLevel, FilePath: cfg.App.LogFile})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", "storefront-worker"))

	if cfg.Sessions.Table == "" {
		logger.Fatal("sessions.table is required for the worker")
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	cw := metrics.NewCloudWatch(clients.CloudWatch, cfg.Metrics.Namespace, cfg.Metrics.CloudWatchEnabled)
	p := NewProcessor(clients, cfg.Sessions.Table, cw, logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"order_id":"local-order-1","type":"redirected","amount":5000}`
		}
		event := lambdaevents.SQSEvent{
			Records: []lambdaevents.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(p.Handle)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
