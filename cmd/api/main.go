package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/auth"
	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/checkout"
	"github.com/imrishuroy/go-storefront-checkout/internal/config"
	sessionevents "github.com/imrishuroy/go-storefront-checkout/internal/events"
	"github.com/imrishuroy/go-storefront-checkout/internal/handlers"
	"github.com/imrishuroy/go-storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/go-storefront-checkout/internal/logging"
	"github.com/imrishuroy/go-storefront-checkout/internal/metrics"
	"github.com/imrishuroy/go-storefront-checkout/internal/payment"
	"github.com/imrishuroy/go-storefront-checkout/internal/reconcile"
	"github.com/imrishuroy/go-storefront-checkout/internal/storage"
	"github.com/imrishuroy/go-storefront-checkout/internal/validation"
)

func setupRouter(cfg config.Config, logger *zap.Logger) (*gin.Engine, error) {
	ctx := context.Background()

	var clients *aws.AWSClients
	if cfg.NeedsAWS() {
		c, err := aws.NewAWSClients(ctx)
		if err != nil {
			return nil, err
		}
		clients = c
	}

	var rdb *redis.Client
	if cfg.Storage.Driver == config.DriverRedis || cfg.Idempotency.Driver == config.DriverRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	var store storage.Backend
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		store = storage.NewRedis(rdb, cfg.Storage.TTL)
	case config.DriverDynamoDB:
		store = storage.NewDynamo(clients.DynamoDB, cfg.Storage.Table)
	default:
		store = storage.NewMemory()
	}

	var guard idempotency.Guard
	switch cfg.Idempotency.Driver {
	case config.DriverRedis:
		guard = idempotency.NewRedisStore(rdb, cfg.Idempotency.TTL)
	case config.DriverDynamoDB:
		guard = idempotency.NewStore(clients.DynamoDB, cfg.Idempotency.Table, cfg.Idempotency.TTL)
	default:
		guard = idempotency.NewMemoryStore(cfg.Idempotency.TTL)
	}

	var pub sessionevents.Publisher = sessionevents.Nop{}
	if cfg.Events.QueueURL != "" && clients != nil {
		pub = sessionevents.NewSQSPublisher(clients.SQS, cfg.Events.QueueURL)
	}

	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	m := metrics.NewServer()
	v := validation.New()

	payments := payment.NewAdapter(api, pub, logger)
	rec := reconcile.New(api, reconcile.Options{
		Guard:         guard,
		Events:        pub,
		Log:           logger,
		Landings:      m.Landings,
		OrdersPath:    cfg.Checkout.OrdersPath,
		OrderPath:     cfg.Checkout.OrderPath,
		RedirectDelay: cfg.Checkout.RedirectDelay,
	})

	return handlers.NewRouter(handlers.Deps{
		Log:        logger,
		Storage:    store,
		Products:   api,
		Auth:       auth.NewResolver(api, logger),
		Checkout:   checkout.New(payments, v, logger, m.Checkouts),
		Reconciler: rec,
		Metrics:    m,
		Validate:   v,
		Cookie: handlers.CookieConfig{
			Name:   cfg.Cookie.Name,
			Secure: cfg.Cookie.Secure,
			MaxAge: cfg.Cookie.MaxAge,
		},
		APIRoot: cfg.Backend.APIRoot,
	}), nil
}

func main() {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "configs"
	}
	cfg, err := config.Load(dir, os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{Env: cfg.App.Env, Level: cfg.App.LogLevel, FilePath: cfg.App.LogFile})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := setupRouter(cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire api", zap.Error(err))
	}

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		logger.Info("running local server", zap.String("addr", cfg.App.HTTPAddr))
		if err := r.Run(cfg.App.HTTPAddr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
