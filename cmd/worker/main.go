package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/fedasync"
	"github.com/absmach/fedasync/engine/dense"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/model/middleware"
	"github.com/absmach/fedasync/pkg/mqtt"
	"github.com/absmach/fedasync/pkg/prometheus"
	"github.com/absmach/fedasync/pkg/server"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/absmach/fedasync/pkg/tracing"
	"github.com/absmach/fedasync/worker"
	"github.com/absmach/fedasync/worker/api"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "worker"
	defHTTPPort   = "9010"
	envPrefixHTTP = "WORKER_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel           string        `env:"WORKER_LOG_LEVEL"           envDefault:"info"`
	InstanceID         string        `env:"WORKER_INSTANCE_ID"`
	Name               string        `env:"WORKER_NAME"`
	ConfigPath         string        `env:"WORKER_CONFIG_PATH"`
	TrainTimeout       time.Duration `env:"WORKER_TRAIN_TIMEOUT"       envDefault:"5m"`
	LivelinessInterval time.Duration `env:"WORKER_LIVELINESS_INTERVAL" envDefault:"10s"`
	OTELURL            url.URL       `env:"WORKER_OTEL_URL"`
	TraceRatio         float64       `env:"WORKER_TRACE_RATIO"         envDefault:"0"`
	MQTT               mqtt.Config
	Storage            storage.Config
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.Name == "" {
		cfg.Name = namegenerator.NewGenerator().Generate()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler).With(slog.String("worker_id", cfg.InstanceID))
	slog.SetDefault(logger)

	modelCfg := fedasync.DefaultConfig()
	if cfg.ConfigPath != "" {
		c, err := fedasync.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logger.Error("failed to load model configuration", slog.String("error", err.Error()))

			return
		}
		modelCfg = *c
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := tracing.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	repo, err := storage.NewDescriptorRepository(cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize storage", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	loader, err := modelCfg.Dataset.Loader()
	if err != nil {
		logger.Error("failed to load dataset", slog.String("error", err.Error()))

		return
	}

	m, err := worker.LoadModel(ctx, repo, dense.New(), loader, modelCfg.Model, model.WithTrainTimeout(cfg.TrainTimeout))
	if err != nil {
		logger.Error("failed to load model", slog.String("error", err.Error()))

		return
	}
	m = middleware.Logging(logger, m)
	m = middleware.Tracing(tracer, m)
	counter, latency := prometheus.MakeMetrics(svcName, "model")
	version := prometheus.MakeGauge(svcName, "model", "version", "Current model version.")
	m = middleware.Metrics(counter, latency, version, m)

	pubsub, err := mqtt.NewPubSub(cfg.MQTT, cfg.InstanceID, logger)
	if err != nil {
		logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := pubsub.Disconnect(context.Background()); err != nil {
			logger.Error("failed to disconnect mqtt pubsub", slog.String("error", err.Error()))
		}
	}()

	svc, err := worker.NewService(worker.Config{
		ID:                 cfg.InstanceID,
		Name:               cfg.Name,
		DomainID:           cfg.MQTT.DomainID,
		ChannelID:          cfg.MQTT.ChannelID,
		LivelinessInterval: cfg.LivelinessInterval,
		Retain:             cfg.Storage.Retain,
	}, m, repo, pubsub, logger)
	if err != nil {
		logger.Error("failed to create worker service", slog.String("error", err.Error()))

		return
	}

	if err := svc.Subscribe(ctx); err != nil {
		logger.Error("failed to subscribe to worker channel", slog.String("error", err.Error()))

		return
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := server.NewHTTPServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	logger.Info("worker started",
		slog.String("name", cfg.Name),
		slog.Int64("version", m.ModelVersion()),
		slog.String("storage", cfg.Storage.Type),
	)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
