package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/trixelnet/contributor"
	"github.com/trixelnet/contributor/pkg/mqtt"
	"github.com/trixelnet/contributor/pkg/prometheus"
	"github.com/trixelnet/contributor/pkg/storage"
	"github.com/trixelnet/contributor/pkg/tsc"
	"github.com/trixelnet/contributor/privacy"
	"github.com/trixelnet/contributor/registration"
	"github.com/trixelnet/contributor/station"
	"github.com/trixelnet/contributor/station/api"
	"github.com/trixelnet/contributor/station/middleware"
)

const (
	svcName         = "station"
	pathEnv         = ".env"
	shutdownTimeout = 5 * time.Second
)

type envConfig struct {
	LogLevel        string        `env:"STATION_LOG_LEVEL"        envDefault:"info"`
	InstanceID      string        `env:"STATION_INSTANCE_ID"`
	ConfigPath      string        `env:"STATION_CONFIG_PATH"      envDefault:"config.toml"`
	HTTPHost        string        `env:"STATION_HTTP_HOST"        envDefault:""`
	HTTPPort        string        `env:"STATION_HTTP_PORT"        envDefault:"7080"`
	MQTTTimeout     time.Duration `env:"STATION_MQTT_TIMEOUT"     envDefault:"30s"`
	ServiceTimeout  time.Duration `env:"STATION_SERVICE_TIMEOUT"  envDefault:"30s"`
	TLSVerification bool          `env:"STATION_TLS_VERIFICATION" envDefault:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	logger := configureLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Starting contribution station", slog.String("instance_id", cfg.InstanceID))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	stationCfg, err := contributor.LoadConfig(cfg.ConfigPath)
	if err != nil {
		logger.Error("Failed to load station configuration",
			slog.String("path", cfg.ConfigPath), slog.Any("error", err))

		return fmt.Errorf("failed to load station configuration: %w", err)
	}

	pubsub, err := mqtt.NewPubSub(
		stationCfg.MQTT.BrokerURL,
		stationCfg.MQTT.QoS,
		cfg.InstanceID,
		stationCfg.MQTT.Username,
		stationCfg.MQTT.Password,
		cfg.MQTTTimeout,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize mqtt client: %w", err)
	}
	defer func() {
		if err := pubsub.Disconnect(context.Background()); err != nil {
			logger.Warn("failed to disconnect MQTT client", slog.Any("error", err))
		}
	}()

	source := mqtt.NewStateSource(pubsub, storage.NewInMemoryReadings(), stationCfg.MQTT.TopicPrefix, logger)
	if err := source.Track(ctx, stationCfg.Entities()); err != nil {
		return fmt.Errorf("failed to track sensor entities: %w", err)
	}

	controller, err := privacy.NewController(
		stationCfg.Station.StartDepth,
		stationCfg.Station.MaxTrixelDepth,
		stationCfg.Station.KRequirement,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize depth controller: %w", err)
	}

	client := tsc.NewClient(tsc.Config{
		LookupHost:      stationCfg.Station.TLSHost,
		LookupHTTPS:     stationCfg.Station.TLSUseHTTPS,
		TMSHTTPS:        stationCfg.Station.TMSUseHTTPS,
		Timeout:         cfg.ServiceTimeout,
		TLSVerification: cfg.TLSVerification,
	})

	registry := registration.NewManager(
		client,
		storage.NewFileIdentity(stationCfg.Station.IdentityPath),
		stationCfg.Station.Name,
		stationCfg.Station.KRequirement,
		stationCfg.Types(),
		logger,
	)

	svc := station.NewService(
		cfg.InstanceID,
		station.Home{
			Latitude:  stationCfg.Home.Latitude,
			Longitude: stationCfg.Home.Longitude,
		},
		stationCfg.Selections(),
		source,
		controller,
		registry,
		logger,
	)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(noop.NewTracerProvider().Tracer(svcName), svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	scheduler := station.NewScheduler(
		svc,
		time.Duration(stationCfg.Station.PublishIntervalSeconds)*time.Second,
		logger,
	)

	hs := &http.Server{
		Addr:    cfg.HTTPHost + ":" + cfg.HTTPPort,
		Handler: api.MakeHandler(svc, cfg.InstanceID),
	}

	g.Go(func() error {
		return scheduler.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("Diagnostic API listening", slog.String("addr", hs.Addr))
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return hs.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))

		return err
	}

	return nil
}

func configureLogger(level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("Invalid log level: %s. Defaulting to info.\n", level)
		logLevel = slog.LevelInfo
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(logHandler)
}
