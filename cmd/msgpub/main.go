// Command msgpub periodically publishes heartbeat or sensor envelopes.
//
//	msgpub -config msgbus.yaml -kind sensor -interval 500ms -metrics-addr :9091
//
// Bus settings come from the YAML file's "bus" section and MSGBUS_*
// environment variables; see pubsub.Config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/msgbus/core/config"
	"github.com/dmitrymomot/msgbus/core/logger"
	"github.com/dmitrymomot/msgbus/core/message"
	"github.com/dmitrymomot/msgbus/core/metrics"
	"github.com/dmitrymomot/msgbus/core/pubsub"
	"github.com/dmitrymomot/msgbus/core/server"
)

type appConfig struct {
	Bus      pubsub.Config `yaml:"bus"`
	Metrics  server.Config `yaml:"metrics"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info" yaml:"log_level"`
	LogJSON  bool          `env:"LOG_JSON" yaml:"log_json"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file; environment variables override it")
		interval    = flag.Duration("interval", time.Second, "time between messages")
		kind        = flag.String("kind", "heartbeat", "message to publish: heartbeat or sensor")
		metricsAddr = flag.String("metrics-addr", "", "serve /metrics and /healthz on this address")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.LoadFile(*configPath, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if cfg.Bus.SenderID == "" {
		cfg.Bus.SenderID = uuid.NewString()
	}

	log := newLogger(cfg)

	build, err := messageBuilder(*kind, cfg.Bus.SenderID)
	if err != nil {
		log.Error("Invalid flags", logger.Error(err))
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.MustNew(reg)

	pub, err := pubsub.NewAsyncPublisher(cfg.Bus,
		pubsub.WithLogger(log),
		pubsub.WithMetrics(collector),
	)
	if err != nil {
		log.Error("Failed to create publisher", logger.Component("publisher"), logger.Error(err))
		os.Exit(1)
	}

	eg, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv, err := server.NewFromConfig(cfg.Metrics,
			server.WithGatherer(reg),
			server.WithLogger(log),
			server.WithHealthCheck(func() error {
				if !pub.Connected() {
					return fmt.Errorf("publisher not connected to %s", cfg.Bus.Endpoint)
				}
				return nil
			}),
		)
		if err != nil {
			log.Error("Failed to create diagnostics server", logger.Component("server"), logger.Error(err))
			os.Exit(1)
		}
		eg.Go(srv.Run(ctx))
	}

	eg.Go(func() error {
		return pub.Use(ctx, func(ctx context.Context, pub *pubsub.AsyncPublisher) error {
			ticker := time.NewTicker(*interval)
			defer ticker.Stop()
			for {
				if err := pub.Send(ctx, build()); err != nil && ctx.Err() == nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	})

	if err := eg.Wait(); err != nil {
		log.Error("Publisher stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Publisher stopped")
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithOutput(os.Stderr),
		logger.WithAttr(slog.String("service", "msgpub"), logger.SenderID(cfg.Bus.SenderID)),
	}
	if cfg.LogJSON {
		opts = append(opts, logger.WithJSONFormatter())
	}
	return logger.New(opts...)
}

// messageBuilder returns a constructor for the envelope selected by -kind.
func messageBuilder(kind, senderID string) (func() message.Message, error) {
	switch kind {
	case "heartbeat":
		return func() message.Message {
			return message.NewSensorMessage(senderID, "msgpub", message.DataTypeHeartBeat,
				&message.HeartBeatPayload{Status: "running", StatusCode: 200})
		}, nil
	case "sensor":
		return func() message.Message {
			p := rand.Float64() * 100
			return message.NewSensorMessage(senderID, "msgpub", message.DataTypeSensor,
				&message.SensorPayload{
					IsThereHuman:          p >= 50,
					HumanExistPossibility: message.Possibility(p),
					SensorStatus:          "ok",
					SensorStatusCode:      0,
				})
		}, nil
	default:
		return nil, fmt.Errorf("unknown -kind %q, want heartbeat or sensor", kind)
	}
}
