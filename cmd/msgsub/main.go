// Command msgsub subscribes to the bus and logs every decoded envelope.
//
//	msgsub -config msgbus.yaml -metrics-addr :9092
//
// Bus settings come from the YAML file's "bus" section and MSGBUS_*
// environment variables; see pubsub.Config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithOutput(os.Stderr),
		logger.WithAttr(slog.String("service", "msgsub")),
	}
	if cfg.LogJSON {
		opts = append(opts, logger.WithJSONFormatter())
	}
	log := logger.New(opts...)

	reg := prometheus.NewRegistry()
	collector := metrics.MustNew(reg)

	sub, err := pubsub.NewAsyncSubscriber(cfg.Bus,
		pubsub.WithLogger(log),
		pubsub.WithMetrics(collector),
	)
	if err != nil {
		log.Error("Failed to create subscriber", logger.Component("subscriber"), logger.Error(err))
		os.Exit(1)
	}

	eg, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		srv, err := server.NewFromConfig(cfg.Metrics,
			server.WithGatherer(reg),
			server.WithLogger(log),
			server.WithHealthCheck(func() error {
				if !sub.Connected() {
					return fmt.Errorf("subscriber not connected to %s", cfg.Bus.Endpoint)
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
		return sub.Use(ctx, func(ctx context.Context, sub *pubsub.AsyncSubscriber) error {
			for msg := range sub.Messages(ctx) {
				log.Info("Message received", envelopeAttrs(msg)...)
			}
			return nil
		})
	})

	if err := eg.Wait(); err != nil {
		log.Error("Subscriber stopped", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Subscriber stopped")
}

func envelopeAttrs(msg message.Message) []any {
	attrs := []any{logger.Kind(msg.Kind().String()), logger.SenderID(msg.Sender())}
	switch m := msg.(type) {
	case *message.SensorMessage:
		attrs = append(attrs, logger.SequenceNo(m.SequenceNo), logger.DataType(m.DataType.String()),
			slog.String("timestamp", m.Timestamp.String()))
		if code, text, err := m.Status(); err == nil {
			attrs = append(attrs, slog.Int("status_code", code), slog.String("status", text))
		}
	case *message.DisplayMessage:
		attrs = append(attrs, slog.Bool("override", m.IsOverrideMode),
			slog.String("motor_mode", m.MoterMode.String()), logger.Count("slots", len(m.SensorDisplayDict)))
	case *message.MotorMessage:
		attrs = append(attrs, slog.Bool("override", m.IsOverrideMode),
			slog.String("ordered_mode", m.OrderedMode.String()))
	}
	return attrs
}
