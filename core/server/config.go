package server

import "time"

// Config holds diagnostics server settings with environment variable support.
type Config struct {
	Addr            string        `env:"METRICS_ADDR" yaml:"addr"`
	ShutdownTimeout time.Duration `env:"METRICS_SHUTDOWN_TIMEOUT" envDefault:"5s" yaml:"shutdown_timeout"`
}

// NewFromConfig creates a Server from configuration.
// Additional options can override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}
	configOpts := []Option{WithShutdownTimeout(cfg.ShutdownTimeout)}
	return New(cfg.Addr, append(configOpts, opts...)...), nil
}
