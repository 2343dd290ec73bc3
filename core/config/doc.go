// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/msgbus/core/config"
//
//	type BusConfig struct {
//		Endpoint string   `env:"BUS_ENDPOINT" envDefault:"tcp://localhost:5555"`
//		Topics   []string `env:"BUS_TOPICS" envSeparator:","`
//		SenderID string   `env:"BUS_SENDER_ID,required"`
//	}
//
//	func main() {
//		var bus BusConfig
//
//		// Load with error handling
//		if err := config.Load(&bus); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&bus)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 BusConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 BusConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently:
//
//	type ServerConfig struct {
//		Port int `env:"PORT" envDefault:"8080"`
//	}
//
//	type MetricsConfig struct {
//		Addr string `env:"METRICS_ADDR" envDefault:":9090"`
//	}
//
//	// Each type has its own cache entry
//	config.MustLoad(&ServerConfig{})
//	config.MustLoad(&MetricsConfig{})
//
// # YAML Files
//
// LoadFile reads a YAML file on top of the envDefault values and then lets
// any set environment variable override the file. It does not cache:
//
//	var bus BusConfig
//	if err := config.LoadFile("msgbus.yaml", &bus); err != nil {
//		log.Fatal(err)
//	}
package config
