package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNilConfig is returned when a nil pointer is passed to Load or LoadFile.
var ErrNilConfig = errors.New("config: nil config pointer")

// overlayTag is a tag no field carries, so the overlay pass in LoadFile
// applies set variables only and never defaults.
const overlayTag = "envOverlayDefault"

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (T value)
	loadMu     sync.Mutex
)

// loadDotEnv reads .env from the working directory once. A missing file is
// not an error; variables already set in the process win.
func loadDotEnv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// Load fills cfg from the environment. The first successful call for a type
// is cached and later calls for the same type copy the cached value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}
	typ := reflect.TypeFor[T]()
	if v, ok := cache.Load(typ); ok {
		*cfg = v.(T)
		return nil
	}

	loadMu.Lock()
	defer loadMu.Unlock()
	if v, ok := cache.Load(typ); ok {
		*cfg = v.(T)
		return nil
	}

	loadDotEnv()
	var fresh T
	if err := env.Parse(&fresh); err != nil {
		return fmt.Errorf("config: parse %s: %w", typ, err)
	}
	cache.Store(typ, fresh)
	*cfg = fresh
	return nil
}

// MustLoad is like Load but panics on error. Useful at startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// LoadFile fills cfg from a YAML file and the environment, in increasing
// precedence: envDefault tags, the file, set environment variables. An empty
// path skips the file. Results are not cached.
func LoadFile[T any](path string, cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}
	loadDotEnv()

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{DefaultValueTagName: overlayTag}); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	return nil
}
