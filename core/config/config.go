package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (value of the config type)
	loadMu     sync.Mutex
)

// Load populates cfg from the environment. The first successful load of a type
// is cached and copied into every later call for the same type.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("config: nil target")
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

	dotenvOnce.Do(func() {
		// Missing .env is the normal case outside local development.
		_ = godotenv.Load()
	})

	var out T
	if err := env.Parse(&out); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", typ, err)
	}

	cache.Store(typ, out)
	*cfg = out
	return nil
}

// MustLoad is like Load but panics on error.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse builds a T from environ only. Nothing is cached.
func Parse[T any](environ map[string]string) (T, error) {
	var out T
	if err := env.ParseWithOptions(&out, env.Options{Environment: environ}); err != nil {
		return out, fmt.Errorf("config: failed to parse %s: %w", reflect.TypeFor[T](), err)
	}
	return out, nil
}
