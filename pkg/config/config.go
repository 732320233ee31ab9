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

var (
	ErrNilPointer    = errors.New("config: nil pointer")
	ErrParsingConfig = errors.New("config: failed to parse environment")
	ErrReadingFile   = errors.New("config: failed to read config file")
)

// Option configures a Load call.
type Option func(*options)

type options struct {
	yamlFile string
	envFiles []string
}

// WithYAMLFile seeds the environment from a flat YAML mapping. A missing
// file is ignored.
func WithYAMLFile(path string) Option {
	return func(o *options) {
		o.yamlFile = path
	}
}

// WithEnvFiles replaces the default ".env" file list. Missing files are ignored.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = paths
	}
}

var (
	mu    sync.Mutex
	cache = map[reflect.Type]any{}
)

// Load parses the environment into v. The first successful Load of a type
// is cached and reused.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := options{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	typ := reflect.TypeFor[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[typ]; ok {
		*v = cached.(T)
		return nil
	}

	if err := seedEnv(o); err != nil {
		return err
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[typ] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Reset drops cached values. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(cache)
}

// seedEnv sets variables from .env files first (godotenv does not override
// existing ones), then from the YAML file for anything still unset.
func seedEnv(o options) error {
	for _, path := range o.envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Join(ErrReadingFile, err)
		}
	}

	if o.yamlFile == "" {
		return nil
	}

	data, err := os.ReadFile(o.yamlFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Join(ErrReadingFile, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	for key, val := range values {
		if _, set := os.LookupEnv(key); set || val == nil {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
