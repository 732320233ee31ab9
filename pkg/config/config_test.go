package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pie/pkg/config"
)

type appConfig struct {
	Addr    string        `env:"PIE_TEST_ADDR" envDefault:":8080"`
	Name    string        `env:"PIE_TEST_NAME,required"`
	Timeout time.Duration `env:"PIE_TEST_TIMEOUT" envDefault:"8h"`
}

func TestLoad(t *testing.T) {
	// Not parallel: mutates the process environment and the type cache.

	t.Run("nil pointer", func(t *testing.T) {
		require.ErrorIs(t, config.Load[appConfig](nil), config.ErrNilPointer)
	})

	t.Run("missing required", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)

		var cfg appConfig
		err := config.Load(&cfg, config.WithEnvFiles())
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("defaults and env", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)
		t.Setenv("PIE_TEST_NAME", "demo")

		var cfg appConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvFiles()))
		require.Equal(t, ":8080", cfg.Addr)
		require.Equal(t, "demo", cfg.Name)
		require.Equal(t, 8*time.Hour, cfg.Timeout)
	})

	t.Run("yaml seeds unset variables only", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)
		t.Setenv("PIE_TEST_NAME", "from-env")
		// Registers cleanup for the variable the YAML file will set.
		t.Setenv("PIE_TEST_TIMEOUT", "")
		require.NoError(t, os.Unsetenv("PIE_TEST_TIMEOUT"))

		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("PIE_TEST_NAME: from-yaml\nPIE_TEST_TIMEOUT: 2h\n"), 0o600))

		var cfg appConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvFiles(), config.WithYAMLFile(path)))
		require.Equal(t, "from-env", cfg.Name)
		require.Equal(t, 2*time.Hour, cfg.Timeout)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Cleanup(config.Reset)
		t.Setenv("PIE_TEST_NAME", "first")

		var a appConfig
		require.NoError(t, config.Load(&a, config.WithEnvFiles()))

		t.Setenv("PIE_TEST_NAME", "second")
		var b appConfig
		require.NoError(t, config.Load(&b, config.WithEnvFiles()))
		require.Equal(t, "first", b.Name)
	})
}
