// Package config fills configuration structs from the environment using
// `env` struct tags, optionally seeded from .env and YAML files.
//
// Precedence, lowest first: `envDefault` tags, the YAML file, .env files,
// the real process environment. Variables already present in the
// environment are never overwritten by files.
//
//	type Config struct {
//	    Addr    string        `env:"ADDR" envDefault:":8080"`
//	    Timeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"8h"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg, config.WithYAMLFile("config.yaml")); err != nil {
//	    return err
//	}
//
// The YAML file is a flat mapping of variable names to values:
//
//	ADDR: ":9000"
//	SESSION_TIMEOUT: 2h
//
// Each struct type is parsed once per process; later calls return the cached
// value.
package config
