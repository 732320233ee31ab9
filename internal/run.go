package internal

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/pie/pkg/session"
)

// Run serves the App on addr and blocks until shutdown.
//
// Startup hooks run in order: the App's own (OnStartup, WithLifecycle),
// the session sweeper, then the RunOption hooks. Shutdown hooks run after
// the server stopped: RunOption hooks, the sweeper, then the App's own.
//
// Example:
//
//	app := pie.MustNew(&Site{}, pie.WithSessionSweep("@every 15m"))
//	err := app.Run(":8080", pie.ShutdownHook(redis.Shutdown(client)))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	startup := append([]func(context.Context) error{}, a.startupHooks...)
	var shutdown []func(context.Context) error

	if a.sweepSchedule != "" {
		sweeper, err := a.newSweeper()
		if err != nil {
			return err
		}
		startup = append(startup, func(context.Context) error {
			sweeper.Start()
			return nil
		})
		shutdown = append(shutdown, sweeper.Stop)
	}

	startup = append(startup, cfg.startupHooks...)
	shutdown = append(append(append([]func(context.Context) error{}, cfg.shutdownHooks...), shutdown...), a.shutdownHooks...)

	log := cfg.logger
	if log == nil {
		log = a.logger
	}

	return runServer(runtimeConfig{
		handler:         a,
		address:         addr,
		logger:          log,
		shutdownTimeout: cfg.shutdownTimeout,
		readTimeout:     cfg.readTimeout,
		startupHooks:    startup,
		shutdownHooks:   shutdown,
		baseCtx:         cfg.baseCtx,
	})
}

func (a *App) newSweeper() (*session.ScheduledSweeper, error) {
	store, ok := a.sessionStore.(session.Sweeper)
	if !ok {
		return nil, fmt.Errorf("pie: %w", session.ErrSweepUnsupported)
	}
	return session.NewScheduledSweeper(store, a.sweepSchedule, a.logger)
}
