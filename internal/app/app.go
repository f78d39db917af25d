// Package app encapsulates server construction and lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"copacabana/internal/reporter"
	"copacabana/pkg/banner"
	"copacabana/pkg/collection"
	"copacabana/pkg/config"
	"copacabana/pkg/logger"
	"copacabana/pkg/realtime"
	"copacabana/pkg/store"
)

// App holds the wired components and lifecycle state.
type App struct {
	eff     config.EffectiveConfigResult
	version string

	hub         *realtime.Hub
	collections *collection.Store
}

// New initializes resources that do not require a running context: env
// file, logger, the store, the hub, and the collection layer. Call Run to
// start the HTTP server and block until shutdown.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	_ = godotenv.Load(".env")

	logger.InitWithLevel(eff.Config.Logging.Level)

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version}
	var events collection.Broadcaster = collection.NopBroadcaster{}
	if eff.Config.Realtime.Enabled {
		a.hub = realtime.NewHub(eff.Config.Realtime.Event)
		events = a.hub
	}
	a.collections = collection.New(events)
	return a, nil
}

// Run starts the stats reporter and the HTTP server, and blocks until ctx
// is canceled or a fatal server error occurs. The store is closed on the
// way out.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store_close_failed", "error", err)
		}
	}()

	cancelStats, err := reporter.Start(ctx, a.eff.Config.Stats)
	if err != nil {
		return err
	}
	defer cancelStats()

	banner.Print(a.eff, a.version)

	errCh := a.startHTTP(ctx)
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
