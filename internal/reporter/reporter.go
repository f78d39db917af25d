// Package reporter periodically logs a snapshot of store size and key
// counts on a cron schedule. Operational visibility only; it never
// touches the data path.
package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"

	"copacabana/pkg/config"
	"copacabana/pkg/logger"
	"copacabana/pkg/store"
)

// defaultCron snapshots hourly when no schedule is configured.
const defaultCron = "0 * * * *"

// Start launches the scheduler if stats reporting is enabled. Returns a
// cancel func; a no-op cancel when disabled.
func Start(ctx context.Context, cfg config.StatsConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("stats_reporter_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("stats_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid stats cron expression: %s", cronExpr)
	}
	ctx2, cancel := context.WithCancel(ctx)
	go run(ctx2, cronExpr)
	logger.Info("stats_reporter_started", "cron", cronExpr)
	return cancel, nil
}

func run(ctx context.Context, cronExpr string) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("stats_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-time.After(time.Until(next)):
			snapshot()
		case <-ctx.Done():
			logger.Info("stats_reporter_stopping")
			return
		}
	}
}

// snapshot emits one stats log line.
func snapshot() {
	if !store.Ready() {
		return
	}
	st := store.GetStats()
	logger.Info("store_stats",
		"resources", st.Members,
		"collections", st.Counters,
		"disk", humanize.Bytes(st.DiskBytes),
	)
}
