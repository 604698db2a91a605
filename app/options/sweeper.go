package options

import (
	"context"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
)

// Sweeper periodically marks expired, unexercised options lapsed.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(service Service, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{service: service, interval: interval, logger: log}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	if _, err := w.service.SweepExpired(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error(err, map[string]interface{}{"action": "sweep_expired"})
	}
}
