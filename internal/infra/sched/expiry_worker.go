package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/infra/metrics"
)

// StaleExpirer removes unpaid bookings whose payment deadline has passed.
type StaleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiryWorker periodically sweeps for bookings whose in-process payment
// timers were lost to a restart.
type ExpiryWorker struct {
	interval time.Duration
	expirer  StaleExpirer
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, expirer StaleExpirer, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		expirer:  expirer,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.expirer.ExpireStale(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				metrics.SweepExpired.Add(float64(n))
				w.log.Info().Int("count", n).Msg("stale bookings expired")
			}
		}
	}
}
