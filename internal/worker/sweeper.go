package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper expires stale pending payments. Satisfied by *service.PaymentService.
type Sweeper interface {
	SweepExpiredPending(ctx context.Context) (int, error)
}

// PaymentSweeper runs the expiry sweep on a fixed interval so abandoned
// checkouts do not sit pending forever.
type PaymentSweeper struct {
	svc      Sweeper
	interval time.Duration
}

// NewPaymentSweeper derives the sweep interval from the pending timeout: a
// quarter of it, but never more often than once a minute.
func NewPaymentSweeper(svc Sweeper, timeout time.Duration) *PaymentSweeper {
	interval := timeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &PaymentSweeper{svc: svc, interval: interval}
}

// Start blocks until ctx ends. Run it as a goroutine: go sweeper.Start(ctx)
func (s *PaymentSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.svc.SweepExpiredPending(ctx)
			if err != nil {
				log.Error().Err(err).Msg("payment sweep")
				continue
			}
			if swept > 0 {
				log.Info().Int("orders", swept).Msg("expired pending payments marked failed")
			}
		}
	}
}
