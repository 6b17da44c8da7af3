// Package worker runs background jobs alongside the HTTP server.
package worker

import (
	"context"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// PendingLister finds pending orders that already have a payment session.
type PendingLister interface {
	ListAwaitingPayment(ctx context.Context, olderThan, newerThan time.Time, limit int) ([]model.Order, error)
}

// Settler confirms a payment with the gateway and settles its order.
type Settler interface {
	Settle(ctx context.Context, txRef string) (*model.ReconcileResult, error)
}

// SweeperConfig controls how often and how far back the sweeper looks.
type SweeperConfig struct {
	Interval  time.Duration
	MinAge    time.Duration
	MaxAge    time.Duration
	Workers   int
	BatchSize int
}

// Sweeper settles orders whose webhook never arrived by polling the gateway
// for their latest transaction reference.
type Sweeper struct {
	lister  PendingLister
	settler Settler
	cfg     SweeperConfig
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSweeper creates a new pending-payment sweeper.
func NewSweeper(lister PendingLister, settler Settler, cfg SweeperConfig, logger zerolog.Logger) *Sweeper {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Sweeper{
		lister:  lister,
		settler: settler,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps every Interval until ctx is cancelled, then waits for in-flight
// settlements to finish.
func (s *Sweeper) Run(ctx context.Context) {
	jobs := make(chan string, s.cfg.Workers*3)

	var wg sync.WaitGroup
	for i := 1; i <= s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.workerLoop(ctx, id, jobs)
		}(i)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Int("workers", s.cfg.Workers).
		Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.dispatch(ctx, jobs)
		}
	}
}

// dispatch lists candidates and queues their references. A full queue skips
// the remainder until the next tick.
func (s *Sweeper) dispatch(ctx context.Context, jobs chan<- string) int {
	now := s.now()
	orders, err := s.lister.ListAwaitingPayment(ctx, now.Add(-s.cfg.MinAge), now.Add(-s.cfg.MaxAge), s.cfg.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders awaiting payment")
		return 0
	}
	if len(orders) == 0 {
		s.logger.Debug().Msg("no orders awaiting payment")
		return 0
	}

	queued := 0
	for _, o := range orders {
		if o.PaymentTransactionID == nil {
			continue
		}
		select {
		case jobs <- *o.PaymentTransactionID:
			queued++
		default:
			s.logger.Warn().
				Str("order_id", o.ID.String()).
				Msg("sweeper queue full, deferring to next cycle")
		}
	}

	s.logger.Debug().Int("found", len(orders)).Int("queued", queued).Msg("sweep dispatched")
	return queued
}

func (s *Sweeper) workerLoop(ctx context.Context, id int, jobs <-chan string) {
	log := s.logger.With().Int("worker", id).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case txRef, ok := <-jobs:
			if !ok {
				return
			}
			result, err := s.settler.Settle(ctx, txRef)
			if err != nil {
				log.Warn().Err(err).Str("tx_ref", txRef).Msg("sweep settlement failed")
				continue
			}
			log.Info().
				Str("tx_ref", txRef).
				Str("outcome", string(result.Outcome)).
				Msg("sweep settlement")
		}
	}
}
