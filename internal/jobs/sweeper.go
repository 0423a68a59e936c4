// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/application"
)

// Sweepable realizes and purges past quotes.
type Sweepable interface {
	Sweep(ctx context.Context) (application.SweepResult, error)
}

// Sweeper runs a sweep at startup and then on every tick.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewSweeper creates a new Sweeper. An interval of zero or less disables it.
func NewSweeper(target Sweepable, interval time.Duration, logger *zap.Logger) *Sweeper {
	timeout := interval
	if timeout <= 0 || timeout > time.Minute {
		timeout = time.Minute
	}
	return &Sweeper{target: target, interval: interval, timeout: timeout, logger: logger}
}

// Start launches the sweep loop. It returns immediately; the loop stops when ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("quote sweeper disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("quote sweeper started", zap.Duration("interval", s.interval))
	go func() {
		defer close(s.done)
		s.runOnce(ctx, "startup")
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx, "interval")
			}
		}
	}()
}

// Wait blocks until a started loop has exited.
func (s *Sweeper) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Sweeper) runOnce(ctx context.Context, source string) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.target.Sweep(ctx)
	if err != nil {
		s.logger.Warn("quote sweep failed", zap.String("source", source), zap.Error(err))
		return
	}
	s.logger.Debug("quote sweep finished",
		zap.String("source", source),
		zap.Int64("realized", res.Realized),
		zap.Int64("purged", res.Purged),
	)
}
