package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/application"
)

type countingSweep struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweep) Sweep(context.Context) (application.SweepResult, error) {
	c.calls.Add(1)
	return application.SweepResult{Realized: 1}, c.err
}

func TestSweeper_RunsAtStartupAndOnTick(t *testing.T) {
	target := &countingSweep{}
	s := NewSweeper(target, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	assert.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()
	stopped := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, target.calls.Load())
}

func TestSweeper_KeepsRunningAfterFailure(t *testing.T) {
	target := &countingSweep{err: errors.New("store down")}
	s := NewSweeper(target, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)

	assert.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSweeper_Disabled(t *testing.T) {
	target := &countingSweep{}
	s := NewSweeper(target, 0, zap.NewNop())

	s.Start(context.Background())
	s.Wait()

	assert.Zero(t, target.calls.Load())
}
