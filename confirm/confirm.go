// Package confirm waits for the engine to finalize submitted work.
//
// The engine promises that an acknowledged submission is visible no
// later than the next block height it reports. Waiting for the height
// to move past the value read before submitting is therefore enough
// to read post-transaction state.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

const (
	// DefaultBlockTime is the reference engine's block interval.
	DefaultBlockTime = 200 * time.Millisecond
	// TimeoutFactor is how many block intervals a waiter tolerates
	// without progress.
	TimeoutFactor = 10
)

// ErrHeightRegressed is returned when the engine reports a height
// lower than one already observed.
var ErrHeightRegressed = errors.New("block height decreased")

// HeightSource reports the engine's last block height.
// seqtest.Sequencer satisfies it.
type HeightSource interface {
	LastBlockHeight(ctx context.Context) (types.BlockHeight, error)
}

// Poller waits by polling the height source.
type Poller struct {
	Source       HeightSource
	Clock        clock.Clock
	PollInterval time.Duration
	Timeout      time.Duration
	Logger       *zap.Logger
}

// FromBlockTime returns a Poller that polls once per block interval
// and gives up after TimeoutFactor intervals without progress.
func FromBlockTime(src HeightSource, blockTime time.Duration) *Poller {
	return &Poller{
		Source:       src,
		PollInterval: blockTime,
		Timeout:      TimeoutFactor * blockTime,
	}
}

func (p *Poller) clock() clock.Clock {
	if p.Clock == nil {
		return clock.New()
	}
	return p.Clock
}

func (p *Poller) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// WaitForBlock reads the current height and waits for the next one.
func (p *Poller) WaitForBlock(ctx context.Context) (types.BlockHeight, error) {
	initial, err := p.Source.LastBlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	return p.AwaitProgress(ctx, initial)
}

// AwaitProgress blocks until the source reports a height greater than
// initial and returns it. It fails with *seqtest.TimeoutError once
// Timeout elapses without progress, and with ctx.Err() when ctx ends.
func (p *Poller) AwaitProgress(ctx context.Context, initial types.BlockHeight) (types.BlockHeight, error) {
	clk := p.clock()
	log := p.logger()
	start := clk.Now()
	var (
		last types.BlockHeight
		seen bool
	)

	for {
		current, err := p.Source.LastBlockHeight(ctx)
		if err != nil {
			return 0, fmt.Errorf("read block height: %w", err)
		}
		// Only successive reads are compared; initial may be ahead of
		// the engine.
		if seen && current < last {
			return 0, fmt.Errorf("%w: %d after %d", ErrHeightRegressed, current, last)
		}
		last, seen = current, true
		if current > initial {
			log.Debug("Block height advanced",
				zap.Uint64("initial", uint64(initial)),
				zap.Uint64("current", uint64(current)),
				zap.Duration("elapsed", clk.Since(start)))
			return current, nil
		}

		if elapsed := clk.Since(start); elapsed > p.Timeout {
			log.Warn("Timed out waiting for block",
				zap.Uint64("height", uint64(current)),
				zap.Duration("timeout", p.Timeout))
			return 0, &seqtest.TimeoutError{
				Initial: initial,
				Stalled: current,
				Timeout: p.Timeout,
			}
		}

		log.Debug("Waiting for new block", zap.Uint64("height", uint64(current)))
		if err := sleep(ctx, clk, p.PollInterval); err != nil {
			return 0, err
		}
	}
}

// FixedDelay is the crude wait: sleep a fixed time and hope a block
// was produced meanwhile. It has no failure signal, so a stalled
// engine goes unnoticed. Do not use it before asserting on state.
type FixedDelay struct {
	Source HeightSource
	Clock  clock.Clock
	Delay  time.Duration
}

// Wait sleeps Delay and returns the height read afterwards.
func (f FixedDelay) Wait(ctx context.Context) (types.BlockHeight, error) {
	clk := f.Clock
	if clk == nil {
		clk = clock.New()
	}
	if err := sleep(ctx, clk, f.Delay); err != nil {
		return 0, err
	}
	return f.Source.LastBlockHeight(ctx)
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
