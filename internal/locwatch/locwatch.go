// Package locwatch runs the driver's continuous position watch: every
// sampled position is stored locally for rendering and forwarded to
// the backend fire-and-forget. A failed forward is a missed update,
// nothing more; there is no retry queue.
package locwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/store"
)

// Position is one sampled device location.
type Position struct {
	Location models.Location
	Heading  float64
	At       time.Time
}

// Source is a continuous position watch. Implementations own the
// accuracy/staleness/timeout policy of the underlying device or
// simulator; Watch must close the returned channel when ctx ends.
type Source interface {
	Watch(ctx context.Context) (<-chan Position, error)
}

// Forwarder pushes one position update to the backend.
type Forwarder interface {
	UpdateLocation(ctx context.Context, loc models.Location, heading float64) error
}

// Watcher wires a Source to the session store and the backend.
type Watcher struct {
	Source  Source
	Forward Forwarder
	Session *store.Store[store.SessionState]
	Log     *slog.Logger
}

// Run consumes positions until ctx is cancelled or the source closes.
// No debouncing or delta-thresholding: update frequency is bounded
// only by the source's reporting rate.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.Source.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-ch:
			if !ok {
				return nil
			}
			w.Session.Dispatch(store.SetPosition{Loc: pos.Location})
			if err := w.Forward.UpdateLocation(ctx, pos.Location, pos.Heading); err != nil {
				if w.Log != nil {
					w.Log.Warn("location forward dropped", "error", err)
				}
			}
		}
	}
}

// TickerSource samples a position function on a fixed cadence. It is
// the stand-in for a device watch in the agent and in tests.
type TickerSource struct {
	Interval time.Duration
	Next     func() Position
}

func (t *TickerSource) Watch(ctx context.Context) (<-chan Position, error) {
	interval := t.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ch := make(chan Position)
	go func() {
		defer close(ch)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				select {
				case ch <- t.Next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
