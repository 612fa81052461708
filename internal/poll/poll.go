// Package poll keeps the local session eventually consistent with the
// backend through fixed-interval polling. A failed poll is logged and
// swallowed; the next tick retries, with the interval backing off
// (with jitter, up to a ceiling) across consecutive failures and
// snapping back on the first success.
package poll

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/store"
)

const (
	DefaultBidInterval    = 5 * time.Second
	DefaultTripInterval   = 3 * time.Second
	DefaultNearbyInterval = 10 * time.Second
)

// backoffCeiling bounds the error backoff relative to the base
// interval.
const backoffCeiling = 8

// TripFetcher is the slice of the REST client the pollers need.
type TripFetcher interface {
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	GetBids(ctx context.Context, tripID string) ([]models.Bid, error)
}

// NearbyFetcher lists open trips around a driver position.
type NearbyFetcher interface {
	NearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]models.NearbyTrip, error)
}

// BidPoller refreshes the rider's bid list while the current trip is
// pending: one fetch per tick, wholesale replacement of the local
// collection. It stops when the trip leaves pending, disappears, or
// ctx is cancelled.
type BidPoller struct {
	Trips    TripFetcher
	Session  *store.Store[store.SessionState]
	Interval time.Duration
	Log      *slog.Logger
}

func (p *BidPoller) Run(ctx context.Context) {
	base := p.Interval
	if base <= 0 {
		base = DefaultBidInterval
	}
	delay := base
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		trip := p.Session.State().CurrentTrip
		if trip == nil || trip.Status != models.TripPending {
			return
		}
		bids, err := p.Trips.GetBids(ctx, trip.ID)
		if err != nil {
			p.logErr("bid poll failed", trip.ID, err)
			delay = nextBackoff(delay, base*backoffCeiling)
		} else {
			delay = base
			p.Session.Dispatch(store.SetBids{Bids: bids})
		}
		timer.Reset(delay)
	}
}

// TripPoller refetches the active trip until it reaches a terminal
// status, then calls Done exactly once and stops. A response older
// than the state we already hold is discarded so a slow poll cannot
// overwrite a newer accept/cancel.
type TripPoller struct {
	Trips    TripFetcher
	Session  *store.Store[store.SessionState]
	Interval time.Duration
	Log      *slog.Logger
	Done     func(models.Trip)
}

func (p *TripPoller) Run(ctx context.Context) {
	base := p.Interval
	if base <= 0 {
		base = DefaultTripInterval
	}
	delay := base
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		cur := p.Session.State().CurrentTrip
		if cur == nil {
			return
		}
		fetched, err := p.Trips.GetTrip(ctx, cur.ID)
		if err != nil {
			p.logErr("trip poll failed", cur.ID, err)
			delay = nextBackoff(delay, base*backoffCeiling)
			timer.Reset(delay)
			continue
		}
		delay = base

		if fetched.UpdatedAt.Before(cur.UpdatedAt) {
			// stale read, keep what we have
			timer.Reset(delay)
			continue
		}
		p.Session.Dispatch(store.SetCurrentTrip{Trip: fetched})
		if fetched.DriverLocation != nil {
			p.Session.Dispatch(store.SetDriverPosition{Loc: *fetched.DriverLocation})
		}
		if fetched.Status.Terminal() {
			if p.Done != nil {
				p.Done(*fetched)
			}
			return
		}
		timer.Reset(delay)
	}
}

// NearbyPoller refreshes the driver's view of open trip requests while
// online. The set is replaced wholesale each tick.
type NearbyPoller struct {
	Trips    NearbyFetcher
	Session  *store.Store[store.SessionState]
	Interval time.Duration
	RadiusKm float64
	Log      *slog.Logger
}

func (p *NearbyPoller) Run(ctx context.Context) {
	base := p.Interval
	if base <= 0 {
		base = DefaultNearbyInterval
	}
	radius := p.RadiusKm
	if radius <= 0 {
		radius = 10
	}
	delay := base
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		pos := p.Session.State().Position
		if pos == nil {
			timer.Reset(base)
			continue
		}
		trips, err := p.Trips.NearbyTrips(ctx, pos.Latitude, pos.Longitude, radius)
		if err != nil {
			p.logErr("nearby poll failed", "", err)
			delay = nextBackoff(delay, base*backoffCeiling)
		} else {
			delay = base
			p.Session.Dispatch(store.SetNearbyTrips{Trips: trips})
		}
		timer.Reset(delay)
	}
}

func nextBackoff(cur, ceiling time.Duration) time.Duration {
	next := cur * 2
	if next > ceiling {
		next = ceiling
	}
	// shave up to 25% so synchronized clients spread out while the
	// delay stays under the ceiling
	if j := next / 4; j > 0 {
		next -= time.Duration(rand.Int63n(int64(j)))
	}
	return next
}

func (p *BidPoller) logErr(msg, tripID string, err error) {
	if p.Log != nil {
		p.Log.Warn(msg, "trip_id", tripID, "error", err)
	}
}

func (p *TripPoller) logErr(msg, tripID string, err error) {
	if p.Log != nil {
		p.Log.Warn(msg, "trip_id", tripID, "error", err)
	}
}

func (p *NearbyPoller) logErr(msg, tripID string, err error) {
	if p.Log != nil {
		p.Log.Warn(msg, "trip_id", tripID, "error", err)
	}
}
