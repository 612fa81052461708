// The driver agent is a headless driver session: it logs in, pays the
// daily fee when needed, goes online, streams simulated positions, watches
// for nearby trip requests and bids on them, then drives won trips to
// completion. It exercises the same client stack a real app embeds.
package main

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/hande/internal/client"
	"github.com/example/hande/internal/config"
	"github.com/example/hande/internal/driverstate"
	"github.com/example/hande/internal/locwatch"
	"github.com/example/hande/internal/logging"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/poll"
	"github.com/example/hande/internal/store"
)

func main() {
	cfg, err := config.LoadAgentConfig()
	if err != nil {
		logging.NewLogger("error").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.APIBaseURL)
	if _, err := api.Login(ctx, cfg.Email, cfg.Password); err != nil {
		logger.Error("login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("logged in", "email", cfg.Email)

	session := store.NewSession()
	machine := driverstate.NewMachine(func() bool {
		fee, err := api.DailyFeeStatus(ctx)
		if err != nil {
			logger.Warn("fee status check failed", "error", err)
			return false
		}
		return fee.Payable(time.Now())
	})

	agent := &agent{
		api:     api,
		session: session,
		machine: machine,
		cfg:     cfg,
		log:     logger,
		pos:     models.Location{Latitude: cfg.StartLat, Longitude: cfg.StartLng},
	}
	agent.run(ctx)
}

type agent struct {
	api     *client.Client
	session *store.Store[store.SessionState]
	machine *driverstate.Machine
	cfg     config.AgentConfig
	log     *slog.Logger

	mu  sync.Mutex
	pos models.Location
}

func (a *agent) run(ctx context.Context) {
	if !a.goOnline(ctx) {
		return
	}

	var wg sync.WaitGroup

	// continuous position watch
	watcher := &locwatch.Watcher{
		Source: &locwatch.TickerSource{
			Interval: a.cfg.LocationInterval,
			Next:     a.nextPosition,
		},
		Forward: a.api,
		Session: a.session,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("location watch stopped", "error", err)
		}
	}()

	// nearby trip requests
	nearby := &poll.NearbyPoller{
		Trips:    a.api,
		Session:  a.session,
		Interval: a.cfg.NearbyInterval,
		RadiusKm: a.cfg.NearbyRadiusKm,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		nearby.Run(ctx)
	}()

	// bid on whatever shows up, then run won trips
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.bidLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	// best effort offline on the way out
	offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.api.GoOffline(offCtx); err != nil {
		a.log.Warn("go offline failed", "error", err)
	}
	a.machine.ForceOffline()
	a.log.Info("agent stopped")
}

func (a *agent) goOnline(ctx context.Context) bool {
	if _, ok := a.machine.Request(driverstate.GoingOnline); !ok {
		// the gate said no: settle the fee first
		if _, err := a.api.PayDailyFee(ctx, 1, "card"); err != nil {
			a.log.Error("daily fee payment failed", "error", err)
			return false
		}
		a.log.Info("daily fee paid")
		if _, ok := a.machine.Request(driverstate.GoingOnline); !ok {
			a.log.Error("still blocked from going online")
			return false
		}
	}
	if err := a.api.GoOnline(ctx, a.position()); err != nil {
		a.log.Error("go online failed", "error", err)
		a.machine.ForceOffline()
		return false
	}
	a.machine.Request(driverstate.Online)
	a.session.Dispatch(store.SetDriverStatus{Status: driverstate.Online})
	a.log.Info("online")
	return true
}

// bidLoop watches the nearby set, bids on the closest request, and when a
// bid wins runs the trip through arrive/start/complete.
func (a *agent) bidLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.NearbyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if trip, err := a.api.ActiveTrip(ctx); err == nil && trip != nil {
			a.runTrip(ctx, trip)
			continue
		}

		state := a.session.State()
		if n := len(state.MyBids); n > 0 {
			// no active trip and the bid's request is gone from the
			// nearby set: the bid lost, back out of bid_pending
			if last := state.MyBids[n-1]; !tripNearby(state.NearbyTrips, last.TripID) {
				a.machine.Request(driverstate.Online)
				a.session.Dispatch(store.ClearMyBids{})
				a.log.Info("bid lost", "trip_id", last.TripID)
				state = a.session.State()
			}
		}
		if len(state.NearbyTrips) == 0 {
			continue
		}
		req := state.NearbyTrips[0]
		if _, ok := a.machine.Request(driverstate.ViewingRequest); !ok {
			continue
		}
		a.machine.Request(driverstate.Bidding)

		// undercut the estimate slightly
		amount := math.Max(5.0, req.EstimatedFare*(0.9+0.1*rand.Float64()))
		bid, err := a.api.PlaceBid(ctx, client.PlaceBidRequest{TripID: req.ID, Amount: amount})
		if err != nil {
			a.log.Warn("bid failed", "trip_id", req.ID, "error", err)
			a.machine.Request(driverstate.Online)
			continue
		}
		a.session.Dispatch(store.AddMyBid{Bid: *bid})
		a.machine.Request(driverstate.BidPending)
		a.log.Info("bid placed", "trip_id", req.ID, "amount", amount)
	}
}

func (a *agent) runTrip(ctx context.Context, trip *models.Trip) {
	a.machine.Request(driverstate.Accepted)
	a.session.Dispatch(store.SetCurrentTrip{Trip: trip})
	a.log.Info("trip won", "trip_id", trip.ID, "fare", trip.Fare)

	steps := []struct {
		status driverstate.Status
		call   func(context.Context, string) (*models.Trip, error)
	}{
		{driverstate.Arriving, nil},
		{driverstate.Arrived, a.api.ArriveAtPickup},
		{driverstate.InProgress, a.api.StartTrip},
		{driverstate.Completing, nil},
		{driverstate.Online, a.api.CompleteTrip},
	}
	for _, step := range steps {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * a.cfg.LocationInterval):
		}
		if step.call != nil {
			updated, err := step.call(ctx, trip.ID)
			if err != nil {
				a.log.Warn("trip step failed", "trip_id", trip.ID, "error", err)
				a.machine.Request(driverstate.Online)
				a.session.Dispatch(store.ClearTrip{})
				return
			}
			a.session.Dispatch(store.SetCurrentTrip{Trip: updated})
		}
		a.machine.Request(step.status)
	}

	a.session.Dispatch(store.ClearTrip{})
	a.session.Dispatch(store.ClearMyBids{})
	if e, err := a.api.Earnings(ctx); err == nil {
		a.session.Dispatch(store.SetEarnings{Earnings: e})
		a.log.Info("trip completed", "trip_id", trip.ID, "today", e.Today)
	}
}

// nextPosition drifts the simulated car randomly, roughly 50m per tick.
func (a *agent) nextPosition() locwatch.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos.Latitude += (rand.Float64() - 0.5) * 0.001
	a.pos.Longitude += (rand.Float64() - 0.5) * 0.001
	return locwatch.Position{
		Location: a.pos,
		Heading:  rand.Float64() * 360,
		At:       time.Now(),
	}
}

func (a *agent) position() models.Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

func tripNearby(trips []models.NearbyTrip, tripID string) bool {
	for _, t := range trips {
		if t.ID == tripID {
			return true
		}
	}
	return false
}
