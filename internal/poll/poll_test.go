package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/store"
)

type fakeTrips struct {
	mu       sync.Mutex
	bidCalls int
	bids     []models.Bid
	bidErr   error

	tripCalls int
	trips     []*models.Trip // returned in order, last repeats
	tripErr   error
}

func (f *fakeTrips) GetBids(ctx context.Context, tripID string) ([]models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bidCalls++
	if f.bidErr != nil {
		return nil, f.bidErr
	}
	return f.bids, nil
}

func (f *fakeTrips) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tripCalls++
	if f.tripErr != nil {
		return nil, f.tripErr
	}
	i := f.tripCalls - 1
	if i >= len(f.trips) {
		i = len(f.trips) - 1
	}
	t := *f.trips[i]
	return &t, nil
}

func (f *fakeTrips) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bidCalls, f.tripCalls
}

func pendingSession(t *models.Trip) *store.Store[store.SessionState] {
	s := store.NewSession()
	s.Dispatch(store.SetCurrentTrip{Trip: t})
	return s
}

func TestBidPollerReplacesWholesale(t *testing.T) {
	trip := &models.Trip{ID: "t1", Status: models.TripPending}
	s := pendingSession(trip)
	f := &fakeTrips{bids: []models.Bid{{ID: "b1"}, {ID: "b1"}, {ID: "b2"}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p := &BidPoller{Trips: f, Session: s, Interval: 5 * time.Millisecond}
	go func() { p.Run(ctx); close(done) }()

	// let several ticks elapse
	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	bidCalls, _ := f.calls()
	if bidCalls < 2 {
		t.Fatalf("expected repeated polls, got %d", bidCalls)
	}
	bids := s.State().Bids
	if len(bids) != 2 {
		t.Fatalf("len(bids) = %d, want 2: duplicates must not accumulate across polls", len(bids))
	}
}

func TestBidPollerStopsWhenTripLeavesPending(t *testing.T) {
	trip := &models.Trip{ID: "t1", Status: models.TripAccepted}
	s := pendingSession(trip)
	f := &fakeTrips{}

	done := make(chan struct{})
	p := &BidPoller{Trips: f, Session: s, Interval: 2 * time.Millisecond}
	go func() { p.Run(context.Background()); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop for a non-pending trip")
	}
	if bidCalls, _ := f.calls(); bidCalls != 0 {
		t.Fatalf("expected no fetches, got %d", bidCalls)
	}
}

func TestTripPollerSignalsDoneOnce(t *testing.T) {
	start := &models.Trip{ID: "t1", Status: models.TripAccepted, UpdatedAt: time.Unix(100, 0)}
	s := pendingSession(start)
	f := &fakeTrips{trips: []*models.Trip{
		{ID: "t1", Status: models.TripInProgress, UpdatedAt: time.Unix(101, 0)},
		{ID: "t1", Status: models.TripCompleted, UpdatedAt: time.Unix(102, 0)},
	}}

	var mu sync.Mutex
	doneCount := 0
	var final models.Trip
	p := &TripPoller{
		Trips:    f,
		Session:  s,
		Interval: 2 * time.Millisecond,
		Done: func(tr models.Trip) {
			mu.Lock()
			doneCount++
			final = tr
			mu.Unlock()
		},
	}

	stopped := make(chan struct{})
	go func() { p.Run(context.Background()); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after terminal status")
	}

	mu.Lock()
	defer mu.Unlock()
	if doneCount != 1 {
		t.Fatalf("Done called %d times, want exactly 1", doneCount)
	}
	if final.Status != models.TripCompleted {
		t.Fatalf("final status = %s", final.Status)
	}
	if s.State().CurrentTrip.Status != models.TripCompleted {
		t.Fatalf("session status = %s", s.State().CurrentTrip.Status)
	}
	if _, tripCalls := f.calls(); tripCalls != 2 {
		t.Fatalf("expected 2 fetches, got %d", tripCalls)
	}
}

func TestTripPollerDiscardsStaleResponse(t *testing.T) {
	now := time.Unix(200, 0)
	start := &models.Trip{ID: "t1", Status: models.TripAccepted, UpdatedAt: now}
	s := pendingSession(start)
	f := &fakeTrips{trips: []*models.Trip{
		{ID: "t1", Status: models.TripPending, UpdatedAt: now.Add(-time.Minute)}, // stale
		{ID: "t1", Status: models.TripCancelled, UpdatedAt: now.Add(time.Minute)},
	}}

	p := &TripPoller{Trips: f, Session: s, Interval: 2 * time.Millisecond, Done: func(models.Trip) {}}
	stopped := make(chan struct{})
	go func() { p.Run(context.Background()); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	// the stale pending response must never have overwritten accepted
	if got := s.State().CurrentTrip.Status; got != models.TripCancelled {
		t.Fatalf("final status = %s, want cancelled", got)
	}
}

func TestTripPollerBacksOffOnError(t *testing.T) {
	start := &models.Trip{ID: "t1", Status: models.TripAccepted}
	s := pendingSession(start)
	f := &fakeTrips{tripErr: errors.New("network down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &TripPoller{Trips: f, Session: s, Interval: 3 * time.Millisecond}
	go p.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	_, after := f.calls()
	// with pure 3ms ticks 60ms fits ~20 polls; backoff must have
	// stretched the gaps well below that
	if after == 0 || after >= 15 {
		t.Fatalf("got %d polls, want backoff to slow them down", after)
	}
	// loop must still be alive and swallowing errors
	if s.State().CurrentTrip.Status != models.TripAccepted {
		t.Fatal("error polls must not touch state")
	}
}

func TestNextBackoffStaysUnderCeiling(t *testing.T) {
	base := 3 * time.Millisecond
	ceiling := base * backoffCeiling
	delay := base
	for i := 0; i < 20; i++ {
		next := nextBackoff(delay, ceiling)
		if next > ceiling {
			t.Fatalf("step %d: delay %v exceeds ceiling %v", i, next, ceiling)
		}
		if next <= delay && delay < ceiling/2 {
			t.Fatalf("step %d: delay %v did not grow from %v", i, next, delay)
		}
		delay = next
	}
}

type fakeNearby struct {
	mu    sync.Mutex
	calls int
	trips []models.NearbyTrip
}

func (f *fakeNearby) NearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]models.NearbyTrip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.trips, nil
}

func TestNearbyPollerNeedsPosition(t *testing.T) {
	s := store.NewSession()
	f := &fakeNearby{trips: []models.NearbyTrip{{ID: "n1"}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &NearbyPoller{Trips: f, Session: s, Interval: 3 * time.Millisecond}
	go p.Run(ctx)

	time.Sleep(15 * time.Millisecond)
	f.mu.Lock()
	noPos := f.calls
	f.mu.Unlock()
	if noPos != 0 {
		t.Fatalf("polled %d times without a position", noPos)
	}

	s.Dispatch(store.SetPosition{Loc: models.Location{Latitude: -17.8, Longitude: 31.0}})
	time.Sleep(20 * time.Millisecond)
	f.mu.Lock()
	withPos := f.calls
	f.mu.Unlock()
	if withPos == 0 {
		t.Fatal("never polled after position became known")
	}
	if len(s.State().NearbyTrips) != 1 {
		t.Fatalf("nearby trips = %v", s.State().NearbyTrips)
	}
}
