package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/hande/internal/client"
	"github.com/example/hande/internal/config"
	"github.com/example/hande/internal/driverstate"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/store"
)

// A lost bid leaves the machine in bid_pending with no active trip. The
// loop has to back out to online and bid on the next request instead of
// sitting on the dead bid forever.
func TestBidLoopRecoversAfterLosingBid(t *testing.T) {
	var bidsPlaced atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/drivers/active-trip":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, "null")
		case r.URL.Path == "/bids" && r.Method == http.MethodPost:
			bidsPlaced.Add(1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(models.Bid{ID: "bid-2", TripID: "trip-2", Amount: 6})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	session := store.NewSession()
	machine := driverstate.NewMachine(func() bool { return true })
	machine.Request(driverstate.GoingOnline)
	machine.Request(driverstate.Online)
	machine.Request(driverstate.Bidding)
	machine.Request(driverstate.BidPending)

	session.Dispatch(store.AddMyBid{Bid: models.Bid{ID: "bid-1", TripID: "trip-1", Amount: 7}})
	session.Dispatch(store.SetNearbyTrips{Trips: []models.NearbyTrip{
		{ID: "trip-2", EstimatedFare: 6.5},
	}})

	a := &agent{
		api:     client.New(srv.URL),
		session: session,
		machine: machine,
		cfg:     config.AgentConfig{NearbyInterval: 10 * time.Millisecond},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.bidLoop(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for bidsPlaced.Load() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("no new bid placed after the pending bid lost")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := machine.Status(); got != driverstate.BidPending {
		t.Fatalf("machine status = %s, want %s after re-bidding", got, driverstate.BidPending)
	}
	st := session.State()
	if len(st.MyBids) != 1 || st.MyBids[0].TripID != "trip-2" {
		t.Fatalf("MyBids = %+v, want exactly the fresh bid on trip-2", st.MyBids)
	}
}

// While the bid's request is still in the nearby set the bid is live: the
// loop must hold in bid_pending rather than clear and re-bid.
func TestBidLoopHoldsWhileBidStillLive(t *testing.T) {
	var bidsPlaced atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/drivers/active-trip":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, "null")
		case r.URL.Path == "/bids" && r.Method == http.MethodPost:
			bidsPlaced.Add(1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(models.Bid{ID: "bid-9", TripID: "trip-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	session := store.NewSession()
	machine := driverstate.NewMachine(func() bool { return true })
	machine.Request(driverstate.GoingOnline)
	machine.Request(driverstate.Online)
	machine.Request(driverstate.Bidding)
	machine.Request(driverstate.BidPending)

	session.Dispatch(store.AddMyBid{Bid: models.Bid{ID: "bid-1", TripID: "trip-1", Amount: 7}})
	session.Dispatch(store.SetNearbyTrips{Trips: []models.NearbyTrip{
		{ID: "trip-1", EstimatedFare: 6.5},
	}})

	a := &agent{
		api:     client.New(srv.URL),
		session: session,
		machine: machine,
		cfg:     config.AgentConfig{NearbyInterval: 10 * time.Millisecond},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.bidLoop(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if got := bidsPlaced.Load(); got != 0 {
		t.Fatalf("placed %d bids while the original bid was still live", got)
	}
	if got := machine.Status(); got != driverstate.BidPending {
		t.Fatalf("machine status = %s, want %s", got, driverstate.BidPending)
	}
	if st := session.State(); len(st.MyBids) != 1 || st.MyBids[0].ID != "bid-1" {
		t.Fatalf("MyBids = %+v, want the original bid kept", st.MyBids)
	}
}
