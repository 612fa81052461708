package store

import (
	"testing"

	"github.com/example/hande/internal/driverstate"
	"github.com/example/hande/internal/models"
)

func TestDispatchNotifiesSubscribers(t *testing.T) {
	s := New(0, func(old int, a Action) int { return old + a.(int) })
	var seen []int
	unsub := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Dispatch(1)
	s.Dispatch(2)
	unsub()
	s.Dispatch(3)

	if s.State() != 6 {
		t.Fatalf("state = %d, want 6", s.State())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Fatalf("seen = %v, want [1 3]", seen)
	}
}

func TestSetBidsReplacesAndDedupes(t *testing.T) {
	s := NewSession()
	s.Dispatch(SetBids{Bids: []models.Bid{{ID: "b1"}, {ID: "b2"}}})
	s.Dispatch(SetBids{Bids: []models.Bid{{ID: "b1"}, {ID: "b1"}, {ID: "b3"}}})

	bids := s.State().Bids
	if len(bids) != 2 {
		t.Fatalf("len(bids) = %d, want 2 (wholesale replace, deduped)", len(bids))
	}
	if bids[0].ID != "b1" || bids[1].ID != "b3" {
		t.Fatalf("bids = %v", bids)
	}
}

func TestDriverStatusGoesThroughTable(t *testing.T) {
	s := NewSession()
	s.Dispatch(SetDriverStatus{Status: driverstate.Online})
	if got := s.State().DriverStatus; got != driverstate.Offline {
		t.Fatalf("offline -> online must be dropped, got %s", got)
	}
	s.Dispatch(SetDriverStatus{Status: driverstate.GoingOnline})
	s.Dispatch(SetDriverStatus{Status: driverstate.Online})
	if got := s.State().DriverStatus; got != driverstate.Online {
		t.Fatalf("status = %s, want online", got)
	}
}

func TestUpdateTripStatusCopies(t *testing.T) {
	orig := &models.Trip{ID: "t1", Status: models.TripPending}
	s := NewSession()
	s.Dispatch(SetCurrentTrip{Trip: orig})
	s.Dispatch(UpdateTripStatus{Status: models.TripAccepted})

	if orig.Status != models.TripPending {
		t.Fatal("reducer mutated the dispatched trip")
	}
	if s.State().CurrentTrip.Status != models.TripAccepted {
		t.Fatalf("status = %s", s.State().CurrentTrip.Status)
	}
}

func TestClearTrip(t *testing.T) {
	s := NewSession()
	s.Dispatch(SetCurrentTrip{Trip: &models.Trip{ID: "t1"}})
	s.Dispatch(SetBids{Bids: []models.Bid{{ID: "b1"}}})
	s.Dispatch(ClearTrip{})
	st := s.State()
	if st.CurrentTrip != nil || st.Bids != nil || st.FareEstimate != nil {
		t.Fatalf("clear left state behind: %+v", st)
	}
}
