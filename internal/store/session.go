package store

import (
	"github.com/example/hande/internal/driverstate"
	"github.com/example/hande/internal/models"
)

// SessionState mirrors the backend's view of the active session: the
// rider's current trip and bids, the driver's lifecycle position, and
// the last known positions. All of it is an ephemeral cache of
// backend-owned truth.
type SessionState struct {
	CurrentTrip  *models.Trip
	Bids         []models.Bid
	FareEstimate *models.FareEstimate

	DriverStatus   driverstate.Status
	NearbyTrips    []models.NearbyTrip
	CurrentRequest *models.NearbyTrip
	MyBids         []models.Bid
	DailyFee       *models.DailyFee
	Earnings       *models.Earnings

	Position       *models.Location
	DriverPosition *models.Location
}

func NewSession() *Store[SessionState] {
	return New(SessionState{DriverStatus: driverstate.Offline}, ReduceSession)
}

// Actions understood by ReduceSession.
type (
	SetCurrentTrip   struct{ Trip *models.Trip }
	UpdateTripStatus struct{ Status models.TripStatus }
	SetBids          struct{ Bids []models.Bid }
	ClearTrip        struct{}
	SetFareEstimate  struct{ Estimate *models.FareEstimate }

	SetDriverStatus   struct{ Status driverstate.Status }
	SetNearbyTrips    struct{ Trips []models.NearbyTrip }
	SetCurrentRequest struct{ Trip *models.NearbyTrip }
	AddMyBid          struct{ Bid models.Bid }
	ClearMyBids       struct{}
	SetDailyFee       struct{ Fee *models.DailyFee }
	SetEarnings       struct{ Earnings *models.Earnings }
	ResetDriver       struct{}

	SetPosition       struct{ Loc models.Location }
	SetDriverPosition struct{ Loc models.Location }
)

// ReduceSession is the session reducer. Bid collections are replaced
// wholesale and deduplicated by id; driver status changes go through
// the transition table.
func ReduceSession(s SessionState, a Action) SessionState {
	switch v := a.(type) {
	case SetCurrentTrip:
		s.CurrentTrip = v.Trip
	case UpdateTripStatus:
		if s.CurrentTrip != nil {
			t := *s.CurrentTrip
			t.Status = v.Status
			s.CurrentTrip = &t
		}
	case SetBids:
		s.Bids = dedupeBids(v.Bids)
	case ClearTrip:
		s.CurrentTrip = nil
		s.Bids = nil
		s.FareEstimate = nil
		s.DriverPosition = nil
	case SetFareEstimate:
		s.FareEstimate = v.Estimate

	case SetDriverStatus:
		s.DriverStatus = driverstate.Next(s.DriverStatus, v.Status)
	case SetNearbyTrips:
		s.NearbyTrips = v.Trips
	case SetCurrentRequest:
		s.CurrentRequest = v.Trip
		if v.Trip != nil {
			s.DriverStatus = driverstate.Next(s.DriverStatus, driverstate.ViewingRequest)
		}
	case AddMyBid:
		for _, b := range s.MyBids {
			if b.ID == v.Bid.ID {
				return s
			}
		}
		s.MyBids = append(append([]models.Bid(nil), s.MyBids...), v.Bid)
	case ClearMyBids:
		s.MyBids = nil
	case SetDailyFee:
		s.DailyFee = v.Fee
	case SetEarnings:
		s.Earnings = v.Earnings
	case ResetDriver:
		s.DriverStatus = driverstate.Offline
		s.NearbyTrips = nil
		s.CurrentRequest = nil
		s.MyBids = nil

	case SetPosition:
		loc := v.Loc
		s.Position = &loc
	case SetDriverPosition:
		loc := v.Loc
		s.DriverPosition = &loc
	}
	return s
}

func dedupeBids(in []models.Bid) []models.Bid {
	seen := make(map[string]bool, len(in))
	out := make([]models.Bid, 0, len(in))
	for _, b := range in {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}
