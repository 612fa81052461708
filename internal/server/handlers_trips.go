package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/hande/internal/bidding"
	"github.com/example/hande/internal/dispatch"
	"github.com/example/hande/internal/fare"
	"github.com/example/hande/internal/geo"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/observability"
	"github.com/example/hande/internal/storage"
)

type createTripRequest struct {
	Pickup      models.Location `json:"pickup"`
	Dropoff     models.Location `json:"dropoff"`
	VehicleType string          `json:"vehicle_type"`
}

// estimate combines haversine distance with the routing engine's duration
// when one is configured; otherwise duration falls back to 3 min/km.
func (s *Server) estimate(pickup, dropoff models.Location, vehicleType string) models.FareEstimate {
	est := fare.Estimate(pickup, dropoff)
	if secs, err := s.ETA.EstimateSeconds(pickup, dropoff); err == nil && secs > 0 {
		durationMin := int(math.Round(secs / 60))
		timeCharge := float64(durationMin) * fare.PerMinute
		total := fare.BaseFare + est.Breakdown.DistanceCharge + timeCharge
		if total < fare.MinFare {
			total = fare.MinFare
		}
		est.DurationMin = durationMin
		est.Breakdown.TimeCharge = timeCharge
		est.Breakdown.Total = total
		est.EstimatedFare = total
	}
	mult := fare.VehicleMultiplier(vehicleType)
	est.EstimatedFare *= mult
	est.Breakdown.Total = est.EstimatedFare
	return est
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !readJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.estimate(req.Pickup, req.Dropoff, req.VehicleType))
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Pickup.Latitude == 0 && req.Pickup.Longitude == 0 {
		writeError(w, http.StatusBadRequest, "pickup is required")
		return
	}
	if existing, err := s.Store.ActiveTripForUser(userID(r)); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "active trip already exists")
		return
	}

	est := s.estimate(req.Pickup, req.Dropoff, req.VehicleType)
	now := time.Now()
	t := &models.Trip{
		ID:          newID(),
		RiderID:     userID(r),
		Status:      models.TripPending,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		VehicleType: req.VehicleType,
		Fare:        est.EstimatedFare,
		DistanceKm:  est.DistanceKm,
		DurationMin: est.DurationMin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.SaveTrip(t); err != nil {
		s.logger.Error("save trip", "error", err)
		writeError(w, http.StatusInternalServerError, "save trip")
		return
	}
	s.TripGeo.Upsert(geo.Point{ID: t.ID, Latitude: t.Pickup.Latitude, Longitude: t.Pickup.Longitude})
	observability.TripsCreated.Inc()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	if t.RiderID != userID(r) && t.DriverID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCurrentTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Store.ActiveTripForUser(userID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "load trip")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTripHistory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	trips, total, err := s.Store.TripHistory(userID(r), limit, (page-1)*limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history")
		return
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": trips, "total": total})
}

func (s *Server) handleNearbyTrips(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	q := r.URL.Query()
	lat, _ := strconv.ParseFloat(q.Get("lat"), 64)
	lng, _ := strconv.ParseFloat(q.Get("lng"), 64)
	radius, _ := strconv.ParseFloat(q.Get("radius"), 64)
	if radius <= 0 {
		radius = s.cfg.NearbyRadiusKm
	}

	points := s.TripGeo.Nearby(lat, lng, radius, 50)
	out := make([]models.NearbyTrip, 0, len(points))
	for _, p := range points {
		t, err := s.Store.TripByID(p.ID)
		if err != nil || t.Status != models.TripPending {
			// stale index entry
			s.TripGeo.Remove(p.ID)
			continue
		}
		nt := models.NearbyTrip{
			ID:            t.ID,
			Pickup:        t.Pickup,
			Dropoff:       t.Dropoff,
			RiderID:       t.RiderID,
			EstimatedFare: t.Fare,
			DistanceKm:    fare.HaversineKm(lat, lng, t.Pickup.Latitude, t.Pickup.Longitude),
			CreatedAt:     t.CreatedAt,
		}
		if rider, err := s.Store.UserByID(t.RiderID); err == nil {
			nt.RiderName = rider.FirstName
			nt.RiderRating = rider.Rating
		}
		out = append(out, nt)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTripBids(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	if t.RiderID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return
	}
	bids, err := s.Store.BidsForTrip(t.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load bids")
		return
	}
	writeJSON(w, http.StatusOK, bidding.Rank(bids, s.Weights))
}

func (s *Server) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	if t.RiderID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return
	}
	if t.Status != models.TripPending {
		writeError(w, http.StatusConflict, "trip is not pending")
		return
	}
	bid, err := s.Store.BidByID(mux.Vars(r)["bid_id"])
	if err != nil || bid.TripID != t.ID {
		writeError(w, http.StatusNotFound, "bid not found")
		return
	}

	t.DriverID = bid.DriverID
	t.AcceptedBid = bid
	t.Status = models.TripAccepted
	t.Fare = bid.Amount
	t.UpdatedAt = time.Now()
	if err := s.Store.UpdateTrip(t); err != nil {
		writeError(w, http.StatusInternalServerError, "update trip")
		return
	}
	s.TripGeo.Remove(t.ID)
	// drop losing bids but keep the accepted one on record
	_ = s.Store.DeleteBidsForTrip(t.ID)
	_ = s.Store.SaveBid(bid)
	observability.BidsAccepted.Inc()
	_ = s.Notifier.Notify(bid.DriverID, dispatch.Event{Type: dispatch.EventBidAccepted, Payload: t})
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	if t.RiderID != userID(r) && t.DriverID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return
	}
	if t.Status.Terminal() {
		writeError(w, http.StatusConflict, "trip already finished")
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = readJSONOptional(r, &req)

	t.Status = models.TripCancelled
	t.UpdatedAt = time.Now()
	if err := s.Store.UpdateTrip(t); err != nil {
		writeError(w, http.StatusInternalServerError, "update trip")
		return
	}
	s.TripGeo.Remove(t.ID)
	_ = s.Store.DeleteBidsForTrip(t.ID)
	observability.TripsCancelled.Inc()
	s.notifyCounterpart(t, userID(r))
	writeJSON(w, http.StatusOK, map[string]string{"message": "trip cancelled"})
}

func (s *Server) handleRateTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return
	}
	if t.RiderID != userID(r) && t.DriverID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return
	}
	if t.Status != models.TripCompleted {
		writeError(w, http.StatusConflict, "trip is not completed")
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be 1-5")
		return
	}

	ratedID := t.DriverID
	if userID(r) == t.DriverID {
		ratedID = t.RiderID
	}
	if rated, err := s.Store.UserByID(ratedID); err == nil {
		// exponential moving average, recent trips weigh more
		rated.Rating = rated.Rating*0.8 + float64(req.Rating)*0.2
		_ = s.Store.UpdateUser(rated)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "rating recorded"})
}

// driver-side trip progression: accepted -> arriving/arrived -> in_progress -> completed

func (s *Server) advanceTrip(w http.ResponseWriter, r *http.Request, from []models.TripStatus, to models.TripStatus) (*models.Trip, bool) {
	t, ok := s.loadTrip(w, r)
	if !ok {
		return nil, false
	}
	if t.DriverID != userID(r) {
		writeError(w, http.StatusForbidden, "not your trip")
		return nil, false
	}
	allowed := false
	for _, f := range from {
		if t.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		writeError(w, http.StatusConflict, "trip is "+string(t.Status))
		return nil, false
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	if to == models.TripCompleted {
		now := time.Now()
		t.CompletedAt = &now
	}
	if err := s.Store.UpdateTrip(t); err != nil {
		writeError(w, http.StatusInternalServerError, "update trip")
		return nil, false
	}
	_ = s.Notifier.Notify(t.RiderID, dispatch.Event{Type: dispatch.EventTripStatus, Payload: t})
	return t, true
}

func (s *Server) handleArrive(w http.ResponseWriter, r *http.Request) {
	t, ok := s.advanceTrip(w, r, []models.TripStatus{models.TripAccepted, models.TripArriving}, models.TripArrived)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.advanceTrip(w, r, []models.TripStatus{models.TripArrived}, models.TripInProgress)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.advanceTrip(w, r, []models.TripStatus{models.TripInProgress}, models.TripCompleted)
	if !ok {
		return
	}
	observability.TripsCompleted.Inc()

	// record the rider's payment and bump the driver's running shift
	_ = s.Store.SavePayment(&models.PaymentRecord{
		ID:          newID(),
		UserID:      t.RiderID,
		Type:        "trip_payment",
		Amount:      t.Fare,
		Status:      "completed",
		Description: "trip " + t.ID,
		CreatedAt:   time.Now(),
	})
	if shift, err := s.Store.CurrentShift(t.DriverID); err == nil {
		shift.Earnings += t.Fare
		shift.Trips++
		_ = s.Store.SaveShift(shift)
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) loadTrip(w http.ResponseWriter, r *http.Request) (*models.Trip, bool) {
	t, err := s.Store.TripByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
		} else {
			writeError(w, http.StatusInternalServerError, "load trip")
		}
		return nil, false
	}
	return t, true
}

func (s *Server) notifyCounterpart(t *models.Trip, actorID string) {
	other := t.RiderID
	if actorID == t.RiderID {
		other = t.DriverID
	}
	if other != "" {
		_ = s.Notifier.Notify(other, dispatch.Event{Type: dispatch.EventTripStatus, Payload: t})
	}
}
