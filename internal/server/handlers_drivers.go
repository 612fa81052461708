package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/hande/internal/dispatch"
	"github.com/example/hande/internal/fare"
	"github.com/example/hande/internal/geo"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/observability"
	"github.com/example/hande/internal/storage"
)

// driverFee loads the driver's fee record, synthesizing an unpaid one with
// no grace for drivers whose window lapsed before any record existed.
func (s *Server) driverFee(driverID string) models.DailyFee {
	if fee, err := s.Store.DailyFee(driverID); err == nil {
		return *fee
	}
	return models.DailyFee{Amount: s.cfg.DailyFeeAmount, DueDate: time.Now()}
}

func (s *Server) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	fee := s.driverFee(userID(r))
	if !fee.Payable(time.Now()) {
		writeError(w, http.StatusPaymentRequired, "daily fee unpaid")
		return
	}
	s.DriverGeo.Upsert(geo.Point{ID: userID(r), Latitude: req.Latitude, Longitude: req.Longitude})
	observability.DriversOnline.Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": "online"})
}

func (s *Server) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	s.DriverGeo.Remove(userID(r))
	observability.DriversOnline.Dec()
	writeJSON(w, http.StatusOK, map[string]string{"message": "offline"})
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Heading   float64 `json:"heading"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	id := userID(r)
	s.DriverGeo.Upsert(geo.Point{ID: id, Latitude: req.Latitude, Longitude: req.Longitude})
	observability.LocationUpdates.Inc()

	if s.Publisher != nil {
		ev := models.DriverLocationEvent{
			DriverID: id,
			Location: models.Location{Latitude: req.Latitude, Longitude: req.Longitude},
			Heading:  req.Heading,
			Online:   true,
			At:       time.Now(),
		}
		if err := s.Publisher.PublishLocation(ev); err != nil {
			s.logger.Warn("publish location", "driver_id", id, "error", err)
		}
	}

	// mirror onto the active trip so the rider's poll sees the car move
	if t, err := s.Store.ActiveTripForUser(id); err == nil && t.DriverID == id {
		t.DriverLocation = &models.Location{Latitude: req.Latitude, Longitude: req.Longitude}
		t.UpdatedAt = time.Now()
		if err := s.Store.UpdateTrip(t); err == nil {
			_ = s.Notifier.Notify(t.RiderID, dispatch.Event{Type: dispatch.EventDriverMoved, Payload: t.DriverLocation})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveTrip(w http.ResponseWriter, r *http.Request) {
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

type placeBidRequest struct {
	TripID     string  `json:"trip_id"`
	Amount     float64 `json:"amount"`
	ETAMinutes int     `json:"eta_minutes"`
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	var req placeBidRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	t, err := s.Store.TripByID(req.TripID)
	if err != nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	if t.Status != models.TripPending {
		writeError(w, http.StatusConflict, "trip is not open for bids")
		return
	}
	if t.RiderID == userID(r) {
		writeError(w, http.StatusBadRequest, "cannot bid on own trip")
		return
	}

	driver, err := s.Store.UserByID(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "driver not found")
		return
	}
	b := &models.Bid{
		ID:           newID(),
		TripID:       t.ID,
		DriverID:     driver.ID,
		DriverName:   driver.FirstName,
		DriverRating: driver.Rating,
		Amount:       req.Amount,
		ETAMinutes:   req.ETAMinutes,
		CreatedAt:    time.Now(),
	}
	if v := s.activeVehicle(driver.ID); v != nil {
		b.VehicleType = v.Type
		b.VehiclePlate = v.LicensePlate
	}
	if b.ETAMinutes == 0 {
		if p, ok := s.driverPoint(driver.ID); ok {
			km := fare.HaversineKm(p.Latitude, p.Longitude, t.Pickup.Latitude, t.Pickup.Longitude)
			b.ETAMinutes = int(math.Ceil(km * fare.MinutesPerKm))
		}
	}
	if err := s.Store.SaveBid(b); err != nil {
		writeError(w, http.StatusInternalServerError, "save bid")
		return
	}
	observability.BidsPlaced.Inc()
	_ = s.Notifier.Notify(t.RiderID, dispatch.Event{Type: dispatch.EventBidPlaced, Payload: b})
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleMyBids(w http.ResponseWriter, r *http.Request) {
	bids, err := s.Store.BidsByDriver(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load bids")
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	writeJSON(w, http.StatusOK, bids)
}

func (s *Server) activeVehicle(driverID string) *models.Vehicle {
	vs, err := s.Store.Vehicles(driverID)
	if err != nil {
		return nil
	}
	for i := range vs {
		if vs[i].IsActive {
			return &vs[i]
		}
	}
	return nil
}

func (s *Server) driverPoint(driverID string) (geo.Point, bool) {
	// cheap lookup: the index only answers nearby queries, so ask around
	// the whole planet for this one id
	for _, p := range s.DriverGeo.Nearby(0, 0, 40075, 1000) {
		if p.ID == driverID {
			return p, true
		}
	}
	return geo.Point{}, false
}

// daily fee

func (s *Server) handleFeeStatus(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	fee := s.driverFee(userID(r))
	// a paid fee lapses when its covered window ends
	if fee.IsPaid && time.Now().After(fee.DueDate) {
		fee.IsPaid = false
		grace := fee.DueDate.Add(time.Duration(s.cfg.GraceHours) * time.Hour)
		fee.GraceEndsAt = &grace
		_ = s.Store.SetDailyFee(userID(r), fee)
	}
	writeJSON(w, http.StatusOK, fee)
}

func (s *Server) handlePayFee(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	var req struct {
		Days   int    `json:"days"`
		Method string `json:"payment_method"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Days <= 0 {
		req.Days = 1
	}
	fee := s.driverFee(userID(r))
	amount := float64(req.Days)*s.cfg.DailyFeeAmount + fee.Penalty

	if req.Method != "wallet" {
		cents := int64(math.Round(amount * 100))
		if _, err := s.Charger.Charge(r.Context(), cents, "usd", "", "daily fee"); err != nil {
			s.logger.Error("fee charge", "driver_id", userID(r), "error", err)
			writeError(w, http.StatusBadGateway, "payment failed")
			return
		}
	} else if !s.debitWallet(userID(r), amount, "daily_fee") {
		writeError(w, http.StatusPaymentRequired, "insufficient wallet balance")
		return
	}

	now := time.Now()
	payment := &models.DailyFeePayment{
		ID:         newID(),
		DriverID:   userID(r),
		Amount:     amount,
		Days:       req.Days,
		Method:     req.Method,
		PaidAt:     now,
		ValidUntil: now.Add(time.Duration(req.Days) * 24 * time.Hour),
	}
	if err := s.Store.SaveFeePayment(payment); err != nil {
		writeError(w, http.StatusInternalServerError, "save payment")
		return
	}
	_ = s.Store.SetDailyFee(userID(r), models.DailyFee{
		IsPaid:  true,
		Amount:  s.cfg.DailyFeeAmount,
		DueDate: payment.ValidUntil,
	})
	observability.FeesPaid.Inc()
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleFeeHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.Store.FeePayments(userID(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history")
		return
	}
	if history == nil {
		history = []models.DailyFeePayment{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	e, err := s.Store.Earnings(userID(r), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load earnings")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// shifts

func (s *Server) handleStartShift(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	if _, err := s.Store.CurrentShift(userID(r)); err == nil {
		writeError(w, http.StatusConflict, "shift already running")
		return
	}
	sh := &models.Shift{ID: newID(), DriverID: userID(r), StartedAt: time.Now()}
	if err := s.Store.SaveShift(sh); err != nil {
		writeError(w, http.StatusInternalServerError, "save shift")
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) handleEndShift(w http.ResponseWriter, r *http.Request) {
	sh, err := s.Store.CurrentShift(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "no running shift")
		return
	}
	now := time.Now()
	sh.EndedAt = &now
	if err := s.Store.SaveShift(sh); err != nil {
		writeError(w, http.StatusInternalServerError, "save shift")
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleCurrentShift(w http.ResponseWriter, r *http.Request) {
	sh, err := s.Store.CurrentShift(userID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "load shift")
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// vehicles

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := s.Store.Vehicles(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load vehicles")
		return
	}
	if vs == nil {
		vs = []models.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	if !isDriver(r) {
		writeError(w, http.StatusForbidden, "drivers only")
		return
	}
	var v models.Vehicle
	if !readJSON(w, r, &v) {
		return
	}
	if v.Make == "" || v.Model == "" || v.LicensePlate == "" {
		writeError(w, http.StatusBadRequest, "make, model and license_plate are required")
		return
	}
	v.ID = newID()
	v.DriverID = userID(r)
	v.IsVerified = false
	v.CreatedAt = time.Now()
	if existing, err := s.Store.Vehicles(v.DriverID); err == nil && len(existing) == 0 {
		v.IsActive = true // first vehicle becomes the active one
	}
	if err := s.Store.SaveVehicle(&v); err != nil {
		writeError(w, http.StatusInternalServerError, "save vehicle")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) loadOwnVehicle(w http.ResponseWriter, r *http.Request) (*models.Vehicle, bool) {
	v, err := s.Store.VehicleByID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return nil, false
	}
	if v.DriverID != userID(r) {
		writeError(w, http.StatusForbidden, "not your vehicle")
		return nil, false
	}
	return v, true
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadOwnVehicle(w, r)
	if !ok {
		return
	}
	var in models.Vehicle
	if !readJSON(w, r, &in) {
		return
	}
	v.Make = in.Make
	v.Model = in.Model
	v.Year = in.Year
	v.Color = in.Color
	v.LicensePlate = in.LicensePlate
	v.Type = in.Type
	if err := s.Store.SaveVehicle(v); err != nil {
		writeError(w, http.StatusInternalServerError, "save vehicle")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadOwnVehicle(w, r)
	if !ok {
		return
	}
	if err := s.Store.DeleteVehicle(v.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete vehicle")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateVehicle(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadOwnVehicle(w, r)
	if !ok {
		return
	}
	v.IsActive = true
	if err := s.Store.SaveVehicle(v); err != nil {
		writeError(w, http.StatusInternalServerError, "save vehicle")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
