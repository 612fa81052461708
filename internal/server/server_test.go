package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/hande/internal/config"
	"github.com/example/hande/internal/geo"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/storage"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.ServerConfig{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		DailyFeeAmount: 1.0,
		GraceHours:     24,
		NearbyRadiusKm: 10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(cfg, logger, storage.NewMemoryStore(), geo.NewMemoryIndex(), geo.NewMemoryIndex())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func doReq(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func register(t *testing.T, base, email, userType string) (token string, user models.User) {
	t.Helper()
	path := "/auth/register"
	if userType == "driver" {
		path = "/auth/register/driver"
	}
	resp, data := doReq(t, "POST", base+path, "", map[string]string{
		"email":      email,
		"password":   "pw123456",
		"first_name": "Test",
		"last_name":  "User",
		"user_type":  userType,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, resp.StatusCode, data)
	}
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return out.Token, out.User
}

func TestAuthRequired(t *testing.T) {
	_, ts := testServer(t)
	resp, _ := doReq(t, "GET", ts.URL+"/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	_, ts := testServer(t)
	token, user := register(t, ts.URL, "rider@example.com", "rider")
	if user.UserType != models.UserRider {
		t.Fatalf("expected rider, got %s", user.UserType)
	}

	resp, data := doReq(t, "GET", ts.URL+"/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", resp.StatusCode, data)
	}

	resp, _ = doReq(t, "POST", ts.URL+"/auth/register", "", map[string]string{
		"email": "rider@example.com", "password": "pw123456", "first_name": "Dup", "user_type": "rider",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", resp.StatusCode)
	}

	resp, data = doReq(t, "POST", ts.URL+"/auth/login", "", map[string]string{
		"email": "rider@example.com", "password": "pw123456",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", resp.StatusCode, data)
	}
	resp, _ = doReq(t, "POST", ts.URL+"/auth/login", "", map[string]string{
		"email": "rider@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.StatusCode)
	}
}

func TestTripBidFlow(t *testing.T) {
	_, ts := testServer(t)
	riderTok, _ := register(t, ts.URL, "rider@example.com", "rider")
	driverTok, driver := register(t, ts.URL, "driver@example.com", "driver")

	// driver can go online inside the registration grace window
	resp, data := doReq(t, "POST", ts.URL+"/drivers/online", driverTok, map[string]float64{
		"latitude": -17.8292, "longitude": 31.0522,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("go online: %d %s", resp.StatusCode, data)
	}

	// rider requests a trip
	resp, data = doReq(t, "POST", ts.URL+"/trips", riderTok, map[string]any{
		"pickup":  models.Location{Latitude: -17.8292, Longitude: 31.0522},
		"dropoff": models.Location{Latitude: -17.8200, Longitude: 31.0600},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip: %d %s", resp.StatusCode, data)
	}
	var trip models.Trip
	json.Unmarshal(data, &trip)
	if trip.Status != models.TripPending {
		t.Fatalf("expected pending, got %s", trip.Status)
	}
	if trip.Fare < 5.0 {
		t.Fatalf("fare below minimum: %f", trip.Fare)
	}

	// a second active trip is refused
	resp, _ = doReq(t, "POST", ts.URL+"/trips", riderTok, map[string]any{
		"pickup": models.Location{Latitude: -17.8, Longitude: 31.0},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second trip: expected 409, got %d", resp.StatusCode)
	}

	// driver sees the trip nearby
	resp, data = doReq(t, "GET", ts.URL+"/trips/nearby?lat=-17.8292&lng=31.0522&radius=10", driverTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby: %d %s", resp.StatusCode, data)
	}
	var nearby []models.NearbyTrip
	json.Unmarshal(data, &nearby)
	if len(nearby) != 1 || nearby[0].ID != trip.ID {
		t.Fatalf("expected the trip nearby, got %+v", nearby)
	}

	// driver bids
	resp, data = doReq(t, "POST", ts.URL+"/bids", driverTok, map[string]any{
		"trip_id": trip.ID, "amount": 7.5, "eta_minutes": 4,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place bid: %d %s", resp.StatusCode, data)
	}
	var bid models.Bid
	json.Unmarshal(data, &bid)
	if bid.DriverID != driver.ID {
		t.Fatalf("bid driver mismatch: %s", bid.DriverID)
	}

	// rider lists and accepts
	resp, data = doReq(t, "GET", ts.URL+"/trips/"+trip.ID+"/bids", riderTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list bids: %d %s", resp.StatusCode, data)
	}
	var bids []models.Bid
	json.Unmarshal(data, &bids)
	if len(bids) != 1 {
		t.Fatalf("expected 1 bid, got %d", len(bids))
	}
	resp, data = doReq(t, "POST", fmt.Sprintf("%s/trips/%s/bids/%s/accept", ts.URL, trip.ID, bid.ID), riderTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept bid: %d %s", resp.StatusCode, data)
	}
	var accepted models.Trip
	json.Unmarshal(data, &accepted)
	if accepted.Status != models.TripAccepted || accepted.DriverID != driver.ID {
		t.Fatalf("unexpected accepted trip: %+v", accepted)
	}
	if accepted.Fare != 7.5 {
		t.Fatalf("fare should match the bid: %f", accepted.Fare)
	}

	// accepted trip no longer shows nearby
	resp, data = doReq(t, "GET", ts.URL+"/trips/nearby?lat=-17.8292&lng=31.0522&radius=10", driverTok, nil)
	json.Unmarshal(data, &nearby)
	if len(nearby) != 0 {
		t.Fatalf("accepted trip still nearby: %+v", nearby)
	}

	// driver runs the trip to completion
	for _, step := range []struct {
		path string
		want models.TripStatus
	}{
		{"arrive", models.TripArrived},
		{"start", models.TripInProgress},
		{"complete", models.TripCompleted},
	} {
		resp, data = doReq(t, "POST", ts.URL+"/trips/"+trip.ID+"/"+step.path, driverTok, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", step.path, resp.StatusCode, data)
		}
		var cur models.Trip
		json.Unmarshal(data, &cur)
		if cur.Status != step.want {
			t.Fatalf("%s: expected %s, got %s", step.path, step.want, cur.Status)
		}
	}

	// completing out of order is refused
	resp, _ = doReq(t, "POST", ts.URL+"/trips/"+trip.ID+"/start", driverTok, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("restart completed trip: expected 409, got %d", resp.StatusCode)
	}

	// earnings reflect the completed fare
	resp, data = doReq(t, "GET", ts.URL+"/drivers/earnings", driverTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("earnings: %d %s", resp.StatusCode, data)
	}
	var earnings models.Earnings
	json.Unmarshal(data, &earnings)
	if earnings.Today != 7.5 || earnings.TotalTrips != 1 {
		t.Fatalf("unexpected earnings: %+v", earnings)
	}

	// rider rates the driver
	resp, data = doReq(t, "POST", ts.URL+"/trips/"+trip.ID+"/rate", riderTok, map[string]any{"rating": 5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rate: %d %s", resp.StatusCode, data)
	}
}

func TestGoOnlineBlockedWhenFeeLapsed(t *testing.T) {
	srv, ts := testServer(t)
	driverTok, driver := register(t, ts.URL, "driver@example.com", "driver")

	// fee unpaid and grace exhausted
	if err := srv.Store.SetDailyFee(driver.ID, models.DailyFee{Amount: 1.0, DueDate: time.Now().Add(-48 * time.Hour)}); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	resp, data := doReq(t, "POST", ts.URL+"/drivers/online", driverTok, map[string]float64{"latitude": 0, "longitude": 0})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d %s", resp.StatusCode, data)
	}

	// pay, then go online
	resp, data = doReq(t, "POST", ts.URL+"/drivers/daily-fee/pay", driverTok, map[string]any{"days": 1, "payment_method": "card"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay fee: %d %s", resp.StatusCode, data)
	}
	var payment models.DailyFeePayment
	json.Unmarshal(data, &payment)
	if payment.Amount != 1.0 {
		t.Fatalf("expected $1 fee, got %f", payment.Amount)
	}
	resp, _ = doReq(t, "POST", ts.URL+"/drivers/online", driverTok, map[string]float64{"latitude": 0, "longitude": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("go online after paying: %d", resp.StatusCode)
	}
}

func TestRiderCannotUseDriverEndpoints(t *testing.T) {
	_, ts := testServer(t)
	riderTok, _ := register(t, ts.URL, "rider@example.com", "rider")
	for _, path := range []string{"/drivers/online", "/drivers/location"} {
		resp, _ := doReq(t, "POST", ts.URL+path, riderTok, map[string]float64{"latitude": 0, "longitude": 0})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, resp.StatusCode)
		}
	}
}

func TestDriverLocationUpdatesActiveTrip(t *testing.T) {
	srv, ts := testServer(t)
	riderTok, _ := register(t, ts.URL, "rider@example.com", "rider")
	driverTok, driver := register(t, ts.URL, "driver@example.com", "driver")

	doReq(t, "POST", ts.URL+"/drivers/online", driverTok, map[string]float64{"latitude": 0, "longitude": 0})
	_, data := doReq(t, "POST", ts.URL+"/trips", riderTok, map[string]any{
		"pickup":  models.Location{Latitude: 0.01, Longitude: 0.01},
		"dropoff": models.Location{Latitude: 0.05, Longitude: 0.05},
	})
	var trip models.Trip
	json.Unmarshal(data, &trip)
	_, data = doReq(t, "POST", ts.URL+"/bids", driverTok, map[string]any{"trip_id": trip.ID, "amount": 6.0})
	var bid models.Bid
	json.Unmarshal(data, &bid)
	doReq(t, "POST", fmt.Sprintf("%s/trips/%s/bids/%s/accept", ts.URL, trip.ID, bid.ID), riderTok, nil)

	resp, _ := doReq(t, "POST", ts.URL+"/drivers/location", driverTok, map[string]float64{
		"latitude": 0.005, "longitude": 0.006, "heading": 90,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("location: %d", resp.StatusCode)
	}

	got, err := srv.Store.TripByID(trip.ID)
	if err != nil {
		t.Fatalf("load trip: %v", err)
	}
	if got.DriverLocation == nil || got.DriverLocation.Latitude != 0.005 {
		t.Fatalf("driver location not mirrored onto trip: %+v", got.DriverLocation)
	}
	if got.DriverID != driver.ID {
		t.Fatalf("driver mismatch: %s", got.DriverID)
	}

	// rider's poll picks it up
	resp, data = doReq(t, "GET", ts.URL+"/trips/current", riderTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current trip: %d", resp.StatusCode)
	}
	var cur models.Trip
	json.Unmarshal(data, &cur)
	if cur.DriverLocation == nil || cur.DriverLocation.Longitude != 0.006 {
		t.Fatalf("rider does not see driver position: %+v", cur.DriverLocation)
	}
}

func TestWalletTopUpAndFeeFromWallet(t *testing.T) {
	srv, ts := testServer(t)
	driverTok, driver := register(t, ts.URL, "driver@example.com", "driver")

	resp, data := doReq(t, "POST", ts.URL+"/payments/wallet/topup", driverTok, map[string]any{
		"amount": 10.0, "payment_method": "card",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("topup: %d %s", resp.StatusCode, data)
	}
	var wallet models.Wallet
	json.Unmarshal(data, &wallet)
	if wallet.Balance != 10.0 {
		t.Fatalf("expected balance 10, got %f", wallet.Balance)
	}

	srv.Store.SetDailyFee(driver.ID, models.DailyFee{Amount: 1.0, DueDate: time.Now().Add(-48 * time.Hour)})
	resp, data = doReq(t, "POST", ts.URL+"/drivers/daily-fee/pay", driverTok, map[string]any{
		"days": 3, "payment_method": "wallet",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay from wallet: %d %s", resp.StatusCode, data)
	}

	resp, data = doReq(t, "GET", ts.URL+"/payments/wallet", driverTok, nil)
	json.Unmarshal(data, &wallet)
	if wallet.Balance != 7.0 {
		t.Fatalf("expected balance 7 after 3-day fee, got %f", wallet.Balance)
	}

	resp, data = doReq(t, "GET", ts.URL+"/payments/history?limit=10", driverTok, nil)
	var history []models.PaymentRecord
	json.Unmarshal(data, &history)
	if len(history) != 2 {
		t.Fatalf("expected topup + fee records, got %d", len(history))
	}
}

func TestVehicleLifecycle(t *testing.T) {
	_, ts := testServer(t)
	driverTok, _ := register(t, ts.URL, "driver@example.com", "driver")

	resp, data := doReq(t, "POST", ts.URL+"/drivers/vehicles", driverTok, models.Vehicle{
		Make: "Toyota", Model: "Vitz", Year: 2016, LicensePlate: "ABX 1234", Type: "hatchback",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create vehicle: %d %s", resp.StatusCode, data)
	}
	var first models.Vehicle
	json.Unmarshal(data, &first)
	if !first.IsActive {
		t.Fatal("first vehicle should be active")
	}

	resp, data = doReq(t, "POST", ts.URL+"/drivers/vehicles", driverTok, models.Vehicle{
		Make: "Honda", Model: "Fit", Year: 2018, LicensePlate: "ABX 5678", Type: "hatchback",
	})
	var second models.Vehicle
	json.Unmarshal(data, &second)
	if second.IsActive {
		t.Fatal("second vehicle should start inactive")
	}

	resp, _ = doReq(t, "POST", ts.URL+"/drivers/vehicles/"+second.ID+"/activate", driverTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate: %d", resp.StatusCode)
	}
	_, data = doReq(t, "GET", ts.URL+"/drivers/vehicles", driverTok, nil)
	var vs []models.Vehicle
	json.Unmarshal(data, &vs)
	activeCount := 0
	for _, v := range vs {
		if v.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active vehicle, got %d", activeCount)
	}
}

func TestEstimateUsesVehicleMultiplier(t *testing.T) {
	_, ts := testServer(t)
	riderTok, _ := register(t, ts.URL, "rider@example.com", "rider")

	body := map[string]any{
		"pickup":  models.Location{Latitude: -17.8292, Longitude: 31.0522},
		"dropoff": models.Location{Latitude: -17.7, Longitude: 31.2},
	}
	_, data := doReq(t, "POST", ts.URL+"/trips/estimate", riderTok, body)
	var std models.FareEstimate
	json.Unmarshal(data, &std)

	body["vehicle_type"] = "suv"
	_, data = doReq(t, "POST", ts.URL+"/trips/estimate", riderTok, body)
	var suv models.FareEstimate
	json.Unmarshal(data, &suv)

	if suv.EstimatedFare <= std.EstimatedFare {
		t.Fatalf("suv (%f) should cost more than standard (%f)", suv.EstimatedFare, std.EstimatedFare)
	}
}

func TestCancelTrip(t *testing.T) {
	_, ts := testServer(t)
	riderTok, _ := register(t, ts.URL, "rider@example.com", "rider")

	_, data := doReq(t, "POST", ts.URL+"/trips", riderTok, map[string]any{
		"pickup":  models.Location{Latitude: 1, Longitude: 1},
		"dropoff": models.Location{Latitude: 2, Longitude: 2},
	})
	var trip models.Trip
	json.Unmarshal(data, &trip)

	resp, _ := doReq(t, "POST", ts.URL+"/trips/"+trip.ID+"/cancel", riderTok, map[string]string{"reason": "changed my mind"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: %d", resp.StatusCode)
	}
	resp, _ = doReq(t, "POST", ts.URL+"/trips/"+trip.ID+"/cancel", riderTok, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double cancel: expected 409, got %d", resp.StatusCode)
	}

	// cancelled trip is no longer current
	resp, data = doReq(t, "GET", ts.URL+"/trips/current", riderTok, nil)
	if string(bytes.TrimSpace(data)) != "null" {
		t.Fatalf("expected null current trip, got %s", data)
	}
}
