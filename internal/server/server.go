// Package server is the HTTP API: auth, trips and bidding, driver
// lifecycle, fees, wallets and the websocket event push.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/hande/internal/auth"
	"github.com/example/hande/internal/bidding"
	"github.com/example/hande/internal/config"
	"github.com/example/hande/internal/dispatch"
	"github.com/example/hande/internal/eta"
	"github.com/example/hande/internal/geo"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/payments"
	"github.com/example/hande/internal/storage"
)

// LocationPublisher forwards driver pings into the ingest pipeline.
type LocationPublisher interface {
	PublishLocation(ev models.DriverLocationEvent) error
}

type Server struct {
	Store     storage.Store
	DriverGeo geo.Index
	TripGeo   geo.Index
	Publisher LocationPublisher // optional
	Notifier  dispatch.Notifier
	WSReg     *dispatch.WSRegistry
	Auth      *auth.Manager
	Charger   payments.Charger
	ETA       eta.Estimator
	Weights   bidding.Weights

	cfg    config.ServerConfig
	logger *slog.Logger
	mux    *mux.Router
}

func New(cfg config.ServerConfig, logger *slog.Logger, store storage.Store, driverGeo, tripGeo geo.Index) *Server {
	wsreg := dispatch.NewWSRegistry(logger)
	s := &Server{
		Store:     store,
		DriverGeo: driverGeo,
		TripGeo:   tripGeo,
		Notifier:  dispatch.NewPushDispatcher(wsreg, ""),
		WSReg:     wsreg,
		Auth:      auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Charger:   payments.NoopCharger{},
		ETA:       &eta.Cached{},
		Weights:   bidding.DefaultWeights,
		cfg:       cfg,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Use(s.recoverMiddleware)
	s.mux.Use(s.requestIDMiddleware)
	s.mux.Use(s.observabilityMiddleware)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)

	s.mux.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	s.mux.HandleFunc("/auth/register/driver", s.handleRegisterDriver).Methods("POST")
	s.mux.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	api := s.mux.NewRoute().Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/auth/me", s.handleMe).Methods("GET")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/auth/switch-role", s.handleSwitchRole).Methods("POST")

	api.HandleFunc("/trips", s.handleCreateTrip).Methods("POST")
	api.HandleFunc("/trips/estimate", s.handleEstimate).Methods("POST")
	api.HandleFunc("/trips/current", s.handleCurrentTrip).Methods("GET")
	api.HandleFunc("/trips/history", s.handleTripHistory).Methods("GET")
	api.HandleFunc("/trips/nearby", s.handleNearbyTrips).Methods("GET")
	api.HandleFunc("/trips/{id}", s.handleGetTrip).Methods("GET")
	api.HandleFunc("/trips/{id}/bids", s.handleTripBids).Methods("GET")
	api.HandleFunc("/trips/{id}/bids/{bid_id}/accept", s.handleAcceptBid).Methods("POST")
	api.HandleFunc("/trips/{id}/cancel", s.handleCancelTrip).Methods("POST")
	api.HandleFunc("/trips/{id}/rate", s.handleRateTrip).Methods("POST")
	api.HandleFunc("/trips/{id}/arrive", s.handleArrive).Methods("POST")
	api.HandleFunc("/trips/{id}/start", s.handleStartTrip).Methods("POST")
	api.HandleFunc("/trips/{id}/complete", s.handleCompleteTrip).Methods("POST")

	api.HandleFunc("/bids", s.handlePlaceBid).Methods("POST")
	api.HandleFunc("/bids/my-bids", s.handleMyBids).Methods("GET")

	api.HandleFunc("/drivers/online", s.handleGoOnline).Methods("POST")
	api.HandleFunc("/drivers/offline", s.handleGoOffline).Methods("POST")
	api.HandleFunc("/drivers/location", s.handleDriverLocation).Methods("POST")
	api.HandleFunc("/drivers/active-trip", s.handleActiveTrip).Methods("GET")
	api.HandleFunc("/drivers/daily-fee/status", s.handleFeeStatus).Methods("GET")
	api.HandleFunc("/drivers/daily-fee/pay", s.handlePayFee).Methods("POST")
	api.HandleFunc("/drivers/daily-fee/history", s.handleFeeHistory).Methods("GET")
	api.HandleFunc("/drivers/earnings", s.handleEarnings).Methods("GET")
	api.HandleFunc("/drivers/shift/start", s.handleStartShift).Methods("POST")
	api.HandleFunc("/drivers/shift/end", s.handleEndShift).Methods("POST")
	api.HandleFunc("/drivers/shift/current", s.handleCurrentShift).Methods("GET")
	api.HandleFunc("/drivers/vehicles", s.handleListVehicles).Methods("GET")
	api.HandleFunc("/drivers/vehicles", s.handleCreateVehicle).Methods("POST")
	api.HandleFunc("/drivers/vehicles/{id}", s.handleUpdateVehicle).Methods("PUT")
	api.HandleFunc("/drivers/vehicles/{id}", s.handleDeleteVehicle).Methods("DELETE")
	api.HandleFunc("/drivers/vehicles/{id}/activate", s.handleActivateVehicle).Methods("POST")

	api.HandleFunc("/documents", s.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents", s.handleUploadDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods("DELETE")

	api.HandleFunc("/emergency-contacts", s.handleListContacts).Methods("GET")
	api.HandleFunc("/emergency-contacts", s.handleCreateContact).Methods("POST")
	api.HandleFunc("/emergency-contacts/{id}", s.handleUpdateContact).Methods("PUT")
	api.HandleFunc("/emergency-contacts/{id}", s.handleDeleteContact).Methods("DELETE")

	api.HandleFunc("/places", s.handleListPlaces).Methods("GET")
	api.HandleFunc("/places", s.handleCreatePlace).Methods("POST")
	api.HandleFunc("/places/{id}", s.handleUpdatePlace).Methods("PUT")
	api.HandleFunc("/places/{id}", s.handleDeletePlace).Methods("DELETE")

	api.HandleFunc("/payments/wallet", s.handleWallet).Methods("GET")
	api.HandleFunc("/payments/wallet/topup", s.handleTopUp).Methods("POST")
	api.HandleFunc("/payments/history", s.handlePaymentHistory).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// readJSON decodes the request body strictly; unknown or malformed input
// is a client error, not something to guess around.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// readJSONOptional tolerates an empty body on endpoints whose input is
// optional.
func readJSONOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func newID() string { return uuid.NewString() }
