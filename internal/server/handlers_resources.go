package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/storage"
)

// documents

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.Store.Documents(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	var d models.Document
	if !readJSON(w, r, &d) {
		return
	}
	if d.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	d.ID = newID()
	d.DriverID = userID(r)
	d.Status = "pending"
	d.RejectionReason = ""
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	if err := s.Store.SaveDocument(&d); err != nil {
		writeError(w, http.StatusInternalServerError, "save document")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	d, err := s.Store.DocumentByID(mux.Vars(r)["id"])
	if err != nil || d.DriverID != userID(r) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err := s.Store.DeleteDocument(d.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// emergency contacts

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	cs, err := s.Store.Contacts(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load contacts")
		return
	}
	if cs == nil {
		cs = []models.EmergencyContact{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var c models.EmergencyContact
	if !readJSON(w, r, &c) {
		return
	}
	if c.Name == "" || c.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	c.ID = newID()
	c.UserID = userID(r)
	if err := s.Store.SaveContact(&c); err != nil {
		writeError(w, http.StatusInternalServerError, "save contact")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	existing, err := s.Store.ContactByID(mux.Vars(r)["id"])
	if err != nil || existing.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	var in models.EmergencyContact
	if !readJSON(w, r, &in) {
		return
	}
	existing.Name = in.Name
	existing.Phone = in.Phone
	existing.Relationship = in.Relationship
	existing.IsPrimary = in.IsPrimary
	if err := s.Store.SaveContact(existing); err != nil {
		writeError(w, http.StatusInternalServerError, "save contact")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	existing, err := s.Store.ContactByID(mux.Vars(r)["id"])
	if err != nil || existing.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err := s.Store.DeleteContact(existing.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// saved places

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Store.Places(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load places")
		return
	}
	if ps == nil {
		ps = []models.SavedPlace{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	var p models.SavedPlace
	if !readJSON(w, r, &p) {
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p.ID = newID()
	p.UserID = userID(r)
	if err := s.Store.SavePlace(&p); err != nil {
		writeError(w, http.StatusInternalServerError, "save place")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	existing, err := s.Store.PlaceByID(mux.Vars(r)["id"])
	if err != nil || existing.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	var in models.SavedPlace
	if !readJSON(w, r, &in) {
		return
	}
	existing.Name = in.Name
	existing.Address = in.Address
	existing.Latitude = in.Latitude
	existing.Longitude = in.Longitude
	existing.Type = in.Type
	existing.IsDefault = in.IsDefault
	if err := s.Store.SavePlace(existing); err != nil {
		writeError(w, http.StatusInternalServerError, "save place")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	existing, err := s.Store.PlaceByID(mux.Vars(r)["id"])
	if err != nil || existing.UserID != userID(r) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	if err := s.Store.DeletePlace(existing.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete place")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// wallet and payments

func (s *Server) wallet(uid string) *models.Wallet {
	w, err := s.Store.Wallet(uid)
	if err != nil {
		w = &models.Wallet{UserID: uid, Currency: "USD", LastUpdated: time.Now()}
	}
	return w
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet(userID(r)))
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Method string  `json:"payment_method"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	cents := int64(math.Round(req.Amount * 100))
	if _, err := s.Charger.Charge(r.Context(), cents, "usd", "", "wallet top-up"); err != nil {
		s.logger.Error("topup charge", "user_id", userID(r), "error", err)
		writeError(w, http.StatusBadGateway, "payment failed")
		return
	}

	wallet := s.wallet(userID(r))
	wallet.Balance += req.Amount
	wallet.LastUpdated = time.Now()
	if err := s.Store.SaveWallet(wallet); err != nil {
		writeError(w, http.StatusInternalServerError, "save wallet")
		return
	}
	_ = s.Store.SavePayment(&models.PaymentRecord{
		ID:        newID(),
		UserID:    userID(r),
		Type:      "wallet_topup",
		Amount:    req.Amount,
		Status:    "completed",
		CreatedAt: time.Now(),
	})
	writeJSON(w, http.StatusOK, wallet)
}

// debitWallet withdraws amount, recording the payment. Returns false when
// the balance does not cover it.
func (s *Server) debitWallet(uid string, amount float64, paymentType string) bool {
	wallet, err := s.Store.Wallet(uid)
	if err != nil || wallet.Balance < amount {
		return false
	}
	wallet.Balance -= amount
	wallet.LastUpdated = time.Now()
	if err := s.Store.SaveWallet(wallet); err != nil {
		return false
	}
	_ = s.Store.SavePayment(&models.PaymentRecord{
		ID:        newID(),
		UserID:    uid,
		Type:      paymentType,
		Amount:    amount,
		Status:    "completed",
		CreatedAt: time.Now(),
	})
	return true
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ps, err := s.Store.Payments(userID(r), limit)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "load payments")
		return
	}
	if ps == nil {
		ps = []models.PaymentRecord{}
	}
	writeJSON(w, http.StatusOK, ps)
}
