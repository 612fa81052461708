package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/hande/internal/auth"
	"github.com/example/hande/internal/models"
	"github.com/example/hande/internal/storage"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	UserType  string `json:"user_type"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, forceDriver bool) {
	var req registerRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "email, password and first_name are required")
		return
	}
	ut := models.UserType(req.UserType)
	if forceDriver {
		ut = models.UserDriver
	}
	if ut != models.UserRider && ut != models.UserDriver {
		writeError(w, http.StatusBadRequest, "user_type must be rider or driver")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}
	u := &models.User{
		ID:        newID(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		UserType:  ut,
		Rating:    5.0,
		CreatedAt: time.Now(),
	}
	if err := s.Store.CreateUser(u, hash); err != nil {
		if storage.IsExists(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "create user")
		return
	}

	// every account gets an empty wallet
	_ = s.Store.SaveWallet(&models.Wallet{UserID: u.ID, Currency: "USD", LastUpdated: time.Now()})

	// new drivers start inside the fee grace window so they can try the
	// platform before the first payment
	if ut == models.UserDriver {
		grace := time.Now().Add(time.Duration(s.cfg.GraceHours) * time.Hour)
		_ = s.Store.SetDailyFee(u.ID, models.DailyFee{
			Amount:      s.cfg.DailyFeeAmount,
			DueDate:     time.Now(),
			GraceEndsAt: &grace,
		})
	}

	token, err := s.Auth.Issue(u.ID, string(u.UserType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: *u})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, false)
}

func (s *Server) handleRegisterDriver(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, true)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	u, hash, err := s.Store.UserByEmail(req.Email)
	if err != nil || !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.Auth.Issue(u.ID, string(u.UserType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: *u})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.Store.UserByID(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Tokens are stateless; logout just acknowledges so clients can clear
// their copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	ut := models.UserType(req.Role)
	if ut != models.UserRider && ut != models.UserDriver {
		writeError(w, http.StatusBadRequest, "role must be rider or driver")
		return
	}
	u, err := s.Store.UserByID(userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	u.UserType = ut
	if err := s.Store.UpdateUser(u); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "update user")
		return
	}
	token, err := s.Auth.Issue(u.ID, string(u.UserType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: *u})
}
