package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/hande/internal/fare"
	"github.com/example/hande/internal/models"
)

func TestBearerTokenInstalledAfterLogin(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			json.NewEncoder(w).Encode(AuthResponse{Token: "tok-1", User: models.User{ID: "u1"}})
		case "/auth/me":
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(models.User{ID: "u1"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestAPIErrorCarriesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(402)
		json.NewEncoder(w).Encode(map[string]string{"message": "daily fee unpaid"})
	}))
	defer srv.Close()

	err := New(srv.URL).GoOnline(context.Background(), models.Location{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Status != 402 || apiErr.Message != "daily fee unpaid" {
		t.Fatalf("got %+v", apiErr)
	}
}

func TestMalformedBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 12,`)) // truncated
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTrip(context.Background(), "t1")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("want DecodeError, got %v", err)
	}
}

func TestEstimateFareFallsBackLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer srv.Close()

	pickup := models.Location{Latitude: -17.8292, Longitude: 31.0522}
	dropoff := models.Location{Latitude: -17.8200, Longitude: 31.0600}
	est, err := New(srv.URL).EstimateFare(context.Background(), pickup, dropoff, "sedan")
	if err != nil {
		t.Fatal(err)
	}
	if est.DistanceKm <= 0 {
		t.Fatalf("fallback distance = %f, want > 0", est.DistanceKm)
	}
	if est.EstimatedFare < fare.MinFare {
		t.Fatalf("fallback fare = %f, below floor", est.EstimatedFare)
	}
}
