package bidding

import (
	"testing"

	"github.com/example/hande/internal/models"
)

func TestCheaperBidRanksFirst(t *testing.T) {
	bids := []models.Bid{
		{ID: "1", DriverID: "A", Amount: 9.0, ETAMinutes: 5, DriverRating: 4.5},
		{ID: "2", DriverID: "B", Amount: 7.0, ETAMinutes: 5, DriverRating: 4.5},
	}
	best, ok := Best(bids, DefaultWeights)
	if !ok {
		t.Fatal("no best bid")
	}
	if best.DriverID != "B" {
		t.Fatalf("expected B, got %s", best.DriverID)
	}
}

func TestHigherRatingBeatsSlightlyCheaperBid(t *testing.T) {
	bids := []models.Bid{
		{ID: "1", DriverID: "A", Amount: 8.0, ETAMinutes: 4, DriverRating: 4.0},
		{ID: "2", DriverID: "B", Amount: 8.2, ETAMinutes: 4, DriverRating: 5.0},
	}
	// A: 8.0 + 0.6 + 0.5 = 9.1; B: 8.2 + 0.6 + 0 = 8.8
	best, _ := Best(bids, DefaultWeights)
	if best.DriverID != "B" {
		t.Fatalf("expected B, got %s", best.DriverID)
	}
}

func TestEqualScoreTieBreaksOnRating(t *testing.T) {
	bids := []models.Bid{
		{ID: "1", DriverID: "A", Amount: 8.5, ETAMinutes: 4, DriverRating: 4.0},
		{ID: "2", DriverID: "B", Amount: 9.0, ETAMinutes: 4, DriverRating: 5.0},
	}
	// both score 9.6
	best, _ := Best(bids, DefaultWeights)
	if best.DriverID != "B" {
		t.Fatalf("expected B on tie, got %s", best.DriverID)
	}
}

func TestSlowEtaCostsMore(t *testing.T) {
	bids := []models.Bid{
		{ID: "1", DriverID: "A", Amount: 8.0, ETAMinutes: 20, DriverRating: 5.0},
		{ID: "2", DriverID: "B", Amount: 8.0, ETAMinutes: 3, DriverRating: 5.0},
	}
	best, _ := Best(bids, DefaultWeights)
	if best.DriverID != "B" {
		t.Fatalf("expected B, got %s", best.DriverID)
	}
}

func TestBestEmpty(t *testing.T) {
	if _, ok := Best(nil, DefaultWeights); ok {
		t.Fatal("expected no best bid for empty slice")
	}
}
