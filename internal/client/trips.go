package client

import (
	"context"
	"fmt"

	"github.com/example/hande/internal/fare"
	"github.com/example/hande/internal/models"
)

type CreateTripRequest struct {
	Pickup      models.Location `json:"pickup"`
	Dropoff     models.Location `json:"dropoff"`
	VehicleType string          `json:"vehicle_type,omitempty"`
}

// EstimateFare asks the backend for an estimate and falls back to the
// local haversine calculation when the call fails. The fallback is the
// same formula the server uses, so a degraded network only costs
// freshness, not correctness.
func (c *Client) EstimateFare(ctx context.Context, pickup, dropoff models.Location, vehicleType string) (*models.FareEstimate, error) {
	var out models.FareEstimate
	body := CreateTripRequest{Pickup: pickup, Dropoff: dropoff, VehicleType: vehicleType}
	if err := c.post(ctx, "/trips/estimate", body, &out); err != nil {
		est := fare.Estimate(pickup, dropoff)
		est.EstimatedFare *= fare.VehicleMultiplier(vehicleType)
		est.Breakdown.Total = est.EstimatedFare
		return &est, nil
	}
	return &out, nil
}

func (c *Client) CreateTrip(ctx context.Context, req CreateTripRequest) (*models.Trip, error) {
	var out models.Trip
	if err := c.post(ctx, "/trips", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var out models.Trip
	if err := c.get(ctx, "/trips/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBids(ctx context.Context, tripID string) ([]models.Bid, error) {
	var out []models.Bid
	if err := c.get(ctx, "/trips/"+tripID+"/bids", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AcceptBid(ctx context.Context, tripID, bidID string) (*models.Trip, error) {
	var out models.Trip
	if err := c.post(ctx, "/trips/"+tripID+"/bids/"+bidID+"/accept", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelTrip(ctx context.Context, tripID, reason string) error {
	return c.post(ctx, "/trips/"+tripID+"/cancel", map[string]string{"reason": reason}, nil)
}

func (c *Client) RateTrip(ctx context.Context, tripID string, rating int, comment string) error {
	body := map[string]any{"rating": rating, "comment": comment}
	return c.post(ctx, "/trips/"+tripID+"/rate", body, nil)
}

type TripHistory struct {
	Trips []models.Trip `json:"trips"`
	Total int           `json:"total"`
}

func (c *Client) TripHistory(ctx context.Context, page, limit int) (*TripHistory, error) {
	var out TripHistory
	path := fmt.Sprintf("/trips/history?page=%d&limit=%d", page, limit)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentTrip returns the session's active trip, nil when there is
// none.
func (c *Client) CurrentTrip(ctx context.Context) (*models.Trip, error) {
	var out *models.Trip
	if err := c.get(ctx, "/trips/current", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NearbyTrips lists open trip requests around a driver position.
func (c *Client) NearbyTrips(ctx context.Context, lat, lng, radiusKm float64) ([]models.NearbyTrip, error) {
	var out []models.NearbyTrip
	path := fmt.Sprintf("/trips/nearby?lat=%f&lng=%f&radius=%f", lat, lng, radiusKm)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}
