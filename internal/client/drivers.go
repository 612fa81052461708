package client

import (
	"context"
	"fmt"

	"github.com/example/hande/internal/models"
)

// GoOnline reports the driver's starting position. The backend rejects
// the call with 402 when the daily fee is unpaid and out of grace.
func (c *Client) GoOnline(ctx context.Context, loc models.Location) error {
	body := map[string]float64{"latitude": loc.Latitude, "longitude": loc.Longitude}
	return c.post(ctx, "/drivers/online", body, nil)
}

func (c *Client) GoOffline(ctx context.Context) error {
	return c.post(ctx, "/drivers/offline", nil, nil)
}

// UpdateLocation is the fire-and-forget position forward used by the
// location watch loop.
func (c *Client) UpdateLocation(ctx context.Context, loc models.Location, heading float64) error {
	body := map[string]any{"latitude": loc.Latitude, "longitude": loc.Longitude, "heading": heading}
	return c.post(ctx, "/drivers/location", body, nil)
}

func (c *Client) ActiveTrip(ctx context.Context) (*models.Trip, error) {
	var out *models.Trip
	if err := c.get(ctx, "/drivers/active-trip", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type PlaceBidRequest struct {
	TripID     string  `json:"trip_id"`
	Amount     float64 `json:"amount"`
	ETAMinutes int     `json:"eta_minutes,omitempty"`
}

func (c *Client) PlaceBid(ctx context.Context, req PlaceBidRequest) (*models.Bid, error) {
	var out models.Bid
	if err := c.post(ctx, "/bids", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyBids(ctx context.Context) ([]models.Bid, error) {
	var out []models.Bid
	if err := c.get(ctx, "/bids/my-bids", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ArriveAtPickup(ctx context.Context, tripID string) (*models.Trip, error) {
	var out models.Trip
	if err := c.post(ctx, "/trips/"+tripID+"/arrive", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	var out models.Trip
	if err := c.post(ctx, "/trips/"+tripID+"/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	var out models.Trip
	if err := c.post(ctx, "/trips/"+tripID+"/complete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DailyFeeStatus(ctx context.Context) (*models.DailyFee, error) {
	var out models.DailyFee
	if err := c.get(ctx, "/drivers/daily-fee/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PayDailyFee(ctx context.Context, days int, method string) (*models.DailyFeePayment, error) {
	var out models.DailyFeePayment
	body := map[string]any{"days": days, "payment_method": method}
	if err := c.post(ctx, "/drivers/daily-fee/pay", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DailyFeeHistory(ctx context.Context, limit int) ([]models.DailyFeePayment, error) {
	var out []models.DailyFeePayment
	if err := c.get(ctx, fmt.Sprintf("/drivers/daily-fee/history?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Earnings(ctx context.Context) (*models.Earnings, error) {
	var out models.Earnings
	if err := c.get(ctx, "/drivers/earnings", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartShift(ctx context.Context) error {
	return c.post(ctx, "/drivers/shift/start", nil, nil)
}

func (c *Client) EndShift(ctx context.Context) (*models.Shift, error) {
	var out models.Shift
	if err := c.post(ctx, "/drivers/shift/end", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentShift(ctx context.Context) (*models.Shift, error) {
	var out *models.Shift
	if err := c.get(ctx, "/drivers/shift/current", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Vehicles(ctx context.Context) ([]models.Vehicle, error) {
	var out []models.Vehicle
	if err := c.get(ctx, "/drivers/vehicles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	var out models.Vehicle
	if err := c.post(ctx, "/drivers/vehicles", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateVehicle(ctx context.Context, id string, v models.Vehicle) (*models.Vehicle, error) {
	var out models.Vehicle
	if err := c.put(ctx, "/drivers/vehicles/"+id, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteVehicle(ctx context.Context, id string) error {
	return c.delete(ctx, "/drivers/vehicles/"+id)
}

func (c *Client) ActivateVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var out models.Vehicle
	if err := c.post(ctx, "/drivers/vehicles/"+id+"/activate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
