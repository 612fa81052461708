package client

import (
	"context"
	"fmt"

	"github.com/example/hande/internal/models"
)

// Documents (driver verification paperwork).

func (c *Client) Documents(ctx context.Context) ([]models.Document, error) {
	var out []models.Document
	if err := c.get(ctx, "/documents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UploadDocument(ctx context.Context, d models.Document) (*models.Document, error) {
	var out models.Document
	if err := c.post(ctx, "/documents", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.delete(ctx, "/documents/"+id)
}

// Emergency contacts.

func (c *Client) EmergencyContacts(ctx context.Context) ([]models.EmergencyContact, error) {
	var out []models.EmergencyContact
	if err := c.get(ctx, "/emergency-contacts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEmergencyContact(ctx context.Context, ec models.EmergencyContact) (*models.EmergencyContact, error) {
	var out models.EmergencyContact
	if err := c.post(ctx, "/emergency-contacts", ec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEmergencyContact(ctx context.Context, id string, ec models.EmergencyContact) (*models.EmergencyContact, error) {
	var out models.EmergencyContact
	if err := c.put(ctx, "/emergency-contacts/"+id, ec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEmergencyContact(ctx context.Context, id string) error {
	return c.delete(ctx, "/emergency-contacts/"+id)
}

// Saved places.

func (c *Client) SavedPlaces(ctx context.Context) ([]models.SavedPlace, error) {
	var out []models.SavedPlace
	if err := c.get(ctx, "/places", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSavedPlace(ctx context.Context, p models.SavedPlace) (*models.SavedPlace, error) {
	var out models.SavedPlace
	if err := c.post(ctx, "/places", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSavedPlace(ctx context.Context, id string, p models.SavedPlace) (*models.SavedPlace, error) {
	var out models.SavedPlace
	if err := c.put(ctx, "/places/"+id, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSavedPlace(ctx context.Context, id string) error {
	return c.delete(ctx, "/places/"+id)
}

// Wallet and payments.

func (c *Client) Wallet(ctx context.Context) (*models.Wallet, error) {
	var out models.Wallet
	if err := c.get(ctx, "/payments/wallet", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TopUpWallet(ctx context.Context, amount float64, method string) (*models.Wallet, error) {
	var out models.Wallet
	body := map[string]any{"amount": amount, "payment_method": method}
	if err := c.post(ctx, "/payments/wallet/topup", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PaymentHistory(ctx context.Context, limit int) ([]models.PaymentRecord, error) {
	var out []models.PaymentRecord
	if err := c.get(ctx, fmt.Sprintf("/payments/history?limit=%d", limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}
