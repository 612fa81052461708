package storage

import (
	"errors"
	"time"

	"github.com/example/hande/internal/models"
)

// ErrNotFound is returned for lookups that matched nothing.
var ErrNotFound = errors.New("not found")

// Store defines persistence for everything the backend owns. Two
// implementations exist: MemoryStore for local runs and tests, and
// PostgresStore for real deployments.
type Store interface {
	CreateUser(u *models.User, passwordHash string) error
	UserByEmail(email string) (*models.User, string, error)
	UserByID(id string) (*models.User, error)
	UpdateUser(u *models.User) error

	SaveTrip(t *models.Trip) error
	UpdateTrip(t *models.Trip) error
	TripByID(id string) (*models.Trip, error)
	ActiveTripForUser(userID string) (*models.Trip, error)
	TripHistory(userID string, limit, offset int) ([]models.Trip, int, error)

	SaveBid(b *models.Bid) error
	BidByID(id string) (*models.Bid, error)
	BidsForTrip(tripID string) ([]models.Bid, error)
	BidsByDriver(driverID string) ([]models.Bid, error)
	DeleteBidsForTrip(tripID string) error

	DailyFee(driverID string) (*models.DailyFee, error)
	SetDailyFee(driverID string, fee models.DailyFee) error
	SaveFeePayment(p *models.DailyFeePayment) error
	FeePayments(driverID string, limit int) ([]models.DailyFeePayment, error)

	Wallet(userID string) (*models.Wallet, error)
	SaveWallet(w *models.Wallet) error
	SavePayment(p *models.PaymentRecord) error
	Payments(userID string, limit int) ([]models.PaymentRecord, error)

	Vehicles(driverID string) ([]models.Vehicle, error)
	VehicleByID(id string) (*models.Vehicle, error)
	SaveVehicle(v *models.Vehicle) error
	DeleteVehicle(id string) error

	Documents(driverID string) ([]models.Document, error)
	DocumentByID(id string) (*models.Document, error)
	SaveDocument(d *models.Document) error
	DeleteDocument(id string) error

	Contacts(userID string) ([]models.EmergencyContact, error)
	ContactByID(id string) (*models.EmergencyContact, error)
	SaveContact(c *models.EmergencyContact) error
	DeleteContact(id string) error

	Places(userID string) ([]models.SavedPlace, error)
	PlaceByID(id string) (*models.SavedPlace, error)
	SavePlace(p *models.SavedPlace) error
	DeletePlace(id string) error

	CurrentShift(driverID string) (*models.Shift, error)
	SaveShift(s *models.Shift) error

	Earnings(driverID string, now time.Time) (*models.Earnings, error)
}
