package models

import "time"

// Location is used uniformly for pickups, dropoffs and live positions.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type TripStatus string

const (
	TripPending    TripStatus = "pending"
	TripAccepted   TripStatus = "accepted"
	TripArriving   TripStatus = "arriving"
	TripArrived    TripStatus = "arrived"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Terminal reports whether a trip can no longer change state.
func (s TripStatus) Terminal() bool { return s == TripCompleted || s == TripCancelled }

type Trip struct {
	ID             string     `json:"id"`
	RiderID        string     `json:"rider_id"`
	DriverID       string     `json:"driver_id,omitempty"`
	Status         TripStatus `json:"status"`
	Pickup         Location   `json:"pickup"`
	Dropoff        Location   `json:"dropoff"`
	VehicleType    string     `json:"vehicle_type,omitempty"`
	Fare           float64    `json:"fare,omitempty"`
	DistanceKm     float64    `json:"distance_km,omitempty"`
	DurationMin    int        `json:"duration_min,omitempty"`
	AcceptedBid    *Bid       `json:"accepted_bid,omitempty"`
	DriverLocation *Location  `json:"driver_location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Bid is a driver's offer (price + ETA) against a pending trip.
type Bid struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	DriverID     string    `json:"driver_id"`
	DriverName   string    `json:"driver_name"`
	DriverRating float64   `json:"driver_rating"`
	VehicleType  string    `json:"vehicle_type"`
	VehiclePlate string    `json:"vehicle_plate"`
	Amount       float64   `json:"amount"`
	ETAMinutes   int       `json:"eta_minutes"`
	CreatedAt    time.Time `json:"created_at"`
}

// NearbyTrip is the driver-facing projection of an open trip request.
// Discarded and replaced wholesale on every nearby poll.
type NearbyTrip struct {
	ID            string    `json:"id"`
	Pickup        Location  `json:"pickup"`
	Dropoff       Location  `json:"dropoff"`
	RiderID       string    `json:"rider_id"`
	RiderName     string    `json:"rider_name"`
	RiderRating   float64   `json:"rider_rating,omitempty"`
	EstimatedFare float64   `json:"estimated_fare"`
	DistanceKm    float64   `json:"distance_km"`
	CreatedAt     time.Time `json:"created_at"`
}

// DailyFee gates whether a driver may go online ($1/day subscription).
type DailyFee struct {
	IsPaid      bool       `json:"is_paid"`
	Amount      float64    `json:"amount"`
	DueDate     time.Time  `json:"due_date"`
	GraceEndsAt *time.Time `json:"grace_ends_at,omitempty"`
	Penalty     float64    `json:"penalty,omitempty"`
}

// Payable reports whether the driver may go online right now: paid, or
// still inside the grace window after the due date.
func (f DailyFee) Payable(now time.Time) bool {
	if f.IsPaid {
		return true
	}
	return f.GraceEndsAt != nil && now.Before(*f.GraceEndsAt)
}

type DailyFeePayment struct {
	ID         string    `json:"id"`
	DriverID   string    `json:"driver_id"`
	Amount     float64   `json:"amount"`
	Days       int       `json:"days"`
	Method     string    `json:"method"`
	PaidAt     time.Time `json:"paid_at"`
	ValidUntil time.Time `json:"valid_until"`
}

type Earnings struct {
	Today         float64 `json:"today"`
	ThisWeek      float64 `json:"this_week"`
	ThisMonth     float64 `json:"this_month"`
	TotalTrips    int     `json:"total_trips"`
	PendingPayout float64 `json:"pending_payout"`
}

type FareBreakdown struct {
	BaseFare       float64 `json:"base_fare"`
	DistanceCharge float64 `json:"distance_charge"`
	TimeCharge     float64 `json:"time_charge"`
	Total          float64 `json:"total"`
}

type FareEstimate struct {
	EstimatedFare float64       `json:"estimated_fare"`
	DistanceKm    float64       `json:"distance_km"`
	DurationMin   int           `json:"duration_min"`
	Breakdown     FareBreakdown `json:"breakdown"`
}

type UserType string

const (
	UserRider  UserType = "rider"
	UserDriver UserType = "driver"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone,omitempty"`
	UserType  UserType  `json:"user_type"`
	Rating    float64   `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Vehicle struct {
	ID           string    `json:"id"`
	DriverID     string    `json:"driver_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Color        string    `json:"color"`
	LicensePlate string    `json:"license_plate"`
	Type         string    `json:"type"` // sedan, suv, van, motorcycle, hatchback
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

type Document struct {
	ID              string     `json:"id"`
	DriverID        string     `json:"driver_id"`
	Type            string     `json:"type"`   // license, registration, insurance, profile_photo, vehicle_photo
	Status          string     `json:"status"` // pending, approved, rejected
	URL             string     `json:"url"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type EmergencyContact struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"is_primary"`
}

type SavedPlace struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"` // home, work, other
	IsDefault bool    `json:"is_default"`
}

type Wallet struct {
	UserID      string    `json:"user_id"`
	Balance     float64   `json:"balance"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"last_updated"`
}

type PaymentRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`   // trip_payment, wallet_topup, daily_fee, payout
	Amount      float64   `json:"amount"` // dollars
	Status      string    `json:"status"` // pending, completed, failed
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Shift struct {
	ID        string     `json:"id"`
	DriverID  string     `json:"driver_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Earnings  float64    `json:"earnings"`
	Trips     int        `json:"trips"`
}

// DriverLocationEvent is what the agent forwards and the ingest pipeline
// carries over Kafka into the Redis geo index.
type DriverLocationEvent struct {
	DriverID string    `json:"driver_id"`
	Location Location  `json:"location"`
	Heading  float64   `json:"heading,omitempty"`
	Online   bool      `json:"online"`
	Rating   float64   `json:"rating,omitempty"`
	At       time.Time `json:"at"`
}
