package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/example/hande/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (p *PostgresStore) CreateUser(u *models.User, passwordHash string) error {
	_, err := p.db.Exec(`INSERT INTO users(id, email, first_name, last_name, phone, user_type, rating, password_hash, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.UserType, u.Rating, passwordHash, u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return errExists("user", u.Email)
	}
	return err
}

func (p *PostgresStore) UserByEmail(email string) (*models.User, string, error) {
	var u models.User
	var hash string
	err := p.db.QueryRow(`SELECT id, email, first_name, last_name, phone, user_type, rating, password_hash, created_at FROM users WHERE lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.UserType, &u.Rating, &hash, &u.CreatedAt)
	if err != nil {
		return nil, "", notFound(err)
	}
	return &u, hash, nil
}

func (p *PostgresStore) UserByID(id string) (*models.User, error) {
	var u models.User
	err := p.db.QueryRow(`SELECT id, email, first_name, last_name, phone, user_type, rating, created_at FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.UserType, &u.Rating, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *PostgresStore) UpdateUser(u *models.User) error {
	_, err := p.db.Exec(`UPDATE users SET first_name=$1, last_name=$2, phone=$3, user_type=$4, rating=$5 WHERE id=$6`,
		u.FirstName, u.LastName, u.Phone, u.UserType, u.Rating, u.ID)
	return err
}

const tripCols = `id, rider_id, driver_id, status, pickup_lat, pickup_lng, pickup_address, dropoff_lat, dropoff_lng, dropoff_address, vehicle_type, fare, distance_km, duration_min, accepted_bid_id, driver_lat, driver_lng, created_at, updated_at, completed_at`

func (p *PostgresStore) SaveTrip(t *models.Trip) error {
	_, err := p.db.Exec(`INSERT INTO trips(`+tripCols+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		t.ID, t.RiderID, nullStr(t.DriverID), t.Status,
		t.Pickup.Latitude, t.Pickup.Longitude, t.Pickup.Address,
		t.Dropoff.Latitude, t.Dropoff.Longitude, t.Dropoff.Address,
		t.VehicleType, t.Fare, t.DistanceKm, t.DurationMin,
		nullStr(bidID(t.AcceptedBid)), nullLoc(t.DriverLocation, true), nullLoc(t.DriverLocation, false),
		t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	return err
}

func (p *PostgresStore) UpdateTrip(t *models.Trip) error {
	res, err := p.db.Exec(`UPDATE trips SET driver_id=$1, status=$2, fare=$3, distance_km=$4, duration_min=$5, accepted_bid_id=$6, driver_lat=$7, driver_lng=$8, updated_at=$9, completed_at=$10 WHERE id=$11`,
		nullStr(t.DriverID), t.Status, t.Fare, t.DistanceKm, t.DurationMin,
		nullStr(bidID(t.AcceptedBid)), nullLoc(t.DriverLocation, true), nullLoc(t.DriverLocation, false),
		t.UpdatedAt, t.CompletedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) scanTrip(row interface{ Scan(...any) error }) (*models.Trip, error) {
	var t models.Trip
	var driverID, bidID sql.NullString
	var dLat, dLng sql.NullFloat64
	err := row.Scan(&t.ID, &t.RiderID, &driverID, &t.Status,
		&t.Pickup.Latitude, &t.Pickup.Longitude, &t.Pickup.Address,
		&t.Dropoff.Latitude, &t.Dropoff.Longitude, &t.Dropoff.Address,
		&t.VehicleType, &t.Fare, &t.DistanceKm, &t.DurationMin,
		&bidID, &dLat, &dLng, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	t.DriverID = driverID.String
	if dLat.Valid && dLng.Valid {
		t.DriverLocation = &models.Location{Latitude: dLat.Float64, Longitude: dLng.Float64}
	}
	if bidID.Valid {
		if b, err := p.BidByID(bidID.String); err == nil {
			t.AcceptedBid = b
		}
	}
	return &t, nil
}

func (p *PostgresStore) TripByID(id string) (*models.Trip, error) {
	return p.scanTrip(p.db.QueryRow(`SELECT `+tripCols+` FROM trips WHERE id=$1`, id))
}

func (p *PostgresStore) ActiveTripForUser(userID string) (*models.Trip, error) {
	return p.scanTrip(p.db.QueryRow(`SELECT `+tripCols+` FROM trips WHERE (rider_id=$1 OR driver_id=$1) AND status NOT IN ('completed','cancelled') ORDER BY created_at DESC LIMIT 1`, userID))
}

func (p *PostgresStore) TripHistory(userID string, limit, offset int) ([]models.Trip, int, error) {
	var total int
	if err := p.db.QueryRow(`SELECT count(*) FROM trips WHERE rider_id=$1 OR driver_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.Query(`SELECT `+tripCols+` FROM trips WHERE rider_id=$1 OR driver_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []models.Trip
	for rows.Next() {
		t, err := p.scanTrip(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

const bidCols = `id, trip_id, driver_id, driver_name, driver_rating, vehicle_type, vehicle_plate, amount, eta_minutes, created_at`

func (p *PostgresStore) SaveBid(b *models.Bid) error {
	_, err := p.db.Exec(`INSERT INTO bids(`+bidCols+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		b.ID, b.TripID, b.DriverID, b.DriverName, b.DriverRating, b.VehicleType, b.VehiclePlate, b.Amount, b.ETAMinutes, b.CreatedAt)
	return err
}

func scanBid(row interface{ Scan(...any) error }) (*models.Bid, error) {
	var b models.Bid
	err := row.Scan(&b.ID, &b.TripID, &b.DriverID, &b.DriverName, &b.DriverRating, &b.VehicleType, &b.VehiclePlate, &b.Amount, &b.ETAMinutes, &b.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (p *PostgresStore) BidByID(id string) (*models.Bid, error) {
	return scanBid(p.db.QueryRow(`SELECT `+bidCols+` FROM bids WHERE id=$1`, id))
}

func (p *PostgresStore) queryBids(query string, arg any) ([]models.Bid, error) {
	rows, err := p.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) BidsForTrip(tripID string) ([]models.Bid, error) {
	return p.queryBids(`SELECT `+bidCols+` FROM bids WHERE trip_id=$1 ORDER BY created_at`, tripID)
}

func (p *PostgresStore) BidsByDriver(driverID string) ([]models.Bid, error) {
	return p.queryBids(`SELECT `+bidCols+` FROM bids WHERE driver_id=$1 ORDER BY created_at`, driverID)
}

func (p *PostgresStore) DeleteBidsForTrip(tripID string) error {
	_, err := p.db.Exec(`DELETE FROM bids WHERE trip_id=$1`, tripID)
	return err
}

func (p *PostgresStore) DailyFee(driverID string) (*models.DailyFee, error) {
	var f models.DailyFee
	err := p.db.QueryRow(`SELECT is_paid, amount, due_date, grace_ends_at, penalty FROM daily_fees WHERE driver_id=$1`, driverID).
		Scan(&f.IsPaid, &f.Amount, &f.DueDate, &f.GraceEndsAt, &f.Penalty)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (p *PostgresStore) SetDailyFee(driverID string, fee models.DailyFee) error {
	_, err := p.db.Exec(`INSERT INTO daily_fees(driver_id, is_paid, amount, due_date, grace_ends_at, penalty) VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (driver_id) DO UPDATE SET is_paid=$2, amount=$3, due_date=$4, grace_ends_at=$5, penalty=$6`,
		driverID, fee.IsPaid, fee.Amount, fee.DueDate, fee.GraceEndsAt, fee.Penalty)
	return err
}

func (p *PostgresStore) SaveFeePayment(fp *models.DailyFeePayment) error {
	_, err := p.db.Exec(`INSERT INTO fee_payments(id, driver_id, amount, days, method, paid_at, valid_until) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		fp.ID, fp.DriverID, fp.Amount, fp.Days, fp.Method, fp.PaidAt, fp.ValidUntil)
	return err
}

func (p *PostgresStore) FeePayments(driverID string, limit int) ([]models.DailyFeePayment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.Query(`SELECT id, driver_id, amount, days, method, paid_at, valid_until FROM fee_payments WHERE driver_id=$1 ORDER BY paid_at DESC LIMIT $2`, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DailyFeePayment
	for rows.Next() {
		var fp models.DailyFeePayment
		if err := rows.Scan(&fp.ID, &fp.DriverID, &fp.Amount, &fp.Days, &fp.Method, &fp.PaidAt, &fp.ValidUntil); err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Wallet(userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := p.db.QueryRow(`SELECT user_id, balance, currency, last_updated FROM wallets WHERE user_id=$1`, userID).
		Scan(&w.UserID, &w.Balance, &w.Currency, &w.LastUpdated)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (p *PostgresStore) SaveWallet(w *models.Wallet) error {
	_, err := p.db.Exec(`INSERT INTO wallets(user_id, balance, currency, last_updated) VALUES($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE SET balance=$2, currency=$3, last_updated=$4`,
		w.UserID, w.Balance, w.Currency, w.LastUpdated)
	return err
}

func (p *PostgresStore) SavePayment(pr *models.PaymentRecord) error {
	_, err := p.db.Exec(`INSERT INTO payments(id, user_id, type, amount, status, description, created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		pr.ID, pr.UserID, pr.Type, pr.Amount, pr.Status, pr.Description, pr.CreatedAt)
	return err
}

func (p *PostgresStore) Payments(userID string, limit int) ([]models.PaymentRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.Query(`SELECT id, user_id, type, amount, status, description, created_at FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PaymentRecord
	for rows.Next() {
		var pr models.PaymentRecord
		if err := rows.Scan(&pr.ID, &pr.UserID, &pr.Type, &pr.Amount, &pr.Status, &pr.Description, &pr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Vehicles(driverID string) ([]models.Vehicle, error) {
	rows, err := p.db.Query(`SELECT id, driver_id, make, model, year, color, license_plate, type, is_active, is_verified, created_at FROM vehicles WHERE driver_id=$1 ORDER BY created_at`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.DriverID, &v.Make, &v.Model, &v.Year, &v.Color, &v.LicensePlate, &v.Type, &v.IsActive, &v.IsVerified, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresStore) VehicleByID(id string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := p.db.QueryRow(`SELECT id, driver_id, make, model, year, color, license_plate, type, is_active, is_verified, created_at FROM vehicles WHERE id=$1`, id).
		Scan(&v.ID, &v.DriverID, &v.Make, &v.Model, &v.Year, &v.Color, &v.LicensePlate, &v.Type, &v.IsActive, &v.IsVerified, &v.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (p *PostgresStore) SaveVehicle(v *models.Vehicle) error {
	if v.IsActive {
		if _, err := p.db.Exec(`UPDATE vehicles SET is_active=false WHERE driver_id=$1 AND id<>$2`, v.DriverID, v.ID); err != nil {
			return err
		}
	}
	_, err := p.db.Exec(`INSERT INTO vehicles(id, driver_id, make, model, year, color, license_plate, type, is_active, is_verified, created_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET make=$3, model=$4, year=$5, color=$6, license_plate=$7, type=$8, is_active=$9, is_verified=$10`,
		v.ID, v.DriverID, v.Make, v.Model, v.Year, v.Color, v.LicensePlate, v.Type, v.IsActive, v.IsVerified, v.CreatedAt)
	return err
}

func (p *PostgresStore) DeleteVehicle(id string) error {
	return p.deleteByID(`DELETE FROM vehicles WHERE id=$1`, id)
}

func (p *PostgresStore) Documents(driverID string) ([]models.Document, error) {
	rows, err := p.db.Query(`SELECT id, driver_id, type, status, url, rejection_reason, expires_at, created_at, updated_at FROM documents WHERE driver_id=$1 ORDER BY created_at`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.DriverID, &d.Type, &d.Status, &d.URL, &d.RejectionReason, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DocumentByID(id string) (*models.Document, error) {
	var d models.Document
	err := p.db.QueryRow(`SELECT id, driver_id, type, status, url, rejection_reason, expires_at, created_at, updated_at FROM documents WHERE id=$1`, id).
		Scan(&d.ID, &d.DriverID, &d.Type, &d.Status, &d.URL, &d.RejectionReason, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (p *PostgresStore) SaveDocument(d *models.Document) error {
	_, err := p.db.Exec(`INSERT INTO documents(id, driver_id, type, status, url, rejection_reason, expires_at, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET status=$4, url=$5, rejection_reason=$6, expires_at=$7, updated_at=$9`,
		d.ID, d.DriverID, d.Type, d.Status, d.URL, d.RejectionReason, d.ExpiresAt, d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *PostgresStore) DeleteDocument(id string) error {
	return p.deleteByID(`DELETE FROM documents WHERE id=$1`, id)
}

func (p *PostgresStore) Contacts(userID string) ([]models.EmergencyContact, error) {
	rows, err := p.db.Query(`SELECT id, user_id, name, phone, relationship, is_primary FROM emergency_contacts WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EmergencyContact
	for rows.Next() {
		var c models.EmergencyContact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ContactByID(id string) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	err := p.db.QueryRow(`SELECT id, user_id, name, phone, relationship, is_primary FROM emergency_contacts WHERE id=$1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (p *PostgresStore) SaveContact(c *models.EmergencyContact) error {
	_, err := p.db.Exec(`INSERT INTO emergency_contacts(id, user_id, name, phone, relationship, is_primary) VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET name=$3, phone=$4, relationship=$5, is_primary=$6`,
		c.ID, c.UserID, c.Name, c.Phone, c.Relationship, c.IsPrimary)
	return err
}

func (p *PostgresStore) DeleteContact(id string) error {
	return p.deleteByID(`DELETE FROM emergency_contacts WHERE id=$1`, id)
}

func (p *PostgresStore) Places(userID string) ([]models.SavedPlace, error) {
	rows, err := p.db.Query(`SELECT id, user_id, name, address, latitude, longitude, type, is_default FROM saved_places WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SavedPlace
	for rows.Next() {
		var sp models.SavedPlace
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Address, &sp.Latitude, &sp.Longitude, &sp.Type, &sp.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (p *PostgresStore) PlaceByID(id string) (*models.SavedPlace, error) {
	var sp models.SavedPlace
	err := p.db.QueryRow(`SELECT id, user_id, name, address, latitude, longitude, type, is_default FROM saved_places WHERE id=$1`, id).
		Scan(&sp.ID, &sp.UserID, &sp.Name, &sp.Address, &sp.Latitude, &sp.Longitude, &sp.Type, &sp.IsDefault)
	if err != nil {
		return nil, notFound(err)
	}
	return &sp, nil
}

func (p *PostgresStore) SavePlace(sp *models.SavedPlace) error {
	_, err := p.db.Exec(`INSERT INTO saved_places(id, user_id, name, address, latitude, longitude, type, is_default) VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET name=$3, address=$4, latitude=$5, longitude=$6, type=$7, is_default=$8`,
		sp.ID, sp.UserID, sp.Name, sp.Address, sp.Latitude, sp.Longitude, sp.Type, sp.IsDefault)
	return err
}

func (p *PostgresStore) DeletePlace(id string) error {
	return p.deleteByID(`DELETE FROM saved_places WHERE id=$1`, id)
}

func (p *PostgresStore) CurrentShift(driverID string) (*models.Shift, error) {
	var s models.Shift
	err := p.db.QueryRow(`SELECT id, driver_id, started_at, ended_at, earnings, trips FROM shifts WHERE driver_id=$1 AND ended_at IS NULL ORDER BY started_at DESC LIMIT 1`, driverID).
		Scan(&s.ID, &s.DriverID, &s.StartedAt, &s.EndedAt, &s.Earnings, &s.Trips)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (p *PostgresStore) SaveShift(s *models.Shift) error {
	_, err := p.db.Exec(`INSERT INTO shifts(id, driver_id, started_at, ended_at, earnings, trips) VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET ended_at=$4, earnings=$5, trips=$6`,
		s.ID, s.DriverID, s.StartedAt, s.EndedAt, s.Earnings, s.Trips)
	return err
}

func (p *PostgresStore) Earnings(driverID string, now time.Time) (*models.Earnings, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var e models.Earnings
	err := p.db.QueryRow(`SELECT
			coalesce(sum(fare) FILTER (WHERE completed_at >= $2), 0),
			coalesce(sum(fare) FILTER (WHERE completed_at >= $3), 0),
			coalesce(sum(fare) FILTER (WHERE completed_at >= $4), 0),
			count(*),
			coalesce(sum(fare), 0)
		FROM trips WHERE driver_id=$1 AND status='completed'`,
		driverID, dayStart, weekStart, monthStart).
		Scan(&e.Today, &e.ThisWeek, &e.ThisMonth, &e.TotalTrips, &e.PendingPayout)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *PostgresStore) deleteByID(query, id string) error {
	res, err := p.db.Exec(query, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func bidID(b *models.Bid) string {
	if b == nil {
		return ""
	}
	return b.ID
}

func nullLoc(l *models.Location, lat bool) any {
	if l == nil {
		return nil
	}
	if lat {
		return l.Latitude
	}
	return l.Longitude
}
