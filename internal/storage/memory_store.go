package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/hande/internal/models"
)

// MemoryStore keeps everything in maps behind one RWMutex. Values are
// copied on the way in and out so callers never share memory with the
// store.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[string]*models.User
	passwords map[string]string // user id -> hash

	trips map[string]*models.Trip
	bids  map[string]*models.Bid

	fees        map[string]models.DailyFee
	feePayments map[string][]models.DailyFeePayment

	wallets  map[string]*models.Wallet
	payments map[string][]models.PaymentRecord

	vehicles  map[string]*models.Vehicle
	documents map[string]*models.Document
	contacts  map[string]*models.EmergencyContact
	places    map[string]*models.SavedPlace
	shifts    map[string]*models.Shift
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		passwords:   make(map[string]string),
		trips:       make(map[string]*models.Trip),
		bids:        make(map[string]*models.Bid),
		fees:        make(map[string]models.DailyFee),
		feePayments: make(map[string][]models.DailyFeePayment),
		wallets:     make(map[string]*models.Wallet),
		payments:    make(map[string][]models.PaymentRecord),
		vehicles:    make(map[string]*models.Vehicle),
		documents:   make(map[string]*models.Document),
		contacts:    make(map[string]*models.EmergencyContact),
		places:      make(map[string]*models.SavedPlace),
		shifts:      make(map[string]*models.Shift),
	}
}

func (m *MemoryStore) CreateUser(u *models.User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if strings.EqualFold(ex.Email, u.Email) {
			return errExists("user", u.Email)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	m.passwords[u.ID] = passwordHash
	return nil
}

func (m *MemoryStore) UserByEmail(email string) (*models.User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, m.passwords[u.ID], nil
		}
	}
	return nil, "", ErrNotFound
}

func (m *MemoryStore) UserByID(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UpdateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) SaveTrip(t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateTrip(t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	m.trips[t.ID] = &cp
	return nil
}

func (m *MemoryStore) TripByID(id string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ActiveTripForUser(userID string) (*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest *models.Trip
	for _, t := range m.trips {
		if t.Status.Terminal() {
			continue
		}
		if t.RiderID != userID && t.DriverID != userID {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (m *MemoryStore) TripHistory(userID string, limit, offset int) ([]models.Trip, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.Trip, 0)
	for _, t := range m.trips {
		if t.RiderID == userID || t.DriverID == userID {
			all = append(all, *t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemoryStore) SaveBid(b *models.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bids[b.ID] = &cp
	return nil
}

func (m *MemoryStore) BidByID(id string) (*models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bids[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) BidsForTrip(tripID string) ([]models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Bid, 0)
	for _, b := range m.bids {
		if b.TripID == tripID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) BidsByDriver(driverID string) ([]models.Bid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Bid, 0)
	for _, b := range m.bids {
		if b.DriverID == driverID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteBidsForTrip(tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.bids {
		if b.TripID == tripID {
			delete(m.bids, id)
		}
	}
	return nil
}

func (m *MemoryStore) DailyFee(driverID string) (*models.DailyFee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fees[driverID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := f
	return &cp, nil
}

func (m *MemoryStore) SetDailyFee(driverID string, fee models.DailyFee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fees[driverID] = fee
	return nil
}

func (m *MemoryStore) SaveFeePayment(p *models.DailyFeePayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feePayments[p.DriverID] = append(m.feePayments[p.DriverID], *p)
	return nil
}

func (m *MemoryStore) FeePayments(driverID string, limit int) ([]models.DailyFeePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.feePayments[driverID]
	out := make([]models.DailyFeePayment, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Wallet(userID string) (*models.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *MemoryStore) SaveWallet(w *models.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.wallets[w.UserID] = &cp
	return nil
}

func (m *MemoryStore) SavePayment(p *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.UserID] = append(m.payments[p.UserID], *p)
	return nil
}

func (m *MemoryStore) Payments(userID string, limit int) ([]models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.payments[userID]
	out := make([]models.PaymentRecord, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Vehicles(driverID string) ([]models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Vehicle, 0)
	for _, v := range m.vehicles {
		if v.DriverID == driverID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) VehicleByID(id string) (*models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryStore) SaveVehicle(v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.IsActive {
		// only one active vehicle per driver
		for _, ex := range m.vehicles {
			if ex.DriverID == v.DriverID && ex.ID != v.ID {
				ex.IsActive = false
			}
		}
	}
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteVehicle(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[id]; !ok {
		return ErrNotFound
	}
	delete(m.vehicles, id)
	return nil
}

func (m *MemoryStore) Documents(driverID string) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Document, 0)
	for _, d := range m.documents {
		if d.DriverID == driverID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DocumentByID(id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) SaveDocument(d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *MemoryStore) Contacts(userID string) ([]models.EmergencyContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.EmergencyContact, 0)
	for _, c := range m.contacts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ContactByID(id string) (*models.EmergencyContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) SaveContact(c *models.EmergencyContact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contacts[c.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteContact(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contacts[id]; !ok {
		return ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *MemoryStore) Places(userID string) ([]models.SavedPlace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SavedPlace, 0)
	for _, p := range m.places {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) PlaceByID(id string) (*models.SavedPlace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.places[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) SavePlace(p *models.SavedPlace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.places[p.ID] = &cp
	return nil
}

func (m *MemoryStore) DeletePlace(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.places[id]; !ok {
		return ErrNotFound
	}
	delete(m.places, id)
	return nil
}

func (m *MemoryStore) CurrentShift(driverID string) (*models.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shifts {
		if s.DriverID == driverID && s.EndedAt == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SaveShift(s *models.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.shifts[s.ID] = &cp
	return nil
}

func (m *MemoryStore) Earnings(driverID string, now time.Time) (*models.Earnings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var e models.Earnings
	for _, t := range m.trips {
		if t.DriverID != driverID || t.Status != models.TripCompleted || t.CompletedAt == nil {
			continue
		}
		e.TotalTrips++
		e.PendingPayout += t.Fare
		if !t.CompletedAt.Before(dayStart) {
			e.Today += t.Fare
		}
		if !t.CompletedAt.Before(weekStart) {
			e.ThisWeek += t.Fare
		}
		if !t.CompletedAt.Before(monthStart) {
			e.ThisMonth += t.Fare
		}
	}
	return &e, nil
}

type existsError struct{ kind, key string }

func (e existsError) Error() string { return e.kind + " already exists: " + e.key }

func errExists(kind, key string) error { return existsError{kind: kind, key: key} }

// IsExists reports whether err is a uniqueness violation.
func IsExists(err error) bool {
	var ex existsError
	return errors.As(err, &ex)
}
