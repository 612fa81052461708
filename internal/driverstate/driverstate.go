// Package driverstate implements the driver status lifecycle: a small
// finite state machine that gates which driver actions are reachable.
package driverstate

import "sync"

// Status is the driver's position in the online/bidding/trip lifecycle.
type Status string

const (
	Offline        Status = "offline"
	GoingOnline    Status = "going_online"
	Online         Status = "online"
	ViewingRequest Status = "viewing_request"
	Bidding        Status = "bidding"
	BidPending     Status = "bid_pending"
	Accepted       Status = "accepted"
	Arriving       Status = "arriving"
	Arrived        Status = "arrived"
	InProgress     Status = "in_progress"
	Completing     Status = "completing"
)

// transitions is the allowed-next-states table. Anything not listed is
// rejected, except a transition to Offline which always succeeds
// (manual override / emergency stop).
var transitions = map[Status][]Status{
	Offline:        {GoingOnline},
	GoingOnline:    {Online, Offline},
	Online:         {Offline, ViewingRequest, Bidding},
	ViewingRequest: {Online, Bidding},
	Bidding:        {Online, BidPending},
	BidPending:     {Online, Accepted},
	Accepted:       {Arriving, Online},
	Arriving:       {Arrived},
	Arrived:        {InProgress},
	InProgress:     {Completing},
	Completing:     {Online, Offline},
}

// Next returns the status after requesting a transition from cur to
// desired. Invalid transitions are dropped, not errored: the result is
// cur unchanged. desired == Offline always succeeds.
func Next(cur, desired Status) Status {
	if desired == Offline {
		return Offline
	}
	for _, s := range transitions[cur] {
		if s == desired {
			return desired
		}
	}
	return cur
}

// Allowed reports whether desired is reachable from cur in one step.
func Allowed(cur, desired Status) bool { return Next(cur, desired) == desired }

// States returns every status present in the transition table.
func States() []Status {
	out := make([]Status, 0, len(transitions))
	for s := range transitions {
		out = append(out, s)
	}
	return out
}

// FeeGate reports whether the driver's daily fee currently permits
// going online (paid, or inside an active grace period).
type FeeGate func() bool

// Machine holds a single driver's current status. The daily-fee check
// is enforced on the Offline -> GoingOnline edge so callers cannot
// forget it.
type Machine struct {
	mu   sync.Mutex
	cur  Status
	gate FeeGate
}

// NewMachine starts a machine at Offline. gate may be nil, in which
// case going online is never fee-blocked.
func NewMachine(gate FeeGate) *Machine {
	return &Machine{cur: Offline, gate: gate}
}

// Status returns the current status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Request attempts a transition and reports whether it was applied.
// A dropped transition leaves the status unchanged and returns false,
// so callers can tell "accepted" from "silently ignored".
func (m *Machine) Request(desired Status) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == desired {
		return m.cur, false
	}
	if m.cur == Offline && desired == GoingOnline && m.gate != nil && !m.gate() {
		return m.cur, false
	}
	next := Next(m.cur, desired)
	if next != desired {
		return m.cur, false
	}
	m.cur = next
	return m.cur, true
}

// ForceOffline applies the unconditional emergency-stop transition.
func (m *Machine) ForceOffline() {
	m.mu.Lock()
	m.cur = Offline
	m.mu.Unlock()
}
