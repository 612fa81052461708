package driverstate

import "testing"

func TestInvalidTransitionsDropped(t *testing.T) {
	for _, cur := range States() {
		for _, desired := range States() {
			got := Next(cur, desired)
			if desired == Offline {
				if got != Offline {
					t.Fatalf("Next(%s, offline) = %s, want offline", cur, got)
				}
				continue
			}
			if Allowed(cur, desired) {
				if got != desired {
					t.Fatalf("Next(%s, %s) = %s, want %s", cur, desired, got, desired)
				}
			} else if got != cur {
				t.Fatalf("Next(%s, %s) = %s, want unchanged %s", cur, desired, got, cur)
			}
		}
	}
}

func TestSelfTransitionIsNoop(t *testing.T) {
	for _, s := range States() {
		if got := Next(s, s); got != s {
			t.Fatalf("Next(%s, %s) = %s", s, s, got)
		}
	}
}

func TestNoDeadEnds(t *testing.T) {
	// every state reachable via a forward transition must have at least
	// one outgoing transition
	reachable := map[Status]bool{}
	for _, nexts := range transitions {
		for _, s := range nexts {
			reachable[s] = true
		}
	}
	for s := range reachable {
		if len(transitions[s]) == 0 {
			t.Fatalf("state %s is a dead end", s)
		}
	}
}

func TestGoOnlineRequiresGoingOnlineFirst(t *testing.T) {
	if got := Next(Offline, Online); got != Offline {
		t.Fatalf("offline -> online should be rejected, got %s", got)
	}
	if got := Next(Offline, GoingOnline); got != GoingOnline {
		t.Fatalf("offline -> going_online should apply, got %s", got)
	}
	if got := Next(GoingOnline, Online); got != Online {
		t.Fatalf("going_online -> online should apply, got %s", got)
	}
}

func TestMachineFeeGate(t *testing.T) {
	paid := false
	m := NewMachine(func() bool { return paid })

	if _, ok := m.Request(GoingOnline); ok {
		t.Fatal("unpaid fee must block going online")
	}
	if m.Status() != Offline {
		t.Fatalf("status = %s, want offline", m.Status())
	}

	paid = true
	if _, ok := m.Request(GoingOnline); !ok {
		t.Fatal("paid fee must allow going online")
	}
	if _, ok := m.Request(Online); !ok {
		t.Fatal("going_online -> online must apply")
	}
}

func TestMachineReportsDroppedTransitions(t *testing.T) {
	m := NewMachine(nil)
	if st, ok := m.Request(InProgress); ok || st != Offline {
		t.Fatalf("got (%s, %v), want (offline, false)", st, ok)
	}
	if st, ok := m.Request(Offline); ok || st != Offline {
		// already offline; self-transition is a no-op, not an apply
		t.Fatalf("got (%s, %v), want (offline, false)", st, ok)
	}
}

func TestForceOfflineFromAnyState(t *testing.T) {
	m := NewMachine(nil)
	for _, s := range []Status{GoingOnline, Online, Bidding, BidPending, Accepted, Arriving, Arrived, InProgress} {
		m.Request(s)
	}
	m.ForceOffline()
	if m.Status() != Offline {
		t.Fatalf("status = %s after ForceOffline", m.Status())
	}
}
