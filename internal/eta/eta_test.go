package eta

import (
	"errors"
	"testing"
	"time"

	"github.com/example/hande/internal/models"
)

type stubEstimator struct {
	secs  float64
	err   error
	calls int
}

func (s *stubEstimator) EstimateSeconds(from, to models.Location) (float64, error) {
	s.calls++
	return s.secs, s.err
}

func TestCacheHitSkipsClient(t *testing.T) {
	stub := &stubEstimator{secs: 120}
	c := &Cached{Inner: stub, Cache: NewCache(time.Minute)}
	a := models.Location{Latitude: 1, Longitude: 1}
	b := models.Location{Latitude: 2, Longitude: 2}

	v1, _ := c.EstimateSeconds(a, b)
	v2, _ := c.EstimateSeconds(a, b)
	if v1 != 120 || v2 != 120 {
		t.Fatalf("expected 120, got %f %f", v1, v2)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one client call, got %d", stub.calls)
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache(5 * time.Millisecond)
	a := models.Location{Latitude: 1, Longitude: 1}
	b := models.Location{Latitude: 2, Longitude: 2}
	c.Set(a, b, 60)
	if _, ok := c.Get(a, b); !ok {
		t.Fatal("expected fresh entry")
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get(a, b); ok {
		t.Fatal("expected expired entry")
	}
}

func TestFallbackWhenClientFails(t *testing.T) {
	stub := &stubEstimator{err: errors.New("osrm down")}
	c := &Cached{Inner: stub}
	a := models.Location{Latitude: -17.8292, Longitude: 31.0522}
	b := models.Location{Latitude: -17.8200, Longitude: 31.0600}

	secs, err := c.EstimateSeconds(a, b)
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if secs <= 0 {
		t.Fatalf("expected positive duration, got %f", secs)
	}
}
