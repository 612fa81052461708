package geo

import "testing"

func TestNearbySortedAndBounded(t *testing.T) {
	g := NewMemoryIndex()
	g.Upsert(Point{ID: "far", Latitude: -17.90, Longitude: 31.20})
	g.Upsert(Point{ID: "near", Latitude: -17.8295, Longitude: 31.0525})
	g.Upsert(Point{ID: "mid", Latitude: -17.84, Longitude: 31.07})

	got := g.Nearby(-17.8292, 31.0522, 10, 5)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" {
		t.Fatalf("order = %s,%s", got[0].ID, got[1].ID)
	}

	got = g.Nearby(-17.8292, 31.0522, 2, 5)
	if len(got) != 1 || got[0].ID != "near" {
		t.Fatalf("radius filter failed: %v", got)
	}

	got = g.Nearby(-17.8292, 31.0522, 100, 2)
	if len(got) != 2 {
		t.Fatalf("limit failed: %v", got)
	}
}

func TestRemove(t *testing.T) {
	g := NewMemoryIndex()
	g.Upsert(Point{ID: "d1", Latitude: 0, Longitude: 0})
	g.Remove("d1")
	if got := g.Nearby(0, 0, 1000, 10); len(got) != 0 {
		t.Fatalf("got %v after remove", got)
	}
}
