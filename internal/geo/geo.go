package geo

import (
	"math"
	"sync"
	"time"
)

// Point is a located entity: an online driver or a pending trip's
// pickup.
type Point struct {
	ID        string
	Latitude  float64
	Longitude float64
	Updated   time.Time
}

// Index is the minimal interface the nearby queries need.
type Index interface {
	Upsert(p Point)
	Remove(id string)
	Nearby(lat, lng, radiusKm float64, limit int) []Point
}

type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

func (g *MemoryIndex) Upsert(p Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Updated = time.Now()
	g.points[p.ID] = p
}

func (g *MemoryIndex) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.points, id)
}

// naive scan; in prod use geo-hash or H3
func (g *MemoryIndex) Nearby(lat, lng, radiusKm float64, limit int) []Point {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		p    Point
		dist float64
	}
	arr := make([]pair, 0, len(g.points))
	for _, p := range g.points {
		dist := haversineKm(lat, lng, p.Latitude, p.Longitude)
		if dist > radiusKm {
			continue
		}
		arr = append(arr, pair{p, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].p)
	}
	return out
}

// haversineKm duplicated locally to keep this package dependency-free.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
