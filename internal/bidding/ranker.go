package bidding

import (
	"sort"

	"github.com/example/hande/internal/models"
)

// Weights tune the bid score. Lower score ranks first.
// score = amount + etaWeight*eta_minutes + ratingWeight*(5 - rating)
type Weights struct {
	ETAPerMinute float64
	RatingPoint  float64
}

var DefaultWeights = Weights{ETAPerMinute: 0.15, RatingPoint: 0.5}

func score(b models.Bid, w Weights) float64 {
	return b.Amount + w.ETAPerMinute*float64(b.ETAMinutes) + w.RatingPoint*(5.0-b.DriverRating)
}

// Rank returns a copy of bids sorted best-first. Riders still choose; this is
// the recommendation order shown to them.
func Rank(bids []models.Bid, w Weights) []models.Bid {
	out := make([]models.Bid, len(bids))
	copy(out, bids)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(out[i], w), score(out[j], w)
		if si != sj {
			return si < sj
		}
		// tie: higher-rated driver first
		return out[i].DriverRating > out[j].DriverRating
	})
	return out
}

// Best returns the top-ranked bid, or false when there are none.
func Best(bids []models.Bid, w Weights) (models.Bid, bool) {
	if len(bids) == 0 {
		return models.Bid{}, false
	}
	return Rank(bids, w)[0], true
}
