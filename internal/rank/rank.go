// Package rank orders and labels backend recommendation scores for
// display. Presentation-only: it never influences what gets fetched.
package rank

import (
	"sort"

	"aforo/internal/models"
)

const (
	TierHighlyRecommended = "highly recommended"
	TierRecommended       = "recommended"
	TierMayInterest       = "may interest you"
	TierGeneral           = "general suggestion"
)

// Tier buckets a score into its display tier by fixed thresholds.
func Tier(score float64) string {
	switch {
	case score >= 0.8:
		return TierHighlyRecommended
	case score >= 0.6:
		return TierRecommended
	case score >= 0.4:
		return TierMayInterest
	default:
		return TierGeneral
	}
}

// Ranked is a recommendation with its display annotations.
type Ranked struct {
	models.Recommendation
	Position     int    `json:"position"`
	Tier         string `json:"tier"`
	MatchPercent int    `json:"match_percent"`
}

// Rank sorts recommendations descending by score (stable, so equal
// scores keep backend order) and annotates each with its tier.
func Rank(recs []models.Recommendation) []Ranked {
	sorted := make([]models.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	ranked := make([]Ranked, len(sorted))
	for i, rec := range sorted {
		ranked[i] = Ranked{
			Recommendation: rec,
			Position:       i + 1,
			Tier:           Tier(rec.Score),
			MatchPercent:   int(rec.Score * 100),
		}
	}
	return ranked
}
