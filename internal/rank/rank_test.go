package rank

import (
	"testing"

	"aforo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, score float64) models.Recommendation {
	return models.Recommendation{Event: &models.Event{ID: id}, Score: score}
}

func TestTierThresholds(t *testing.T) {
	cases := []struct {
		score float64
		tier  string
	}{
		{0.9, TierHighlyRecommended},
		{0.8, TierHighlyRecommended},
		{0.79, TierRecommended},
		{0.6, TierRecommended},
		{0.59, TierMayInterest},
		{0.4, TierMayInterest},
		{0.39, TierGeneral},
		{0.3, TierGeneral},
		{0, TierGeneral},
	}
	for _, c := range cases {
		assert.Equal(t, c.tier, Tier(c.score), "score %v", c.score)
	}
}

func TestRankOrdersDescending(t *testing.T) {
	input := []models.Recommendation{rec("low", 0.3), rec("high", 0.9), rec("mid", 0.6)}

	ranked := Rank(input)
	require.Len(t, ranked, 3)

	assert.Equal(t, "high", ranked[0].Event.ID)
	assert.Equal(t, "mid", ranked[1].Event.ID)
	assert.Equal(t, "low", ranked[2].Event.ID)

	assert.Equal(t, TierHighlyRecommended, ranked[0].Tier)
	assert.Equal(t, TierRecommended, ranked[1].Tier)
	assert.Equal(t, TierGeneral, ranked[2].Tier, "0.3 falls below the 0.4 cutoff")

	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, 90, ranked[0].MatchPercent)
}

func TestRankStableForEqualScores(t *testing.T) {
	input := []models.Recommendation{rec("a", 0.5), rec("b", 0.5), rec("c", 0.5)}

	ranked := Rank(input)
	assert.Equal(t, "a", ranked[0].Event.ID)
	assert.Equal(t, "b", ranked[1].Event.ID)
	assert.Equal(t, "c", ranked[2].Event.ID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	input := []models.Recommendation{rec("low", 0.1), rec("high", 0.9)}
	_ = Rank(input)
	assert.Equal(t, "low", input[0].Event.ID)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
