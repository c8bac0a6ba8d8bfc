package scoring

import (
	"math"

	"phishtrainer/internal/catalog"
)

// Result is the derived score for a finished session. Raw is the point
// value; Normalized is the same outcome clamped onto the 0-10 leaderboard
// scale. Which one a level persists is the level's normalize_score flag.
type Result struct {
	Raw        int `json:"raw"`
	Normalized int `json:"normalized"`
}

// Compute derives the score for a finished session. Pure: identical inputs
// always yield identical results. Any non-successful outcome scores zero.
func Compute(lvl *catalog.Level, succeeded bool, elapsedSeconds, wrongClicks int) Result {
	if !succeeded {
		return Result{}
	}
	penalty := wrongClicks * catalog.WrongClickPenalty
	timePenalty := elapsedSeconds / lvl.TimePenaltyInterval * lvl.TimePenaltyUnit
	raw := lvl.BaseScore - penalty - timePenalty
	if raw < 0 {
		raw = 0
	}
	return Result{Raw: raw, Normalized: normalize(raw, lvl.BaseScore)}
}

// LeaderboardValue picks the scale the level's leaderboard family expects.
func LeaderboardValue(lvl *catalog.Level, r Result) int {
	if lvl.NormalizeScore {
		return r.Normalized
	}
	return r.Raw
}

func normalize(raw, base int) int {
	n := int(math.Round(float64(raw) / float64(base) * 10))
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
