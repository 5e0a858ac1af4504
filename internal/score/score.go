// Package score derives the 0-100 quality score and its display bands from a
// raw Open Food Facts record.
package score

import (
	"math"

	"github.com/avocado-app/foodscore/internal/ingredient"
	"github.com/avocado-app/foodscore/internal/types"
)

// Nutri-Score runs from -15 (best) to 40 (worst); the normalization below
// remaps that 55-point span onto 0-100 with higher meaning better. The
// constants encode the assumed Nutri-Score range and must stay in sync with
// the tests.
const (
	nutriScoreWorst = 40
	nutriScoreSpan  = 55
)

// Fallback scoring, used only when no Nutri-Score is present.
const (
	fallbackBase    = 50
	additivePenalty = 5
	palmOilPenalty  = 10
)

// Compute returns the product score, always clamped to [0, 100].
//
// When the record carries a Nutri-Score it is authoritative:
// round(clamp(((40-nutriscore)/55)*100, 0, 100)). Otherwise a heuristic
// starts at 50 and deducts 5 per additive tag and 10 for palm oil presence.
// Enough additives can legitimately drive the fallback to 0.
func Compute(p *types.RawProduct) int {
	if p.NutriscoreScore != nil {
		normalized := (float64(nutriScoreWorst-*p.NutriscoreScore) / nutriScoreSpan) * 100
		return int(math.Round(clamp(normalized, 0, 100)))
	}

	s := fallbackBase
	s -= additivePenalty * len(p.AdditivesTags)
	if ingredient.HasPalmOil(p.PalmOilTags, p.MaybePalmOilTags) {
		s -= palmOilPenalty
	}
	return int(clamp(float64(s), 0, 100))
}

// Label maps a score to its quality band. Total over all integers; first
// match wins.
func Label(score int) types.Quality {
	switch {
	case score >= 75:
		return types.QualityExcellent
	case score >= 60:
		return types.QualityGood
	case score >= 40:
		return types.QualityLimit
	default:
		return types.QualityAvoid
	}
}

// Color returns the display color token for a quality band.
//
// Note that ColorForScore uses different cut points (75/50/25) than the label
// thresholds (75/60/40), so for scores in [50,60) the two scales disagree:
// the label is Limit but the score-keyed color is the Good green. Both scales
// are kept as-is; callers pick the one their surface was built against.
func Color(q types.Quality) string {
	switch q {
	case types.QualityExcellent:
		return "#2E7D32" // dark green
	case types.QualityGood:
		return "#8BC34A" // light green
	case types.QualityLimit:
		return "#FF9800" // orange
	case types.QualityAvoid:
		return "#F44336" // red
	default:
		return "#518E22" // medium green fallback
	}
}

// ColorForScore returns the display color keyed directly off the raw score.
// See the divergence note on Color.
func ColorForScore(score int) string {
	switch {
	case score >= 75:
		return "#2E7D32"
	case score >= 50:
		return "#8BC34A"
	case score >= 25:
		return "#FF9800"
	default:
		return "#F44336"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
