// Package nutrient extracts calories, sugars and salt from a raw nutrient
// payload. Each value has an explicit, ordered list of extraction strategies
// evaluated in priority order; the first usable one wins and a missing value
// stays nil rather than defaulting to zero.
package nutrient

import (
	"math"

	"github.com/avocado-app/foodscore/internal/types"
)

// strategy reads one candidate key and converts its value.
type strategy struct {
	key     string
	convert func(float64) float64
}

func identity(v float64) float64 { return v }

var (
	// kcal is preferred; kJ is converted at 4.184 kJ/kcal.
	calorieStrategies = []strategy{
		{key: "energy-kcal", convert: identity},
		{key: "energy-kj", convert: func(v float64) float64 { return v / 4.184 }},
	}

	sugarStrategies = []strategy{
		{key: "sugars", convert: identity},
	}

	// Salt may be reported directly or as sodium; salt = sodium * 2.5.
	saltStrategies = []strategy{
		{key: "salt", convert: identity},
		{key: "sodium", convert: func(v float64) float64 { return v * 2.5 }},
	}
)

func extract(n types.Nutriments, strategies []strategy) *float64 {
	for _, s := range strategies {
		if v, ok := n.Float(s.key); ok {
			out := s.convert(v)
			return &out
		}
	}
	return nil
}

// Calories returns the energy in kcal rounded to the nearest integer, or nil
// when neither energy-kcal nor energy-kj is present.
func Calories(n types.Nutriments) *int {
	v := extract(n, calorieStrategies)
	if v == nil {
		return nil
	}
	kcal := int(math.Round(*v))
	return &kcal
}

// Sugars returns grams of sugar per 100 g, or nil when absent. No unit
// conversion is applied.
func Sugars(n types.Nutriments) *float64 {
	return extract(n, sugarStrategies)
}

// Salt returns grams of salt per 100 g, derived from sodium when salt itself
// is not reported, or nil when neither is present.
func Salt(n types.Nutriments) *float64 {
	return extract(n, saltStrategies)
}
