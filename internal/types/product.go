package types

import (
	"encoding/json"
	"time"
)

// Severity is the three-level risk classification assigned to additives.
type Severity string

const (
	SeverityGood    Severity = "good"
	SeverityCaution Severity = "caution"
	SeverityWarning Severity = "warning"
)

// Quality is the discrete score band shown to the user.
type Quality string

const (
	QualityAvoid     Quality = "Avoid"
	QualityLimit     Quality = "Limit"
	QualityGood      Quality = "Good"
	QualityExcellent Quality = "Excellent"
)

// Additive is one classified food additive. Code is always "E" plus digits,
// uppercase. Name falls back to Code when the taxonomy has no entry.
type Additive struct {
	Name     string   `json:"name"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
}

// Nutriments is the raw nutrient payload from Open Food Facts. Values can be
// numbers or numeric strings depending on the product, so access goes through
// Float rather than direct indexing.
type Nutriments map[string]interface{}

// Float returns the value for key coerced to a float64. The second return is
// false when the key is absent, null, or not numeric. A present zero is a
// valid measurement and returns (0, true).
func (n Nutriments) Float(key string) (float64, bool) {
	if n == nil {
		return 0, false
	}
	v, ok := n[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(t), &f); err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// RawProduct is the unprocessed product record from the Open Food Facts
// database. Every field is optional; missing data is the normal case, not an
// error. Pointer fields distinguish "absent" from a legitimate zero.
type RawProduct struct {
	Code             string     `json:"code"`
	ProductName      string     `json:"product_name"`
	Brands           string     `json:"brands"`
	ImageURL         string     `json:"image_url,omitempty"`
	ImageFrontURL    string     `json:"image_front_url,omitempty"`
	NutriscoreScore  *int       `json:"nutriscore_score,omitempty"`
	AdditivesTags    []string   `json:"additives_tags,omitempty"`
	AllergensTags    []string   `json:"allergens_tags,omitempty"`
	IngredientsText  string     `json:"ingredients_text,omitempty"`
	PalmOilTags      []string   `json:"ingredients_from_palm_oil_tags,omitempty"`
	MaybePalmOilTags []string   `json:"ingredients_that_may_be_from_palm_oil_tags,omitempty"`
	Vegan            string     `json:"vegan,omitempty"`
	Vegetarian       string     `json:"vegetarian,omitempty"`
	Nutriments       Nutriments `json:"nutriments,omitempty"`
}

// Image returns the preferred display image URL, front image first.
func (p *RawProduct) Image() string {
	if p.ImageFrontURL != "" {
		return p.ImageFrontURL
	}
	return p.ImageURL
}

// Product is the canonical normalized record produced once per scan or search
// result. The persistence layer owns it afterwards and mutates only
// IsFavorite and ScannedAt (refreshed on re-scan).
//
// Calories, Sugars and Salt are nil when the source provides no usable value.
// Zero is a valid measurement and is never used to mean "unknown".
type Product struct {
	ID          string     `json:"id"`
	Barcode     string     `json:"barcode"`
	Name        string     `json:"name"`
	Brand       string     `json:"brand,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Score       int        `json:"score"`
	Quality     Quality    `json:"quality"`
	ScannedAt   time.Time  `json:"scannedAt"`
	IsFavorite  bool       `json:"isFavorite"`
	Additives   []Additive `json:"additives"`
	Allergens   []string   `json:"allergens"`
	DietInfo    []string   `json:"dietInfo"`
	Ingredients []string   `json:"ingredients"`
	HasSeedOil  bool       `json:"hasSeedOil"`
	HasPalmOil  bool       `json:"hasPalmOil"`
	Calories    *int       `json:"calories,omitempty"`
	Sugars      *float64   `json:"sugars,omitempty"`
	Salt        *float64   `json:"salt,omitempty"`
}
