// Package normalize assembles canonical Product records from raw Open Food
// Facts data.
package normalize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/avocado-app/foodscore/internal/additive"
	"github.com/avocado-app/foodscore/internal/ingredient"
	"github.com/avocado-app/foodscore/internal/nutrient"
	"github.com/avocado-app/foodscore/internal/score"
	"github.com/avocado-app/foodscore/internal/types"
)

// placeholderName is shown when the source record has no product name.
const placeholderName = "Unknown Product"

// Normalizer composes the score engine, additive classifier, nutrient
// extractor and ingredient analyzer into one canonical record per raw
// product. It never fails for sparse input; missing data degrades to nil
// fields and empty collections.
type Normalizer struct {
	classifier *additive.Classifier
	now        func() time.Time
	log        *slog.Logger
}

// New creates a Normalizer using the given classifier.
func New(classifier *additive.Classifier, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		classifier: classifier,
		now:        time.Now,
		log:        logger,
	}
}

// Normalize builds the canonical product. ID and Barcode are both the raw
// product code; they are duplicated fields, not independent identifiers.
func (n *Normalizer) Normalize(ctx context.Context, raw *types.RawProduct) *types.Product {
	start := time.Now()

	s := score.Compute(raw)
	ingredients := ingredient.Split(raw.IngredientsText)

	name := raw.ProductName
	if name == "" {
		name = placeholderName
	}

	p := &types.Product{
		ID:          raw.Code,
		Barcode:     raw.Code,
		Name:        name,
		Brand:       raw.Brands,
		ImageURL:    raw.Image(),
		Score:       s,
		Quality:     score.Label(s),
		ScannedAt:   n.now(),
		IsFavorite:  false,
		Additives:   n.classifier.Classify(ctx, raw.AdditivesTags),
		Allergens:   cleanAllergens(raw.AllergensTags),
		DietInfo:    dietInfo(raw),
		Ingredients: ingredients,
		HasSeedOil:  ingredient.HasSeedOil(ingredients),
		HasPalmOil:  ingredient.HasPalmOil(raw.PalmOilTags, raw.MaybePalmOilTags),
		Calories:    nutrient.Calories(raw.Nutriments),
		Sugars:      nutrient.Sugars(raw.Nutriments),
		Salt:        nutrient.Salt(raw.Nutriments),
	}

	n.log.Debug("Product normalized",
		"barcode", p.Barcode,
		"score", p.Score,
		"quality", p.Quality,
		"additives", len(p.Additives),
		"duration", time.Since(start))
	return p
}

// dietInfo derives display statements from the vegan/vegetarian flags.
func dietInfo(raw *types.RawProduct) []string {
	info := []string{}
	if raw.Vegan == "yes" {
		info = append(info, "Vegan")
	}
	if raw.Vegetarian == "yes" {
		info = append(info, "Vegetarian")
	}
	return info
}

// cleanAllergens keeps English allergen tags and strips the language prefix
// for display. Title casing stays simple ASCII; allergen ids are ASCII.
func cleanAllergens(tags []string) []string {
	out := []string{}
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if !strings.HasPrefix(lower, "en:") {
			continue
		}
		name := strings.TrimPrefix(lower, "en:")
		if name == "" {
			continue
		}
		out = append(out, strings.ToUpper(name[:1])+name[1:])
	}
	return out
}
