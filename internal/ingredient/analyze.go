// Package ingredient inspects ingredient text and tag lists for seed oils,
// palm oil, and display splitting.
package ingredient

import "strings"

// seedOilKeywords is the fixed set of refined seed oils flagged for display.
// Matching is plain substring over the joined, lowercased ingredient text, so
// "high oleic sunflower oil concentrate" matches via "sunflower oil". That
// permissive semantics is deliberate and covered by tests.
var seedOilKeywords = []string{
	"soybean oil",
	"canola oil",
	"rapeseed oil",
	"sunflower oil",
	"corn oil",
	"cottonseed oil",
	"safflower oil",
	"grapeseed oil",
}

// HasSeedOil reports whether any seed-oil keyword appears in the ingredient
// list. Empty or nil input is never a match.
func HasSeedOil(ingredients []string) bool {
	if len(ingredients) == 0 {
		return false
	}
	text := strings.ToLower(strings.Join(ingredients, " "))
	for _, kw := range seedOilKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// HasPalmOil reports palm oil presence from the two Open Food Facts tag
// lists. Either list being non-empty counts; ingredient text is not consulted.
func HasPalmOil(fromPalmOilTags, maybeFromPalmOilTags []string) bool {
	return len(fromPalmOilTags) > 0 || len(maybeFromPalmOilTags) > 0
}

// Split turns a raw ingredients_text into the displayed ingredient list by
// splitting on commas and trimming each segment. Empty text yields an empty
// list, never nil segments.
func Split(ingredientsText string) []string {
	if strings.TrimSpace(ingredientsText) == "" {
		return []string{}
	}
	parts := strings.Split(ingredientsText, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
