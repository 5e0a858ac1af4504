package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasSeedOil(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []string
		expected    bool
	}{
		{"nil input", nil, false},
		{"empty input", []string{}, false},
		{"no seed oils", []string{"Water", "Salt", "Olive Oil"}, false},
		{"exact keyword", []string{"sunflower oil"}, true},
		{"case insensitive", []string{"Sunflower Oil"}, true},
		{"substring inside larger phrase", []string{"high oleic sunflower oil concentrate"}, true},
		{"space join lets keyword span adjacent segments", []string{"canola", "oil"}, true},
		{"keyword in later ingredient", []string{"Water", "Soybean Oil"}, true},
		{"all keywords recognized", []string{
			"soybean oil", "canola oil", "rapeseed oil", "sunflower oil",
			"corn oil", "cottonseed oil", "safflower oil", "grapeseed oil",
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasSeedOil(tt.ingredients))
		})
	}
}

func TestHasPalmOil(t *testing.T) {
	assert.False(t, HasPalmOil(nil, nil))
	assert.False(t, HasPalmOil([]string{}, []string{}))
	assert.True(t, HasPalmOil([]string{"en:palm-oil"}, nil))
	assert.True(t, HasPalmOil(nil, []string{"en:e471"}))
	assert.True(t, HasPalmOil([]string{"en:palm-oil"}, []string{"en:e471"}))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty text", "", []string{}},
		{"whitespace only", "   ", []string{}},
		{"single ingredient", "Water", []string{"Water"}},
		{"trims segments", "Water, Sunflower Oil, Salt", []string{"Water", "Sunflower Oil", "Salt"}},
		{"keeps empty segments", "Water,,Salt", []string{"Water", "", "Salt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Split(tt.text))
		})
	}
}
