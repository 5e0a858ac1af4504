package off

import (
	"context"
	"strings"

	"github.com/avocado-app/foodscore/internal/types"
)

// MockLookup is an in-memory Lookup for tests.
type MockLookup struct {
	products []types.RawProduct
	err      error
}

var _ Lookup = (*MockLookup)(nil)

// NewMockLookup creates a mock with a small fixture set.
func NewMockLookup() *MockLookup {
	twentySix, five := 26, 5
	return &MockLookup{
		products: []types.RawProduct{
			{
				Code:            "3017620422003",
				ProductName:     "Nutella",
				Brands:          "Ferrero",
				NutriscoreScore: &twentySix,
				AdditivesTags:   []string{"en:e322"},
				IngredientsText: "Sugar, Palm Oil, Hazelnuts, Cocoa, Milk Powder, Lecithin",
				PalmOilTags:     []string{"en:palm-oil"},
				Nutriments: types.Nutriments{
					"energy-kcal": 539.0,
					"sugars":      56.3,
					"salt":        0.107,
				},
			},
			{
				Code:            "737628064502",
				ProductName:     "Rice Noodles",
				Brands:          "Thai Kitchen",
				NutriscoreScore: &five,
				IngredientsText: "Rice, Water",
				Nutriments: types.Nutriments{
					"energy-kj": 1507.0,
					"sodium":    0.4,
				},
			},
		},
	}
}

// GetProductByBarcode returns a fixture by exact code, nil when unknown.
func (m *MockLookup) GetProductByBarcode(ctx context.Context, barcode string) (*types.RawProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].Code == barcode {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

// SearchProducts matches fixtures by case-insensitive name substring.
func (m *MockLookup) SearchProducts(ctx context.Context, query string) ([]types.RawProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	var results []types.RawProduct
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.ProductName), strings.ToLower(query)) {
			results = append(results, p)
		}
	}
	return results, nil
}

// SetError makes every call fail with err.
func (m *MockLookup) SetError(err error) { m.err = err }

// SetProducts replaces the fixture set.
func (m *MockLookup) SetProducts(products []types.RawProduct) { m.products = products }
