package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avocado-app/foodscore/internal/types"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu        sync.Mutex
	products  map[string]*types.Product // by barcode
	favorites []string                  // product ids in favoriting order
	err       error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]*types.Product)}
}

// SetError makes every call fail with err.
func (m *MemoryStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryStore) SaveProduct(ctx context.Context, p *types.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *p
	m.products[p.Barcode] = &cp
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			out := *p
			out.IsFavorite = m.isFavorite(id)
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) RecentProducts(ctx context.Context, limit int) ([]*types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*types.Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		cp.IsFavorite = m.isFavorite(p.ID)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) RemoveProducts(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for barcode, p := range m.products {
		if drop[p.ID] {
			delete(m.products, barcode)
		}
	}
	kept := m.favorites[:0]
	for _, id := range m.favorites {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	m.favorites = kept
	return nil
}

func (m *MemoryStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for i, fav := range m.favorites {
		if fav == id {
			m.favorites = append(m.favorites[:i], m.favorites[i+1:]...)
			return false, nil
		}
	}
	m.favorites = append(m.favorites, id)
	return true, nil
}

func (m *MemoryStore) Favorites(ctx context.Context) ([]*types.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*types.Product{}
	for _, id := range m.favorites {
		for _, p := range m.products {
			if p.ID == id {
				cp := *p
				cp.IsFavorite = true
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) isFavorite(id string) bool {
	for _, fav := range m.favorites {
		if fav == id {
			return true
		}
	}
	return false
}

// Touch exists so tests can backdate a scan without reaching into internals.
func (m *MemoryStore) Touch(barcode string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[barcode]; ok {
		p.ScannedAt = at
	}
}
