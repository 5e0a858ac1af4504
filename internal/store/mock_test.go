package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_BehavesLikeStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, m.SaveProduct(ctx, sampleProduct("a", base)))
	require.NoError(t, m.SaveProduct(ctx, sampleProduct("b", base.Add(time.Hour))))

	got, err := m.GetProduct(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Chocolate Spread", got.Name)

	recent, err := m.RecentProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Barcode)

	m.Touch("a", base.Add(2*time.Hour))
	recent, err = m.RecentProducts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "a", recent[0].Barcode)

	fav, err := m.ToggleFavorite(ctx, "a")
	require.NoError(t, err)
	assert.True(t, fav)
	favorites, err := m.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "a", favorites[0].Barcode)

	require.NoError(t, m.RemoveProducts(ctx, []string{"a"}))
	favorites, err = m.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestMemoryStore_SetError(t *testing.T) {
	m := NewMemoryStore()
	boom := errors.New("store down")
	m.SetError(boom)

	assert.ErrorIs(t, m.Ping(context.Background()), boom)
	assert.ErrorIs(t, m.SaveProduct(context.Background(), sampleProduct("a", time.Now())), boom)
	_, err := m.RecentProducts(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
}
