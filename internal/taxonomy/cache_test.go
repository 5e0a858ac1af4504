package taxonomy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocado-app/foodscore/internal/config"
)

const taxonomyFixture = `{
	"tags": [
		{"id": "en:e322", "name": "Lecithins"},
		{"id": "en:e250", "name": "Sodium nitrite"},
		{"id": "en:e300", "name": "Ascorbic acid"}
	]
}`

func newTaxonomyServer(t *testing.T, fetches *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches != nil {
			fetches.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, taxonomyFixture)
	}))
}

func TestCache_ResolveName(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")

	t.Run("resolves known codes", func(t *testing.T) {
		srv := newTaxonomyServer(t, nil)
		defer srv.Close()

		cache := NewCache(srv.URL, logger)
		assert.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "E322"))
		assert.Equal(t, "Sodium nitrite", cache.ResolveName(context.Background(), "E250"))
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		srv := newTaxonomyServer(t, nil)
		defer srv.Close()

		cache := NewCache(srv.URL, logger)
		assert.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "e322"))
	})

	t.Run("unknown codes fall back to the code", func(t *testing.T) {
		srv := newTaxonomyServer(t, nil)
		defer srv.Close()

		cache := NewCache(srv.URL, logger)
		assert.Equal(t, "E999", cache.ResolveName(context.Background(), "E999"))
	})
}

func TestCache_SingleFetch(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")
	var fetches atomic.Int64
	srv := newTaxonomyServer(t, &fetches)
	defer srv.Close()

	cache := NewCache(srv.URL, logger)

	// Many concurrent lookups for different codes must share one fetch.
	var wg sync.WaitGroup
	codes := []string{"E322", "E250", "E300", "E999", "e322"}
	for i := 0; i < 20; i++ {
		for _, code := range codes {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				cache.ResolveName(context.Background(), code)
			}(code)
		}
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
}

func TestCache_MemoizesPerCode(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")
	srv := newTaxonomyServer(t, nil)

	cache := NewCache(srv.URL, logger)
	require.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "E322"))

	// With the server gone, memoized and taxonomy-backed lookups still work.
	srv.Close()
	assert.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "E322"))
	assert.Equal(t, "Ascorbic acid", cache.ResolveName(context.Background(), "E300"))
}

func TestCache_DegradesOnFailure(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		cache := NewCache(srv.URL, logger)
		assert.Equal(t, "E322", cache.ResolveName(context.Background(), "E322"))
		// The failure is cached for the session; no retry per lookup.
		assert.Equal(t, "E250", cache.ResolveName(context.Background(), "E250"))
	})

	t.Run("malformed payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json at all")
		}))
		defer srv.Close()

		cache := NewCache(srv.URL, logger)
		assert.Equal(t, "E322", cache.ResolveName(context.Background(), "E322"))
	})

	t.Run("unreachable host", func(t *testing.T) {
		cache := NewCache("http://127.0.0.1:1/additives.json", logger)
		assert.Equal(t, "E322", cache.ResolveName(context.Background(), "E322"))
	})
}

func TestCache_FailureCachedForSession(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewCache(srv.URL, logger)
	cache.ResolveName(context.Background(), "E322")
	cache.ResolveName(context.Background(), "E250")
	cache.ResolveName(context.Background(), "E300")
	assert.Equal(t, int64(1), fetches.Load(), "failed fetch must not be retried per code")

	// A fresh cache instance (a new session) retries the fetch.
	fresh := NewCache(srv.URL, logger)
	fresh.ResolveName(context.Background(), "E322")
	assert.Equal(t, int64(2), fetches.Load())
}

func TestCache_SnapshotPreferred(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")

	snapshotPath := filepath.Join(t.TempDir(), "additives.json")
	require.NoError(t, os.WriteFile(snapshotPath, []byte(taxonomyFixture), 0644))

	var fetches atomic.Int64
	srv := newTaxonomyServer(t, &fetches)
	defer srv.Close()

	cache := NewCache(srv.URL, logger, WithSnapshot(snapshotPath))
	assert.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "E322"))
	assert.Equal(t, int64(0), fetches.Load(), "snapshot should satisfy the load without network")
}

func TestCache_SnapshotMissingFallsBackToRemote(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")
	srv := newTaxonomyServer(t, nil)
	defer srv.Close()

	cache := NewCache(srv.URL, logger, WithSnapshot(filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, "Lecithins", cache.ResolveName(context.Background(), "E322"))
}
