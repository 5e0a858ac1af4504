package taxonomy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocado-app/foodscore/internal/config"
)

func TestManager_EnsureSnapshot(t *testing.T) {
	logger := config.NewTestLogger(io.Discard, "debug")

	t.Run("downloads when no snapshot exists", func(t *testing.T) {
		var gets atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", `"v1"`)
			if r.Method == http.MethodGet {
				gets.Add(1)
				io.WriteString(w, taxonomyFixture)
			}
		}))
		defer srv.Close()

		dir := t.TempDir()
		snapshotPath := filepath.Join(dir, "additives.json")
		metadataPath := filepath.Join(dir, "metadata.json")

		m := NewManager(srv.URL, snapshotPath, metadataPath, logger)
		require.NoError(t, m.EnsureSnapshot(context.Background()))

		assert.Equal(t, int64(1), gets.Load())
		assert.FileExists(t, snapshotPath)
		assert.FileExists(t, metadataPath)

		meta, err := m.loadMetadata()
		require.NoError(t, err)
		assert.Equal(t, `"v1"`, meta.ETag)
		assert.NotEmpty(t, meta.SHA256)
		assert.False(t, meta.DownloadedAt.IsZero())
	})

	t.Run("skips download when etag matches", func(t *testing.T) {
		var gets atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", `"v1"`)
			if r.Method == http.MethodGet {
				gets.Add(1)
				io.WriteString(w, taxonomyFixture)
			}
		}))
		defer srv.Close()

		dir := t.TempDir()
		m := NewManager(srv.URL, filepath.Join(dir, "additives.json"), filepath.Join(dir, "metadata.json"), logger)

		require.NoError(t, m.EnsureSnapshot(context.Background()))
		require.NoError(t, m.EnsureSnapshot(context.Background()))

		assert.Equal(t, int64(1), gets.Load(), "unchanged ETag must not re-download")
	})

	t.Run("re-downloads when etag changes", func(t *testing.T) {
		var gets atomic.Int64
		etag := `"v1"`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", etag)
			if r.Method == http.MethodGet {
				gets.Add(1)
				io.WriteString(w, taxonomyFixture)
			}
		}))
		defer srv.Close()

		dir := t.TempDir()
		m := NewManager(srv.URL, filepath.Join(dir, "additives.json"), filepath.Join(dir, "metadata.json"), logger)

		require.NoError(t, m.EnsureSnapshot(context.Background()))
		etag = `"v2"`
		require.NoError(t, m.EnsureSnapshot(context.Background()))

		assert.Equal(t, int64(2), gets.Load())
	})

	t.Run("rejects malformed remote payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}))
		defer srv.Close()

		dir := t.TempDir()
		snapshotPath := filepath.Join(dir, "additives.json")
		m := NewManager(srv.URL, snapshotPath, filepath.Join(dir, "metadata.json"), logger)

		assert.Error(t, m.EnsureSnapshot(context.Background()))
		_, err := os.Stat(snapshotPath)
		assert.True(t, os.IsNotExist(err), "malformed payload must not replace the snapshot")
	})

	t.Run("download failure surfaces as error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		dir := t.TempDir()
		m := NewManager(srv.URL, filepath.Join(dir, "additives.json"), filepath.Join(dir, "metadata.json"), logger)
		assert.Error(t, m.EnsureSnapshot(context.Background()))
	})
}
