package taxonomy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache resolves additive codes to display names. The full taxonomy is
// fetched at most once per Cache lifetime; a failed fetch degrades to an
// empty taxonomy for the rest of the session so every lookup falls back to
// the raw code. Per-code results are memoized so repeated lookups never
// re-scan the taxonomy. Safe for concurrent use.
type Cache struct {
	url          string
	snapshotPath string
	httpClient   *http.Client
	log          *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	loaded  bool
	entries map[string]string // lowercase taxonomy id -> name
	names   map[string]string // input code -> resolved name memo
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient overrides the HTTP client used for the taxonomy fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) { cache.httpClient = c }
}

// WithSnapshot makes the cache try a local taxonomy snapshot before going to
// the network. A missing snapshot is not an error.
func WithSnapshot(path string) Option {
	return func(cache *Cache) { cache.snapshotPath = path }
}

// NewCache creates an empty cache for the taxonomy at url. Nothing is fetched
// until the first ResolveName call.
func NewCache(url string, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger,
		names:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveName returns the display name for an additive code ("E322" or
// "e322"), or the code itself when the taxonomy is unavailable or has no
// entry. It never returns an error; remote failure is a degraded mode, not a
// fault the caller can act on.
func (c *Cache) ResolveName(ctx context.Context, code string) string {
	c.mu.RLock()
	if name, ok := c.names[code]; ok {
		c.mu.RUnlock()
		return name
	}
	c.mu.RUnlock()

	c.ensureLoaded(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.names[code]; ok {
		return name
	}
	name := code
	if entry, ok := c.entries[taxonomyKey(code)]; ok && entry != "" {
		name = entry
	}
	c.names[code] = name
	return name
}

// ensureLoaded populates the taxonomy exactly once. Concurrent callers share
// a single in-flight fetch via singleflight.
func (c *Cache) ensureLoaded(ctx context.Context) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	c.group.Do("taxonomy", func() (interface{}, error) {
		c.mu.RLock()
		loaded := c.loaded
		c.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		entries := c.load(ctx)

		c.mu.Lock()
		c.entries = entries
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	})
}

// load fetches the taxonomy, preferring a local snapshot when configured.
// Any failure yields an empty taxonomy.
func (c *Cache) load(ctx context.Context) map[string]string {
	start := time.Now()

	if c.snapshotPath != "" {
		if data, err := os.ReadFile(c.snapshotPath); err == nil {
			if entries, err := parsePayload(data); err == nil {
				c.log.Debug("Loaded additive taxonomy from snapshot",
					"path", c.snapshotPath, "entries", len(entries), "duration", time.Since(start))
				return entries
			}
			c.log.Warn("Taxonomy snapshot unreadable, falling back to remote", "path", c.snapshotPath)
		}
	}

	entries, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn("Additive taxonomy unavailable, additive codes will be shown as-is",
			"error", err, "duration", time.Since(start))
		return map[string]string{}
	}

	c.log.Info("Additive taxonomy loaded", "entries", len(entries), "duration", time.Since(start))
	return entries
}

func (c *Cache) fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create taxonomy request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch taxonomy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("taxonomy fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy response: %w", err)
	}

	entries, err := parsePayload(data)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	return entries, nil
}
