// Package off is the Open Food Facts lookup/search collaborator.
package off

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avocado-app/foodscore/internal/types"
)

// DefaultBaseURL is the production Open Food Facts host.
const DefaultBaseURL = "https://world.openfoodfacts.org"

const userAgent = "foodscore/1.0 (+https://github.com/avocado-app/foodscore)"

// searchPageSize matches the page size the app requests per text search.
const searchPageSize = 20

// Lookup is the product database collaborator contract. A nil product or an
// empty slice means "not found", not an error.
type Lookup interface {
	GetProductByBarcode(ctx context.Context, barcode string) (*types.RawProduct, error)
	SearchProducts(ctx context.Context, query string) ([]types.RawProduct, error)
}

// Client queries the Open Food Facts HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

var _ Lookup = (*Client)(nil)

// NewClient creates a client for the given base URL (DefaultBaseURL when
// empty). A nil httpClient gets a sensible timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, log: logger}
}

// productResponse is the api/v2 product envelope; status 1 means found.
type productResponse struct {
	Status  int               `json:"status"`
	Product *types.RawProduct `json:"product"`
}

// searchResponse is the cgi/search.pl envelope.
type searchResponse struct {
	Products []types.RawProduct `json:"products"`
}

// GetProductByBarcode fetches one product by barcode. Unknown barcodes return
// (nil, nil).
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (*types.RawProduct, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		c.log.Error("Product lookup failed", "barcode", barcode, "error", err)
		return nil, fmt.Errorf("lookup barcode %q: %w", barcode, err)
	}
	// The API answers 404 with a status-0 body for unknown products.
	if status == http.StatusNotFound {
		c.log.Debug("Product not found", "barcode", barcode, "duration", time.Since(start))
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("lookup barcode %q: unexpected status %d", barcode, status)
	}

	var parsed productResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if parsed.Status != 1 || parsed.Product == nil {
		c.log.Debug("Product not found", "barcode", barcode, "duration", time.Since(start))
		return nil, nil
	}

	c.log.Info("Product lookup completed", "barcode", barcode, "duration", time.Since(start))
	return parsed.Product, nil
}

// SearchProducts runs a free-text search. The v2 API search is tag based, so
// this uses the cgi endpoint the way the app always has.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]types.RawProduct, error) {
	start := time.Now()
	endpoint := fmt.Sprintf(
		"%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		c.baseURL, url.QueryEscape(query), searchPageSize,
	)

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		c.log.Error("Product search failed", "query", query, "error", err)
		return nil, fmt.Errorf("search products %q: %w", query, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search products %q: unexpected status %d", query, status)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.log.Info("Product search completed", "query", query, "count", len(parsed.Products), "duration", time.Since(start))
	return parsed.Products, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
