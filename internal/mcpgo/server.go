// Package mcpgo exposes the scoring pipeline as MCP tools over stdio or
// authenticated HTTP.
package mcpgo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/avocado-app/foodscore/internal/auth"
	"github.com/avocado-app/foodscore/internal/normalize"
	"github.com/avocado-app/foodscore/internal/off"
	"github.com/avocado-app/foodscore/internal/score"
	"github.com/avocado-app/foodscore/internal/store"
	"github.com/avocado-app/foodscore/internal/types"
)

// responseRecorder wraps http.ResponseWriter to capture response details.
type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.headerWritten {
		return
	}
	r.statusCode = code
	r.headerWritten = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.headerWritten {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(data)
	r.bytesWritten += n
	return n, err
}

// Server wraps the mark3labs MCP server with the scoring pipeline and
// history store.
type Server struct {
	mcpServer  *server.MCPServer
	lookup     off.Lookup
	normalizer *normalize.Normalizer
	history    store.Store
	auth       *auth.BearerTokenAuth
	log        *slog.Logger

	// Health check caching to avoid hammering the store.
	healthMu        sync.RWMutex
	lastHealthCheck time.Time
	lastHealthError error
}

// ScanProductResponse is the structured result of scan_product.
type ScanProductResponse struct {
	Found   bool           `json:"found"`
	Product *types.Product `json:"product,omitempty"`
	Color   string         `json:"color,omitempty"`
}

// SearchProductsResponse is the structured result of search_products.
type SearchProductsResponse struct {
	Found    bool             `json:"found"`
	Count    int              `json:"count"`
	Products []*types.Product `json:"products"`
}

// HistoryProduct is a history entry with a human-readable scan age.
type HistoryProduct struct {
	*types.Product
	Scanned string `json:"scanned"`
}

// ScanHistoryResponse is the structured result of get_scan_history.
type ScanHistoryResponse struct {
	Count    int              `json:"count"`
	Products []HistoryProduct `json:"products"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(lookup off.Lookup, normalizer *normalize.Normalizer, history store.Store, authenticator *auth.BearerTokenAuth, logger *slog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"Foodscore MCP Server",
		"1.0.0",
		server.WithToolCapabilities(false), // tools don't change dynamically
		server.WithRecovery(),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		lookup:     lookup,
		normalizer: normalizer,
		history:    history,
		auth:       authenticator,
		log:        logger,
	}

	s.addTools()
	return s
}

// checkHealthWithCache pings the store with 10-second result caching.
func (s *Server) checkHealthWithCache(ctx context.Context) error {
	const cacheDuration = 10 * time.Second

	s.healthMu.RLock()
	if time.Since(s.lastHealthCheck) < cacheDuration {
		err := s.lastHealthError
		s.healthMu.RUnlock()
		return err
	}
	s.healthMu.RUnlock()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.lastHealthCheck) < cacheDuration {
		return s.lastHealthError
	}

	err := s.history.Ping(ctx)
	s.lastHealthCheck = time.Now()
	s.lastHealthError = err
	return err
}

func (s *Server) addTools() {
	scanTool := mcp.NewTool("scan_product",
		mcp.WithDescription("Look up a product by barcode, compute its quality score, and record it in the scan history."),
		mcp.WithString("barcode",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("The barcode (UPC/EAN) to look up. Required and must be a non-empty string."),
		),
		mcp.WithOutputSchema[ScanProductResponse](),
	)
	s.mcpServer.AddTool(scanTool, s.handleScanProduct)

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search products by free text and return them with quality scores. Results are not added to the scan history."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Search terms, e.g. a product or brand name."),
		),
		mcp.WithOutputSchema[SearchProductsResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchProducts)

	historyTool := mcp.NewTool("get_scan_history",
		mcp.WithDescription("List previously scanned products, most recent first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 100)"),
			mcp.DefaultNumber(20),
			mcp.Min(1),
			mcp.Max(100),
		),
		mcp.WithOutputSchema[ScanHistoryResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(historyTool, s.handleScanHistory)
}

func (s *Server) handleScanProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	barcode, err := request.RequireString("barcode")
	if err != nil {
		s.log.Warn("handleScanProduct: Missing 'barcode' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'barcode': %v", err)), nil
	}

	s.log.Debug("MCP ScanProduct called", "barcode", barcode)

	raw, err := s.lookup.GetProductByBarcode(ctx, barcode)
	if err != nil {
		s.log.Error("Barcode lookup failed", "barcode", barcode, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Lookup failed: %v", err)), nil
	}

	if raw == nil {
		return s.structuredResult(ScanProductResponse{Found: false})
	}

	product := s.normalizer.Normalize(ctx, raw)
	if err := s.history.SaveProduct(ctx, product); err != nil {
		// The score is still useful without history; log and keep going.
		s.log.Warn("Failed to record scan in history", "barcode", barcode, "error", err)
	}

	return s.structuredResult(ScanProductResponse{
		Found:   true,
		Product: product,
		Color:   score.Color(product.Quality),
	})
}

func (s *Server) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		s.log.Warn("handleSearchProducts: Missing 'query' parameter", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Missing required parameter 'query': %v", err)), nil
	}

	s.log.Debug("MCP SearchProducts called", "query", query)

	raws, err := s.lookup.SearchProducts(ctx, query)
	if err != nil {
		s.log.Error("Product search failed", "query", query, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	products := make([]*types.Product, 0, len(raws))
	for i := range raws {
		products = append(products, s.normalizer.Normalize(ctx, &raws[i]))
	}

	return s.structuredResult(SearchProductsResponse{
		Found:    len(products) > 0,
		Count:    len(products),
		Products: products,
	})
}

func (s *Server) handleScanHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 20.0))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	products, err := s.history.RecentProducts(ctx, limit)
	if err != nil {
		s.log.Error("History listing failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("History listing failed: %v", err)), nil
	}

	now := time.Now()
	entries := make([]HistoryProduct, 0, len(products))
	for _, p := range products {
		entries = append(entries, HistoryProduct{
			Product: p,
			Scanned: types.FormatRelativeTime(p.ScannedAt, now),
		})
	}

	return s.structuredResult(ScanHistoryResponse{
		Count:    len(entries),
		Products: entries,
	})
}

// structuredResult returns both structured content and a JSON text fallback
// for maximum client compatibility.
func (s *Server) structuredResult(response interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		s.log.Error("Failed to marshal tool response", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultStructured(response, string(responseJSON)), nil
}

// ServeHTTP serves the MCP server over HTTP with bearer authentication.
func (s *Server) ServeHTTP(addr string) error {
	mux := http.NewServeMux()

	// Health endpoint, no auth required.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if err := s.checkHealthWithCache(r.Context()); err != nil {
			s.log.Error("Health check failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "healthy",
		})
	})

	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovery := recover(); recovery != nil {
				s.log.Error("MCP endpoint panic recovered",
					"panic", recovery,
					"method", r.Method,
					"url", r.URL.String(),
					"remote_addr", r.RemoteAddr)
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			}
		}()

		if !s.auth.IsAuthorized(r) {
			s.auth.SetUnauthorizedHeaders(w)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			s.log.Warn("Unauthorized MCP request", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())
			return
		}

		recorder := &responseRecorder{ResponseWriter: w}
		streamableServer.ServeHTTP(recorder, r)

		s.log.Debug("MCP response sent",
			"status_code", recorder.statusCode,
			"response_size", recorder.bytesWritten)
	})

	s.log.Info("Starting MCP server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// ServeStdio serves the MCP server over stdio. No auth for local use.
func (s *Server) ServeStdio() error {
	s.log.Info("Starting MCP server in stdio mode")
	return server.ServeStdio(s.mcpServer)
}
