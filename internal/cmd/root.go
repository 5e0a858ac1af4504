package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/avocado-app/foodscore/internal/additive"
	"github.com/avocado-app/foodscore/internal/auth"
	"github.com/avocado-app/foodscore/internal/config"
	"github.com/avocado-app/foodscore/internal/mcpgo"
	"github.com/avocado-app/foodscore/internal/normalize"
	"github.com/avocado-app/foodscore/internal/off"
	"github.com/avocado-app/foodscore/internal/score"
	"github.com/avocado-app/foodscore/internal/store"
	"github.com/avocado-app/foodscore/internal/taxonomy"
	"github.com/avocado-app/foodscore/internal/types"
	"github.com/avocado-app/foodscore/internal/version"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "foodscore",
	Short: "Food quality scoring over the Open Food Facts database",
	Long: `foodscore looks up packaged food products in Open Food Facts, computes a
0-100 quality score, classifies additives by risk, and flags seed oil and
palm oil content. Scanned products are kept in a local history with
favorites.

The server operates in three modes:

1. STDIO Mode (--stdio): For local Claude Desktop integration
   - Uses stdio pipes for communication
   - No authentication required

2. HTTP Mode (default): For remote deployment over the internet
   - Exposes HTTP endpoints with JSON-RPC 2.0
   - Requires Bearer token authentication (except /health)

3. Fetch Taxonomy Mode (--fetch-taxonomy): Download the additive taxonomy
   and exit. Pre-warms the on-disk snapshot so offline sessions still
   resolve additive names.

Available MCP Tools:
- scan_product: Look up a barcode, score it, and record it in history
- search_products: Free-text product search with scores
- get_scan_history: List previously scanned products

The scan, search, and history subcommands run the same pipeline directly
from the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fetchTaxonomy, _ := cmd.Flags().GetBool("fetch-taxonomy")
		if fetchTaxonomy {
			return runFetchTaxonomyMode(cmd, args)
		}

		stdio, _ := cmd.Flags().GetBool("stdio")
		if stdio {
			return runStdioMode(cmd, args)
		}
		return runHTTPMode(cmd, args)
	},
}

func init() {
	rootCmd.Version = version.String()
	rootCmd.Flags().Bool("stdio", false, "Run in stdio mode for local Claude Desktop integration (default: HTTP mode)")
	rootCmd.Flags().Bool("fetch-taxonomy", false, "Fetch the additive taxonomy snapshot and exit")
	rootCmd.AddCommand(scanCmd, searchCmd, historyCmd)
}

// pipeline bundles the collaborators every mode needs.
type pipeline struct {
	lookup     off.Lookup
	normalizer *normalize.Normalizer
	history    store.Store
}

func buildPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	lookup := off.NewClient(cfg.OFFBaseURL, httpClient, logger)

	cache := taxonomy.NewCache(cfg.TaxonomyURL, logger,
		taxonomy.WithHTTPClient(httpClient),
		taxonomy.WithSnapshot(cfg.TaxonomyPath),
	)
	normalizer := normalize.New(additive.NewClassifier(cache), logger)

	history, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	return &pipeline{lookup: lookup, normalizer: normalizer, history: history}, nil
}

// runFetchTaxonomyMode downloads the taxonomy snapshot and exits.
func runFetchTaxonomyMode(cmd *cobra.Command, args []string) error {
	logger := config.NewTextLogger(os.Stdout)
	cfg := config.Load()

	logger.Info("Starting taxonomy fetch",
		"mode", "fetch-taxonomy",
		"target_dir", filepath.Dir(cfg.TaxonomyPath))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	manager := taxonomy.NewManager(cfg.TaxonomyURL, cfg.TaxonomyPath, cfg.TaxonomyMetadataPath, logger)
	if err := manager.EnsureSnapshot(context.Background()); err != nil {
		logger.Error("Failed to fetch taxonomy", "error", err)
		return err
	}

	logger.Info("Taxonomy fetch completed", "snapshot_path", cfg.TaxonomyPath)
	return nil
}

// runStdioMode runs the MCP server on stdio for Claude Desktop.
func runStdioMode(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(true)
	cfg := config.Load()

	logger.Info("Starting foodscore MCP server in STDIO mode",
		"mode", "stdio",
		"auth", "not required for stdio mode",
		"transport", "stdio pipes")

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		return err
	}
	defer p.history.Close()

	authenticator := auth.NewBearerTokenAuth(cfg.AuthToken)
	srv := mcpgo.NewServer(p.lookup, p.normalizer, p.history, authenticator, logger)
	return srv.ServeStdio()
}

// runHTTPMode runs the MCP server over HTTP for remote deployment.
func runHTTPMode(cmd *cobra.Command, args []string) error {
	logger := config.NewLogger(false)
	cfg := config.Load()

	logger.Info("Starting foodscore MCP server in HTTP mode",
		"mode", "http",
		"auth", "Bearer token required (except /health endpoint)",
		"transport", "HTTP/JSON-RPC 2.0",
		"port", cfg.Port)

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		return err
	}
	defer p.history.Close()

	authenticator := auth.NewBearerTokenAuth(cfg.AuthToken)
	srv := mcpgo.NewServer(p.lookup, p.normalizer, p.history, authenticator, logger)
	return srv.ServeHTTP(":" + cfg.Port)
}

var scanCmd = &cobra.Command{
	Use:   "scan <barcode>",
	Short: "Look up a barcode, score it, and record it in the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := config.NewTextLogger(os.Stderr)
		cfg := config.Load()

		p, err := buildPipeline(cfg, logger)
		if err != nil {
			return err
		}
		defer p.history.Close()

		ctx := cmd.Context()
		raw, err := p.lookup.GetProductByBarcode(ctx, args[0])
		if err != nil {
			return err
		}
		if raw == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No product found for barcode %s\n", args[0])
			return nil
		}

		product := p.normalizer.Normalize(ctx, raw)
		if err := p.history.SaveProduct(ctx, product); err != nil {
			logger.Warn("Failed to record scan in history", "error", err)
		}

		return printJSON(cmd, product)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by free text and print them with scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := config.NewTextLogger(os.Stderr)
		cfg := config.Load()

		p, err := buildPipeline(cfg, logger)
		if err != nil {
			return err
		}
		defer p.history.Close()

		ctx := cmd.Context()
		raws, err := p.lookup.SearchProducts(ctx, args[0])
		if err != nil {
			return err
		}

		products := make([]*types.Product, 0, len(raws))
		for i := range raws {
			products = append(products, p.normalizer.Normalize(ctx, &raws[i]))
		}
		return printJSON(cmd, products)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously scanned products, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := config.NewTextLogger(os.Stderr)
		cfg := config.Load()

		p, err := buildPipeline(cfg, logger)
		if err != nil {
			return err
		}
		defer p.history.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		products, err := p.history.RecentProducts(cmd.Context(), limit)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, prod := range products {
			marker := " "
			if prod.IsFavorite {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s %3d %-9s %-8s %s\n",
				marker, prod.Barcode, prod.Score, prod.Quality,
				score.ColorForScore(prod.Score),
				types.FormatRelativeTime(prod.ScannedAt, now))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of history entries to show")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// Run is the main entry point for the CLI application.
func Run() error {
	return Execute()
}
