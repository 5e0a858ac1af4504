// Package store persists scan history and favorites in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avocado-app/foodscore/internal/types"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is the scan history contract. Products are keyed by barcode:
// re-scanning an existing barcode overwrites the record and refreshes
// ScannedAt. Favorites are a separate ordered set of product ids and survive
// re-scans.
type Store interface {
	SaveProduct(ctx context.Context, p *types.Product) error
	GetProduct(ctx context.Context, id string) (*types.Product, error)
	RecentProducts(ctx context.Context, limit int) ([]*types.Product, error)
	RemoveProducts(ctx context.Context, ids []string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Favorites(ctx context.Context) ([]*types.Product, error)
	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at dbPath and applies the
// schema. Use ":memory:" for throwaway stores in tests.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveProduct inserts the product, or on a barcode collision overwrites the
// row and refreshes scanned_at. Favorite status is tracked in the favorites
// table and is not touched here.
func (s *SQLiteStore) SaveProduct(ctx context.Context, p *types.Product) error {
	additives, err := json.Marshal(p.Additives)
	if err != nil {
		return fmt.Errorf("encode additives: %w", err)
	}
	allergens, err := json.Marshal(p.Allergens)
	if err != nil {
		return fmt.Errorf("encode allergens: %w", err)
	}
	dietInfo, err := json.Marshal(p.DietInfo)
	if err != nil {
		return fmt.Errorf("encode diet info: %w", err)
	}
	ingredients, err := json.Marshal(p.Ingredients)
	if err != nil {
		return fmt.Errorf("encode ingredients: %w", err)
	}

	query := `
		INSERT INTO products (
			id, barcode, name, brand, image_url, score, quality, scanned_at,
			additives, allergens, diet_info, ingredients,
			has_seed_oil, has_palm_oil, calories, sugars, salt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(barcode) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			image_url = excluded.image_url,
			score = excluded.score,
			quality = excluded.quality,
			scanned_at = excluded.scanned_at,
			additives = excluded.additives,
			allergens = excluded.allergens,
			diet_info = excluded.diet_info,
			ingredients = excluded.ingredients,
			has_seed_oil = excluded.has_seed_oil,
			has_palm_oil = excluded.has_palm_oil,
			calories = excluded.calories,
			sugars = excluded.sugars,
			salt = excluded.salt`

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Barcode, p.Name, p.Brand, p.ImageURL, p.Score, string(p.Quality),
		p.ScannedAt.UTC().Format(time.RFC3339Nano),
		string(additives), string(allergens), string(dietInfo), string(ingredients),
		boolToInt(p.HasSeedOil), boolToInt(p.HasPalmOil),
		nullableInt(p.Calories), nullableFloat(p.Sugars), nullableFloat(p.Salt),
	)
	if err != nil {
		return fmt.Errorf("save product %q: %w", p.Barcode, err)
	}
	return nil
}

// GetProduct returns one product by id, or (nil, nil) when absent.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*types.Product, error) {
	rows, err := s.db.QueryContext(ctx, selectProducts+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get product %q: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanProduct(rows)
}

// RecentProducts lists products, most recently scanned first.
func (s *SQLiteStore) RecentProducts(ctx context.Context, limit int) ([]*types.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectProducts+` ORDER BY p.scanned_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// RemoveProducts deletes the given products; favorites rows go with them via
// the cascade.
func (s *SQLiteStore) RemoveProducts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
			return fmt.Errorf("remove product %q: %w", id, err)
		}
	}
	return tx.Commit()
}

// ToggleFavorite flips the favorite state for a product id and returns the
// new state. New favorites go to the end of the ordered set.
func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE product_id = ?`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite %q: %w", id, err)
	}

	if exists > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE product_id = ?`, id); err != nil {
			return false, fmt.Errorf("unfavorite %q: %w", id, err)
		}
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO favorites (product_id, position)
		 VALUES (?, COALESCE((SELECT MAX(position) FROM favorites), 0) + 1)`, id)
	if err != nil {
		return false, fmt.Errorf("favorite %q: %w", id, err)
	}
	return true, tx.Commit()
}

// Favorites lists favorited products in the order they were favorited.
func (s *SQLiteStore) Favorites(ctx context.Context) ([]*types.Product, error) {
	query := selectProducts + `
		JOIN favorites f ON f.product_id = p.id
		ORDER BY f.position ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectProducts = `
	SELECT p.id, p.barcode, p.name, p.brand, p.image_url, p.score, p.quality,
	       p.scanned_at, p.additives, p.allergens, p.diet_info, p.ingredients,
	       p.has_seed_oil, p.has_palm_oil, p.calories, p.sugars, p.salt,
	       EXISTS (SELECT 1 FROM favorites f2 WHERE f2.product_id = p.id)
	FROM products p`

func collectProducts(rows *sql.Rows) ([]*types.Product, error) {
	var out []*types.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(rows *sql.Rows) (*types.Product, error) {
	var (
		p           types.Product
		quality     string
		scannedAt   string
		additives   string
		allergens   string
		dietInfo    string
		ingredients string
		seedOil     int
		palmOil     int
		calories    sql.NullInt64
		sugars      sql.NullFloat64
		salt        sql.NullFloat64
		favorite    int
	)

	err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.Brand, &p.ImageURL, &p.Score, &quality,
		&scannedAt, &additives, &allergens, &dietInfo, &ingredients,
		&seedOil, &palmOil, &calories, &sugars, &salt, &favorite)
	if err != nil {
		return nil, fmt.Errorf("scan product row: %w", err)
	}

	p.Quality = types.Quality(quality)
	if t, err := time.Parse(time.RFC3339Nano, scannedAt); err == nil {
		p.ScannedAt = t
	}
	if err := json.Unmarshal([]byte(additives), &p.Additives); err != nil {
		return nil, fmt.Errorf("decode additives: %w", err)
	}
	if err := json.Unmarshal([]byte(allergens), &p.Allergens); err != nil {
		return nil, fmt.Errorf("decode allergens: %w", err)
	}
	if err := json.Unmarshal([]byte(dietInfo), &p.DietInfo); err != nil {
		return nil, fmt.Errorf("decode diet info: %w", err)
	}
	if err := json.Unmarshal([]byte(ingredients), &p.Ingredients); err != nil {
		return nil, fmt.Errorf("decode ingredients: %w", err)
	}
	p.HasSeedOil = seedOil != 0
	p.HasPalmOil = palmOil != 0
	p.IsFavorite = favorite != 0
	if calories.Valid {
		v := int(calories.Int64)
		p.Calories = &v
	}
	if sugars.Valid {
		v := sugars.Float64
		p.Sugars = &v
	}
	if salt.Valid {
		v := salt.Float64
		p.Salt = &v
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
