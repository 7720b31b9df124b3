package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

const productColumns = `id, name, category, brand, description, price, discount,
	rating, reviews, stock, shipping_time_days, tags`

// ReplaceProducts deletes the catalog and inserts items in one transaction.
func (s *SQLiteStorage) ReplaceProducts(items []catalog.Item) error {
	if !s.enabled || s.db == nil {
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM products"); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		var shipping sql.NullInt64
		if it.ShippingTimeDays != nil {
			shipping = sql.NullInt64{Int64: int64(*it.ShippingTimeDays), Valid: true}
		}
		if _, err := stmt.Exec(
			it.ID, it.Name, it.Category, it.Brand, it.Description,
			it.Price, it.Discount, it.Rating, it.Reviews, it.Stock,
			shipping, it.Tags.String(),
		); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Debug().Int("items", len(items)).Msg("catalog replaced")
	return nil
}

// GetAll returns every catalog item ordered by id.
func (s *SQLiteStorage) GetAll(ctx context.Context) ([]catalog.Item, error) {
	if !s.enabled || s.db == nil {
		return nil, ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	items := []catalog.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return items, nil
}

// GetProduct returns the item with the given id, or ErrNotFound.
func (s *SQLiteStorage) GetProduct(ctx context.Context, id int64) (catalog.Item, error) {
	if !s.enabled || s.db == nil {
		return catalog.Item{}, ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return catalog.Item{}, err
	}
	return it, nil
}

// CountProducts returns the catalog size.
func (s *SQLiteStorage) CountProducts(ctx context.Context) (int, error) {
	if !s.enabled || s.db == nil {
		return 0, ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (catalog.Item, error) {
	var (
		it       catalog.Item
		shipping sql.NullInt64
		tags     string
	)
	err := row.Scan(
		&it.ID, &it.Name, &it.Category, &it.Brand, &it.Description,
		&it.Price, &it.Discount, &it.Rating, &it.Reviews, &it.Stock,
		&shipping, &tags,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return it, err
	}
	if err != nil {
		return it, fmt.Errorf("failed to scan product: %w", err)
	}

	if shipping.Valid {
		days := int(shipping.Int64)
		it.ShippingTimeDays = &days
	}
	it.Tags = catalog.ParseTags(tags)
	return it, nil
}
