package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bakery-service/internal/products"
)

const productColumns = `id, name, description, price, image, category, popular, created_at`

func (s *Store) InsertProduct(ctx context.Context, p products.Product) (products.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `INSERT INTO products (` + productColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.Popular, p.CreatedAt)
	if err != nil {
		return products.Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]products.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	out := []products.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ProductByID(ctx context.Context, id string) (products.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return products.Product{}, products.ErrNotFound
	}
	return p, err
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return expectOne(res, products.ErrNotFound)
}

// scanProduct leaves sql.ErrNoRows unwrapped so callers can map it.
func scanProduct(row scanner) (products.Product, error) {
	var p products.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.Popular, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return products.Product{}, err
		}
		return products.Product{}, fmt.Errorf("scanning product: %w", err)
	}
	return p, nil
}
