// internal/repository/product_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopmetrics/stockcast/internal/domain"
)

// ProductRepository is a read-only view of inventory master data. Stock
// is owned by the inventory subsystem; the core never writes it.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, COALESCE(category, '') AS category, unit_cost,
		       current_stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: product %d: %v", domain.ErrStorageUnavailable, id, err)
	}

	return &product, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, COALESCE(category, '') AS category, unit_cost,
		       current_stock, created_at, updated_at
		FROM products
		ORDER BY id
	`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("%w: list products: %v", domain.ErrStorageUnavailable, err)
	}

	return products, nil
}
