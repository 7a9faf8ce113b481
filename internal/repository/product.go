package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, category, image
		FROM products ORDER BY category, id`

	getProductByIDSQL = `SELECT id, name, price, category, image
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price, category, image
		FROM products WHERE id = ANY($1)`

	listAddonsSQL = `SELECT id, name, price FROM addons ORDER BY id`

	getAddonsByIDsSQL = `SELECT id, name, price FROM addons WHERE id = ANY($1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the full menu ordered by category then ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListAddons returns all add-ons ordered by ID.
func (r *ProductRepository) ListAddons(ctx context.Context) ([]product.Addon, error) {
	rows, err := r.pool.Query(ctx, listAddonsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing addons: %w", err)
	}
	return pgx.CollectRows(rows, scanAddon)
}

// GetAddonsByIDs returns add-ons matching any of the given IDs.
func (r *ProductRepository) GetAddonsByIDs(ctx context.Context, ids []string) ([]product.Addon, error) {
	rows, err := r.pool.Query(ctx, getAddonsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting addons by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanAddon)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &price, &p.Category, &p.Image)
	p.Price = money.FromDecimal(price)
	return p, err
}

func scanAddon(row pgx.CollectableRow) (product.Addon, error) {
	var (
		a     product.Addon
		price decimal.Decimal
	)
	err := row.Scan(&a.ID, &a.Name, &price)
	a.Price = money.FromDecimal(price)
	return a, err
}
