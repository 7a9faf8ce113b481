package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrAddonNotFound is returned when a requested add-on does not exist.
var ErrAddonNotFound = errors.New("addon not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    money.Cents
	Category string
	Image    string
}

// Addon is an optional priced modifier that can be attached to a cart line.
type Addon struct {
	ID    string
	Name  string
	Price money.Cents
}

// Repository defines read operations for the product and add-on catalogs.
// The catalog is reference data: the checkout core never mutates it.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListAddons(ctx context.Context) ([]Addon, error)
	GetAddonsByIDs(ctx context.Context, ids []string) ([]Addon, error)
}
