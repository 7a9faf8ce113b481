// Package user models customer accounts looked up by phone number.
//
// Lookups return a discriminated result: found, not found, or failed. The
// legacy storefront returned null both for unknown users and for backend
// outages, silently misclassifying outages as new signups; here a failing
// backend surfaces ErrServiceUnavailable instead.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrServiceUnavailable is returned when the user backend cannot be reached.
// Callers may fall back to treating the customer as new, but must log the
// degradation rather than present it as a genuine not-found.
var ErrServiceUnavailable = errors.New("user service unavailable")

// ErrNotFound is returned when no account matches the phone number.
var ErrNotFound = errors.New("user not found")

// User is a customer account.
type User struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// Repository provides account lookup and creation.
type Repository interface {
	// GetByPhone returns ErrNotFound for unknown numbers and
	// ErrServiceUnavailable (wrapped) for backend failures.
	GetByPhone(ctx context.Context, phone string) (*User, error)
	Create(ctx context.Context, firstName, lastName, phone string) (*User, error)
}
