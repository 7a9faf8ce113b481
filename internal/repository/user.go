package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
)

const (
	getUserByPhoneSQL = `SELECT id, name, phone, created_at
		FROM users WHERE phone = $1`

	createUserSQL = `INSERT INTO users (id, name, phone)
		VALUES ($1, $2, $3)
		RETURNING id, name, phone, created_at`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL. Backend
// failures surface as user.ErrServiceUnavailable so callers can distinguish
// an outage from a genuinely unknown phone number.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByPhone looks up an account by exact phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, getUserByPhoneSQL, phone).Scan(
		&u.ID, &u.Name, &u.Phone, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrap(user.ErrServiceUnavailable, err.Error())
	}
	return &u, nil
}

// Create registers a new account. The display name is the trimmed
// concatenation of first and last name.
func (r *UserRepository) Create(ctx context.Context, firstName, lastName, phone string) (*user.User, error) {
	name := strings.TrimSpace(firstName + " " + lastName)

	var u user.User
	err := r.pool.QueryRow(ctx, createUserSQL, uuid.New().String(), name, phone).Scan(
		&u.ID, &u.Name, &u.Phone, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user with phone %q: %w", phone, err)
	}
	return &u, nil
}
