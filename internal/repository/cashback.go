package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/money"
)

const (
	cashbackBalanceSQL = `SELECT COALESCE(SUM(
		CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
		FROM cashback_ledger WHERE user_id = $1`

	cashbackEntriesSQL = `SELECT id, user_id, entry_type, amount, description, created_at
		FROM cashback_ledger WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`

	// The debit only lands when the derived balance still covers it. The guard
	// reads an aggregate, which READ COMMITTED alone does not protect from two
	// overlapping debits both seeing the old balance, so Debit runs it inside
	// a transaction holding a per-user advisory lock.
	cashbackDebitSQL = `INSERT INTO cashback_ledger (user_id, entry_type, amount, description)
		SELECT $1, 'debit', $2, $3
		WHERE (SELECT COALESCE(SUM(
			CASE WHEN entry_type = 'credit' THEN amount ELSE -amount END), 0)
			FROM cashback_ledger WHERE user_id = $1) >= $2`

	cashbackDebitLockSQL = `SELECT pg_advisory_xact_lock(hashtext('cashback_debit'), hashtext($1))`

	cashbackCreditSQL = `INSERT INTO cashback_ledger (user_id, entry_type, amount, description)
		VALUES ($1, 'credit', $2, $3)`
)

var _ cashback.Repository = (*CashbackRepository)(nil)

// CashbackRepository implements cashback.Repository as an append-only ledger
// in PostgreSQL. The balance is always derived, never stored.
type CashbackRepository struct {
	pool *pgxpool.Pool
}

// NewCashbackRepository returns a CashbackRepository that uses the given pool.
func NewCashbackRepository(pool *pgxpool.Pool) *CashbackRepository {
	return &CashbackRepository{pool: pool}
}

// Balance returns the user's current balance: credits minus debits.
func (r *CashbackRepository) Balance(ctx context.Context, userID string) (money.Cents, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, cashbackBalanceSQL, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("getting cashback balance for user %q: %w", userID, err)
	}
	return money.FromDecimal(balance), nil
}

// Entries returns the newest ledger movements first, up to limit.
func (r *CashbackRepository) Entries(ctx context.Context, userID string, limit int) ([]cashback.Entry, error) {
	rows, err := r.pool.Query(ctx, cashbackEntriesSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing cashback entries for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCashbackEntry)
}

// Debit records a spend. Returns cashback.ErrInsufficientBalance when the
// current balance does not cover the amount. Concurrent debits for the same
// user serialize on an advisory lock held until the transaction ends, so the
// balance guard always sees the other spend.
func (r *CashbackRepository) Debit(ctx context.Context, userID string, amount money.Cents, description string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("debiting cashback for user %q: %w", userID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, cashbackDebitLockSQL, userID); err != nil {
		return fmt.Errorf("locking cashback ledger for user %q: %w", userID, err)
	}

	tag, err := tx.Exec(ctx, cashbackDebitSQL, userID, amount.Decimal(), description)
	if err != nil {
		return fmt.Errorf("debiting cashback for user %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cashback.ErrInsufficientBalance
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("debiting cashback for user %q: %w", userID, err)
	}
	return nil
}

// Credit records an earn.
func (r *CashbackRepository) Credit(ctx context.Context, userID string, amount money.Cents, description string) error {
	_, err := r.pool.Exec(ctx, cashbackCreditSQL, userID, amount.Decimal(), description)
	if err != nil {
		return fmt.Errorf("crediting cashback for user %q: %w", userID, err)
	}
	return nil
}

func scanCashbackEntry(row pgx.CollectableRow) (cashback.Entry, error) {
	var (
		e         cashback.Entry
		entryType string
		amount    decimal.Decimal
		createdAt time.Time
	)
	err := row.Scan(&e.ID, &e.UserID, &entryType, &amount, &e.Description, &createdAt)
	e.Type = cashback.EntryType(entryType)
	e.Amount = money.FromDecimal(amount)
	e.CreatedAt = createdAt
	return e, err
}
