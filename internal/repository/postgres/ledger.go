package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// LedgerStore persists users, balances and the append-only adjustment log.
// It implements ledger.Store.
type LedgerStore struct {
	db *sqlx.DB
}

func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT * FROM users WHERE id = $1`
	err := s.db.GetContext(ctx, user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to find user by id")
	}
	return user, nil
}

func (s *LedgerStore) FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	user := &domain.User{}
	query := `SELECT * FROM users WHERE telegram_id = $1`
	err := s.db.GetContext(ctx, user, query, telegramID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to find user by telegram id")
	}
	return user, nil
}

func (s *LedgerStore) ListUsers(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int

	if search != "" {
		pattern := "%" + search + "%"
		countQuery := `SELECT COUNT(*) FROM users WHERE username ILIKE $1 OR full_name ILIKE $1`
		if err := s.db.GetContext(ctx, &total, countQuery, pattern); err != nil {
			return nil, 0, errors.Wrap(err, "failed to count users")
		}
		query := `SELECT * FROM users WHERE username ILIKE $1 OR full_name ILIKE $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		if err := s.db.SelectContext(ctx, &users, query, pattern, limit, offset); err != nil {
			return nil, 0, errors.Wrap(err, "failed to list users")
		}
		return users, total, nil
	}

	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count users")
	}
	query := `SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := s.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list users")
	}
	return users, total, nil
}

// ApplyAdjustment inserts the log record and updates the cached balance
// scalar in one transaction. The SELECT ... FOR UPDATE row lock serializes
// concurrent adjustments on the same user while leaving other users free.
func (s *LedgerStore) ApplyAdjustment(ctx context.Context, userID int64, delta decimal.Decimal, reason domain.AdjustmentReason, actor string, enforceFloor bool) (*domain.AdjustmentRecord, error) {
	if delta.IsZero() || !delta.Equal(delta.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.GetContext(ctx, &balance, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to lock user row")
	}

	newBalance := balance.Add(delta)
	if enforceFloor && newBalance.IsNegative() {
		return nil, errors.ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET balance = $1 WHERE id = $2`, newBalance, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update balance")
	}

	record := &domain.AdjustmentRecord{
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		Actor:        actor,
		BalanceAfter: newBalance,
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO adjustments (user_id, delta, reason, actor, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, userID, delta, reason, actor, newBalance).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert adjustment record")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit adjustment")
	}
	return record, nil
}

func (s *LedgerStore) ListAdjustments(ctx context.Context, userID int64, limit, offset int) ([]*domain.AdjustmentRecord, error) {
	var records []*domain.AdjustmentRecord
	query := `SELECT * FROM adjustments WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	err := s.db.SelectContext(ctx, &records, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list adjustments")
	}
	return records, nil
}

// SumDeltas returns the sum of all committed deltas for a user. Used by
// reconciliation tooling to verify the balance invariant.
func (s *LedgerStore) SumDeltas(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(delta), 0) FROM adjustments WHERE user_id = $1`
	err := s.db.GetContext(ctx, &sum, query, userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to sum adjustments")
	}
	return sum, nil
}
