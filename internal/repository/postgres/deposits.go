package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// DepositStore persists user deposit claims awaiting admin review.
type DepositStore struct {
	db *sqlx.DB
}

func NewDepositStore(db *sqlx.DB) *DepositStore {
	return &DepositStore{db: db}
}

func (s *DepositStore) List(ctx context.Context, status string, limit, offset int) ([]*domain.Deposit, error) {
	var deposits []*domain.Deposit
	if status != "" {
		query := `SELECT * FROM deposits WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		if err := s.db.SelectContext(ctx, &deposits, query, status, limit, offset); err != nil {
			return nil, errors.Wrap(err, "failed to list deposits")
		}
		return deposits, nil
	}
	query := `SELECT * FROM deposits ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := s.db.SelectContext(ctx, &deposits, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list deposits")
	}
	return deposits, nil
}

func (s *DepositStore) FindByID(ctx context.Context, id int64) (*domain.Deposit, error) {
	deposit := &domain.Deposit{}
	err := s.db.GetContext(ctx, deposit, `SELECT * FROM deposits WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrDepositNotFound
		}
		return nil, errors.Wrap(err, "failed to find deposit")
	}
	return deposit, nil
}

// SetStatus transitions a pending deposit to APPROVED or REJECTED. The
// WHERE status clause makes the transition single-shot: a deposit already
// settled by a concurrent reviewer is reported, not overwritten.
func (s *DepositStore) SetStatus(ctx context.Context, id int64, status domain.DepositStatus) (*domain.Deposit, error) {
	deposit := &domain.Deposit{}
	query := `
		UPDATE deposits SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING *
	`
	err := s.db.GetContext(ctx, deposit, query, status, id, domain.DepositPending)
	if err != nil {
		if err == sql.ErrNoRows {
			if _, findErr := s.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, errors.ErrDepositSettled
		}
		return nil, errors.Wrap(err, "failed to update deposit status")
	}
	return deposit, nil
}

// Reopen returns a settled deposit to PENDING. Used to roll back an
// approval whose ledger credit failed, so the review can be retried.
func (s *DepositStore) Reopen(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE deposits SET status = $1 WHERE id = $2`, domain.DepositPending, id)
	if err != nil {
		return errors.Wrap(err, "failed to reopen deposit")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to reopen deposit")
	}
	if rows == 0 {
		return errors.ErrDepositNotFound
	}
	return nil
}

// CountPending returns the number of deposits awaiting review.
func (s *DepositStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM deposits WHERE status = $1`, domain.DepositPending)
	return count, errors.Wrap(err, "failed to count pending deposits")
}
