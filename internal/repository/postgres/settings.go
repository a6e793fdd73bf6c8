package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// SettingsStore persists the singleton payment settings row with a
// monotonic revision for compare-and-swap writes.
type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	settings := &domain.PaymentSettings{}
	query := `SELECT * FROM payment_settings WHERE id = 1`
	err := s.db.GetContext(ctx, settings, query)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrSettingsNotFound
		}
		return nil, errors.Wrap(err, "failed to load payment settings")
	}
	return settings, nil
}

// CompareAndSwap writes the full record if and only if the stored revision
// still equals baseRevision. A zero rows-affected result means another
// writer got there first.
func (s *SettingsStore) CompareAndSwap(ctx context.Context, baseRevision int64, settings *domain.PaymentSettings) (*domain.PaymentSettings, error) {
	updated := &domain.PaymentSettings{}
	query := `
		UPDATE payment_settings SET
			upi_id = $1,
			qr_image = $2,
			channel_link = $3,
			owner_handle = $4,
			revision = revision + 1,
			updated_at = NOW()
		WHERE id = 1 AND revision = $5
		RETURNING *
	`
	err := s.db.GetContext(ctx, updated, query,
		settings.UPIID, settings.QRImage, settings.ChannelLink, settings.OwnerHandle, baseRevision)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrStaleRevision
		}
		return nil, errors.Wrap(err, "failed to update payment settings")
	}
	return updated, nil
}
