package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// CountryStore persists the sellable price list.
type CountryStore struct {
	db *sqlx.DB
}

func NewCountryStore(db *sqlx.DB) *CountryStore {
	return &CountryStore{db: db}
}

func (s *CountryStore) List(ctx context.Context) ([]*domain.Country, error) {
	var countries []*domain.Country
	query := `SELECT * FROM countries ORDER BY name ASC`
	err := s.db.SelectContext(ctx, &countries, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list countries")
	}
	return countries, nil
}

func (s *CountryStore) Create(ctx context.Context, country *domain.Country) error {
	query := `
		INSERT INTO countries (name, emoji, price)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := s.db.QueryRowxContext(ctx, query, country.Name, country.Emoji, country.Price).Scan(&country.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrCountryExists
		}
		return errors.Wrap(err, "failed to create country")
	}
	return nil
}

func (s *CountryStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM countries WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete country")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete country")
	}
	if rows == 0 {
		return errors.ErrCountryNotFound
	}
	return nil
}

func (s *CountryStore) FindByID(ctx context.Context, id int64) (*domain.Country, error) {
	country := &domain.Country{}
	err := s.db.GetContext(ctx, country, `SELECT * FROM countries WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrCountryNotFound
		}
		return nil, errors.Wrap(err, "failed to find country")
	}
	return country, nil
}
