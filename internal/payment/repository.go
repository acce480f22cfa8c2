package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Method, error)
	ListActive(ctx context.Context) ([]*Method, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Method, error) {
	query := `
		SELECT id, name, slug, active, logo, payment_details, created_at, updated_at
		FROM payment_methods
		WHERE id = $1
	`

	var m Method
	var details []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.Slug,
		&m.Active,
		&m.Logo,
		&details,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	if len(details) > 0 {
		if err := json.Unmarshal(details, &m.PaymentDetails); err != nil {
			return nil, fmt.Errorf("failed to decode payment details: %w", err)
		}
	}

	return &m, nil
}

func (r *repository) ListActive(ctx context.Context) ([]*Method, error) {
	query := `
		SELECT id, name, slug, active, logo, payment_details, created_at, updated_at
		FROM payment_methods
		WHERE active = true
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*Method
	for rows.Next() {
		var m Method
		var details []byte

		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Slug,
			&m.Active,
			&m.Logo,
			&details,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}

		if len(details) > 0 {
			if err := json.Unmarshal(details, &m.PaymentDetails); err != nil {
				return nil, fmt.Errorf("failed to decode payment details: %w", err)
			}
		}

		methods = append(methods, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return methods, nil
}
