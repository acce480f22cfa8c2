package shipment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokokirim-be/internal/logger"
)

type Repository interface {
	CreateStep(ctx context.Context, step *Step) error
	ReplaceSteps(ctx context.Context, orderID uint, steps []*Step) error
	ListSteps(ctx context.Context, orderID uint) ([]*Step, error)

	// UpdateStepTx locks the step row, re-reads it, runs the mutate
	// closure and writes the result back in one transaction.
	UpdateStepTx(ctx context.Context, orderID, stepID uint, mutate func(*Step) error) (*Step, error)

	// DeleteStep removes the step and renumbers the remaining steps
	// 1..N inside the same transaction, closing the position gap.
	DeleteStep(ctx context.Context, orderID, stepID uint) error

	// ReorderSteps applies the caller's id→position map verbatim. The
	// caller is trusted to supply a full contiguous permutation.
	ReorderSteps(ctx context.Context, orderID uint, positions map[uint]int) error

	// AdvanceStep marks the lowest-position unreached step as reached.
	// Returns (nil, nil) when every step is already reached.
	AdvanceStep(ctx context.Context, orderID uint, reachedAt time.Time) (*Step, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const stepColumns = `
	id, order_id, position, location_name, status_description,
	latitude, longitude, is_reached, reached_at, estimated_arrival,
	created_at, updated_at
`

func scanStep(row interface{ Scan(...any) error }, s *Step) error {
	return row.Scan(
		&s.ID,
		&s.OrderID,
		&s.Position,
		&s.LocationName,
		&s.StatusDescription,
		&s.Latitude,
		&s.Longitude,
		&s.IsReached,
		&s.ReachedAt,
		&s.EstimatedArrival,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

func (r *repository) CreateStep(ctx context.Context, step *Step) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shipment_steps (
			order_id, position, location_name, status_description,
			latitude, longitude, is_reached, reached_at, estimated_arrival
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at
	`,
		step.OrderID,
		step.Position,
		step.LocationName,
		step.StatusDescription,
		step.Latitude,
		step.Longitude,
		step.IsReached,
		step.ReachedAt,
		step.EstimatedArrival,
	).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert shipment step: %w", err)
	}

	return nil
}

func (r *repository) ReplaceSteps(ctx context.Context, orderID uint, steps []*Step) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ReplaceSteps"),
		zap.Uint("order_id", orderID),
		zap.Int("step_count", len(steps)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM shipment_steps WHERE order_id = $1
	`, orderID); err != nil {
		log.Error("failed to clear existing steps", zap.Error(err))
		return err
	}

	for _, step := range steps {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO shipment_steps (
				order_id, position, location_name, status_description,
				latitude, longitude, is_reached, reached_at, estimated_arrival
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id, created_at, updated_at
		`,
			step.OrderID,
			step.Position,
			step.LocationName,
			step.StatusDescription,
			step.Latitude,
			step.Longitude,
			step.IsReached,
			step.ReachedAt,
			step.EstimatedArrival,
		).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
		if err != nil {
			log.Error("failed to insert shipment step", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit step replacement", zap.Error(err))
		return err
	}
	committed = true

	log.Info("shipment route replaced")
	return nil
}

func (r *repository) ListSteps(ctx context.Context, orderID uint) ([]*Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM shipment_steps
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipment steps: %w", err)
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		var s Step
		if err := scanStep(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan shipment step: %w", err)
		}
		steps = append(steps, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return steps, nil
}

func (r *repository) UpdateStepTx(
	ctx context.Context,
	orderID, stepID uint,
	mutate func(*Step) error,
) (*Step, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStepTx"),
		zap.Uint("order_id", orderID),
		zap.Uint("step_id", stepID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var s Step
	row := tx.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM shipment_steps
		WHERE id = $1 AND order_id = $2
		FOR UPDATE
	`, stepID, orderID)
	if err := scanStep(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStepNotFound
		}
		log.Error("failed to read step for update", zap.Error(err))
		return nil, err
	}

	if err := mutate(&s); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shipment_steps
		SET position = $1,
			location_name = $2,
			status_description = $3,
			latitude = $4,
			longitude = $5,
			is_reached = $6,
			reached_at = $7,
			estimated_arrival = $8,
			updated_at = NOW()
		WHERE id = $9
	`,
		s.Position,
		s.LocationName,
		s.StatusDescription,
		s.Latitude,
		s.Longitude,
		s.IsReached,
		s.ReachedAt,
		s.EstimatedArrival,
		s.ID,
	)
	if err != nil {
		log.Error("failed to write step fields", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit step update", zap.Error(err))
		return nil, err
	}
	committed = true

	return &s, nil
}

func (r *repository) DeleteStep(ctx context.Context, orderID, stepID uint) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DeleteStep"),
		zap.Uint("order_id", orderID),
		zap.Uint("step_id", stepID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM shipment_steps
		WHERE id = $1 AND order_id = $2
	`, stepID, orderID)
	if err != nil {
		log.Error("failed to delete step", zap.Error(err))
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrStepNotFound
	}

	// Renumber survivors inside the same tx so positions never expose a
	// gap to readers.
	rows, err := tx.QueryContext(ctx, `
		SELECT id
		FROM shipment_steps
		WHERE order_id = $1
		ORDER BY position ASC
		FOR UPDATE
	`, orderID)
	if err != nil {
		log.Error("failed to read remaining steps", zap.Error(err))
		return err
	}

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE shipment_steps
			SET position = $1, updated_at = NOW()
			WHERE id = $2
		`, i+1, id); err != nil {
			log.Error("failed to renumber step", zap.Uint("id", id), zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit step deletion", zap.Error(err))
		return err
	}
	committed = true

	return nil
}

func (r *repository) ReorderSteps(ctx context.Context, orderID uint, positions map[uint]int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ReorderSteps"),
		zap.Uint("order_id", orderID),
		zap.Int("count", len(positions)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	for stepID, position := range positions {
		res, err := tx.ExecContext(ctx, `
			UPDATE shipment_steps
			SET position = $1, updated_at = NOW()
			WHERE id = $2 AND order_id = $3
		`, position, stepID, orderID)
		if err != nil {
			log.Error("failed to reposition step", zap.Uint("step_id", stepID), zap.Error(err))
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrStepNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit reorder", zap.Error(err))
		return err
	}
	committed = true

	return nil
}

func (r *repository) AdvanceStep(ctx context.Context, orderID uint, reachedAt time.Time) (*Step, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AdvanceStep"),
		zap.Uint("order_id", orderID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var s Step
	row := tx.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM shipment_steps
		WHERE order_id = $1 AND is_reached = false
		ORDER BY position ASC
		LIMIT 1
		FOR UPDATE
	`, orderID)
	if err := scanStep(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nothing left to advance.
			return nil, nil
		}
		log.Error("failed to find next unreached step", zap.Error(err))
		return nil, err
	}

	s.IsReached = true
	s.ReachedAt = &reachedAt

	if _, err := tx.ExecContext(ctx, `
		UPDATE shipment_steps
		SET is_reached = true, reached_at = $1, updated_at = NOW()
		WHERE id = $2
	`, reachedAt, s.ID); err != nil {
		log.Error("failed to mark step reached", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit advance", zap.Error(err))
		return nil, err
	}
	committed = true

	return &s, nil
}
