package shipment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tokokirim-be/internal/logger"
)

// Service defines the business logic for shipment tracking.
type Service interface {
	Create(ctx context.Context, orderID uint, spec StepSpec) (*Step, error)
	Initialize(ctx context.Context, orderID uint, stops []Stop) ([]*Step, error)
	Update(ctx context.Context, orderID, stepID uint, spec StepSpec) (*Step, error)
	MarkAsReached(ctx context.Context, orderID, stepID uint, reachedAt *time.Time) (*Step, error)
	ToggleReached(ctx context.Context, orderID, stepID uint) (*Step, error)
	Delete(ctx context.Context, orderID, stepID uint) error
	Reorder(ctx context.Context, orderID uint, positions map[uint]int) error
	Advance(ctx context.Context, orderID uint) (*Step, error)
	List(ctx context.Context, orderID uint) ([]*Step, error)
	Metrics(ctx context.Context, orderID uint) (Metrics, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Create inserts a single step at the caller-supplied position. A step
// created already reached gets reached_at defaulted to now.
func (s *service) Create(ctx context.Context, orderID uint, spec StepSpec) (*Step, error) {
	if spec.LocationName == "" {
		return nil, ErrLocationMissing
	}

	step := &Step{
		OrderID:           orderID,
		Position:          spec.Position,
		LocationName:      spec.LocationName,
		StatusDescription: spec.StatusDescription,
		Latitude:          spec.Latitude,
		Longitude:         spec.Longitude,
		IsReached:         spec.IsReached,
		ReachedAt:         spec.ReachedAt,
		EstimatedArrival:  spec.EstimatedArrival,
	}

	if step.IsReached && step.ReachedAt == nil {
		now := time.Now()
		step.ReachedAt = &now
	}
	if !step.IsReached {
		step.ReachedAt = nil
	}

	if err := s.repo.CreateStep(ctx, step); err != nil {
		return nil, err
	}

	return step, nil
}

// Initialize replaces the order's route with a fresh sequence. Every step
// starts unreached regardless of input; a freshly planned route has no
// history yet.
func (s *service) Initialize(ctx context.Context, orderID uint, stops []Stop) ([]*Step, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Initialize"),
		zap.Uint("order_id", orderID),
		zap.Int("stop_count", len(stops)),
	)

	steps := make([]*Step, 0, len(stops))
	for i, stop := range stops {
		if stop.LocationName == "" {
			return nil, ErrLocationMissing
		}

		steps = append(steps, &Step{
			OrderID:           orderID,
			Position:          i + 1,
			LocationName:      stop.LocationName,
			StatusDescription: stop.StatusDescription,
			Latitude:          stop.Latitude,
			Longitude:         stop.Longitude,
			IsReached:         false,
			EstimatedArrival:  stop.EstimatedArrival,
		})
	}

	if err := s.repo.ReplaceSteps(ctx, orderID, steps); err != nil {
		log.Error("failed to initialize route", zap.Error(err))
		return nil, err
	}

	log.Info("shipment route initialized")
	return steps, nil
}

// Update overwrites all mutable fields of a step under a row lock,
// keeping reached_at coupled to is_reached.
func (s *service) Update(ctx context.Context, orderID, stepID uint, spec StepSpec) (*Step, error) {
	if spec.LocationName == "" {
		return nil, ErrLocationMissing
	}

	return s.repo.UpdateStepTx(ctx, orderID, stepID, func(step *Step) error {
		wasReached := step.IsReached

		step.Position = spec.Position
		step.LocationName = spec.LocationName
		step.StatusDescription = spec.StatusDescription
		step.Latitude = spec.Latitude
		step.Longitude = spec.Longitude
		step.EstimatedArrival = spec.EstimatedArrival
		step.IsReached = spec.IsReached

		switch {
		case !step.IsReached:
			step.ReachedAt = nil
		case spec.ReachedAt != nil:
			step.ReachedAt = spec.ReachedAt
		case !wasReached:
			now := time.Now()
			step.ReachedAt = &now
		}
		// reached→reached without an explicit timestamp keeps the old one.

		return nil
	})
}

// MarkAsReached is unconditional; re-marking just refreshes reached_at.
func (s *service) MarkAsReached(ctx context.Context, orderID, stepID uint, reachedAt *time.Time) (*Step, error) {
	return s.repo.UpdateStepTx(ctx, orderID, stepID, func(step *Step) error {
		step.IsReached = true
		if reachedAt != nil {
			step.ReachedAt = reachedAt
		} else {
			now := time.Now()
			step.ReachedAt = &now
		}
		return nil
	})
}

func (s *service) ToggleReached(ctx context.Context, orderID, stepID uint) (*Step, error) {
	return s.repo.UpdateStepTx(ctx, orderID, stepID, func(step *Step) error {
		step.IsReached = !step.IsReached
		if step.IsReached {
			now := time.Now()
			step.ReachedAt = &now
		} else {
			step.ReachedAt = nil
		}
		return nil
	})
}

func (s *service) Delete(ctx context.Context, orderID, stepID uint) error {
	return s.repo.DeleteStep(ctx, orderID, stepID)
}

func (s *service) Reorder(ctx context.Context, orderID uint, positions map[uint]int) error {
	if len(positions) == 0 {
		return ErrEmptyReorder
	}
	return s.repo.ReorderSteps(ctx, orderID, positions)
}

// Advance reaches the next unreached step in position order. Returns
// (nil, nil) when the route is fully reached.
func (s *service) Advance(ctx context.Context, orderID uint) (*Step, error) {
	step, err := s.repo.AdvanceStep(ctx, orderID, time.Now())
	if err != nil {
		return nil, err
	}

	if step == nil {
		logger.FromCtx(ctx).Debug(
			"nothing to advance, route fully reached",
			zap.Uint("order_id", orderID),
		)
	}

	return step, nil
}

func (s *service) List(ctx context.Context, orderID uint) ([]*Step, error) {
	return s.repo.ListSteps(ctx, orderID)
}

func (s *service) Metrics(ctx context.Context, orderID uint) (Metrics, error) {
	steps, err := s.repo.ListSteps(ctx, orderID)
	if err != nil {
		return Metrics{}, err
	}

	return computeMetrics(steps), nil
}

func computeMetrics(steps []*Step) Metrics {
	total := len(steps)
	reached := 0
	for _, step := range steps {
		if step.IsReached {
			reached++
		}
	}

	m := Metrics{
		CurrentStep: reached,
		TotalSteps:  total,
	}
	if total > 0 {
		m.Percentage = float64(reached) / float64(total) * 100
		m.IsDelivered = reached == total
	}

	return m
}
