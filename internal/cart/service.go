package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tokokirim-be/internal/cache"
	"tokokirim-be/internal/logger"
)

const (
	keyPrefix  = "cart:"
	lockPrefix = "lock_"
)

// Service defines the business logic for carts. The cart lives in a TTL
// cache keyed per owner and is best-effort: expiry or eviction silently
// empties it.
type Service interface {
	Get(ctx context.Context, ownerID string) ([]Line, error)
	UpdateOrAdd(ctx context.Context, ownerID string, line Line) ([]Line, error)
	Remove(ctx context.Context, ownerID string, productID uint) ([]Line, error)
	Clear(ctx context.Context, ownerID string) error
}

type service struct {
	store    cache.Store
	locker   cache.Locker
	ttl      time.Duration
	lockWait time.Duration
}

// NewService creates a new cart service
func NewService(store cache.Store, locker cache.Locker, ttl, lockWait time.Duration) Service {
	return &service{
		store:    store,
		locker:   locker,
		ttl:      ttl,
		lockWait: lockWait,
	}
}

func cartKey(ownerID string) string {
	return keyPrefix + ownerID
}

// Get reads the owner's cart. A missing key or a malformed payload both
// yield an empty cart, never an error.
func (s *service) Get(ctx context.Context, ownerID string) ([]Line, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	raw, err := s.store.Get(ctx, cartKey(ownerID))
	if err != nil {
		logger.FromCtx(ctx).Warn(
			"cart store read failed, treating as empty",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
		return []Line{}, nil
	}

	return decodeLines(ctx, ownerID, raw), nil
}

// UpdateOrAdd merges a line into the cart under a per-owner advisory lock
// so two near-simultaneous adds cannot drop an increment.
func (s *service) UpdateOrAdd(ctx context.Context, ownerID string, line Line) ([]Line, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if line.Quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	key := cartKey(ownerID)

	release, err := s.locker.Acquire(ctx, lockPrefix+key, s.lockWait)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, ErrCartBusy
		}
		return nil, fmt.Errorf("failed to acquire cart lock: %w", err)
	}
	defer release()

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	lines := decodeLines(ctx, ownerID, raw)

	merged := false
	for i := range lines {
		if lines[i].ProductID != line.ProductID {
			continue
		}

		lines[i].Quantity = lines[i].Quantity.Add(line.Quantity)
		lines[i].Price = line.Price
		lines[i].ProductName = line.ProductName
		lines[i].ProductImage = line.ProductImage
		if line.Unit != "" {
			lines[i].Unit = line.Unit
		}
		merged = true
		break
	}

	if !merged {
		lines = append(lines, line)
	}

	if err := s.persist(ctx, key, lines); err != nil {
		return nil, err
	}

	return lines, nil
}

// Remove filters out the matching line and re-persists a dense list.
func (s *service) Remove(ctx context.Context, ownerID string, productID uint) ([]Line, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	key := cartKey(ownerID)

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	lines := decodeLines(ctx, ownerID, raw)

	kept := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ProductID == productID {
			continue
		}
		kept = append(kept, l)
	}

	if err := s.persist(ctx, key, kept); err != nil {
		return nil, err
	}

	return kept, nil
}

// Clear drops the cached cart outright.
func (s *service) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	return s.store.Forget(ctx, cartKey(ownerID))
}

func (s *service) persist(ctx context.Context, key string, lines []Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.store.Put(ctx, key, payload, s.ttl); err != nil {
		return fmt.Errorf("failed to write cart: %w", err)
	}
	return nil
}

// decodeLines normalizes whatever the backend returns to a []Line. The
// payload may arrive double-encoded depending on who wrote it; anything
// that does not normalize falls back to an empty cart.
func decodeLines(ctx context.Context, ownerID string, raw []byte) []Line {
	if len(raw) == 0 {
		return []Line{}
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err == nil && lines != nil {
		return lines
	}

	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &lines); err == nil && lines != nil {
			return lines
		}
	}

	logger.FromCtx(ctx).Warn(
		"malformed cart payload, resetting to empty",
		zap.String("owner_id", ownerID),
	)
	return []Line{}
}
