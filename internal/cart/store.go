package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Store owns the cart state for one session and is the only legal way to
// mutate it. Every operation is synchronous and total: unknown product IDs
// are no-ops, not errors, and a persistence failure never fails the mutation;
// the in-memory state stays committed and the failure is logged as a warning.
//
// A mutex serializes operations because several UI surfaces (navbar badge,
// cart page, checkout) act on the same store. Concurrent mutation of the same
// persisted key from another process is last-write-wins and unhandled.
type Store struct {
	mu     sync.Mutex
	kv     repository.KVStore
	key    string
	logger *slog.Logger
	cart   domain.Cart
}

// NewStore creates an empty store persisting under the given key. Call
// Rehydrate to load previously persisted lines.
func NewStore(kv repository.KVStore, key string, logger *slog.Logger) *Store {
	return &Store{kv: kv, key: key, logger: logger}
}

// Rehydrate replaces the in-memory state with the persisted lines. An absent
// key or content that does not decode to the expected shape yields an empty
// cart; neither is an error. The subtotal is always recomputed from the
// loaded lines, never read back.
func (s *Store) Rehydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Lines = nil

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "cart rehydrate failed, starting empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.WarnContext(ctx, "persisted cart is malformed, starting empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return
	}

	// A line with a non-positive quantity does not match the persisted
	// shape; the whole blob is treated as malformed.
	for _, line := range lines {
		if line.Quantity < 1 {
			s.logger.WarnContext(ctx, "persisted cart violates quantity invariant, starting empty",
				slog.String("key", s.key),
				slog.Int64("product_id", line.ProductID),
			)
			return
		}
	}

	s.cart.Lines = lines
}

// Add merges the product into the cart: an existing line gets quantity+1 and
// keeps its original snapshot fields; otherwise a new line with quantity 1 is
// appended at the end. A product removed and re-added lands at the end again.
func (s *Store) Add(ctx context.Context, p domain.Product) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cart.FindLine(p.ID); i >= 0 {
		s.cart.Lines[i].Quantity++
	} else {
		s.cart.Lines = append(s.cart.Lines, domain.CartLine{
			ProductID: p.ID,
			Title:     p.Title,
			UnitPrice: p.Price,
			ImageURL:  p.ImageURL,
			Quantity:  1,
		})
	}

	s.persist(ctx)
	return s.snapshotLocked()
}

// Remove deletes the line with the given product ID. Absent IDs are a no-op.
func (s *Store) Remove(ctx context.Context, productID int64) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cart.FindLine(productID); i >= 0 {
		s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
		s.persist(ctx)
	}
	return s.snapshotLocked()
}

// Increase bumps the line's quantity by one. Absent IDs are a no-op.
func (s *Store) Increase(ctx context.Context, productID int64) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cart.FindLine(productID); i >= 0 {
		s.cart.Lines[i].Quantity++
		s.persist(ctx)
	}
	return s.snapshotLocked()
}

// Decrease lowers the line's quantity by one; at quantity 1 the line is
// removed entirely, so a zero-quantity line never exists. Absent IDs are a
// no-op.
func (s *Store) Decrease(ctx context.Context, productID int64) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cart.FindLine(productID); i >= 0 {
		if s.cart.Lines[i].Quantity > 1 {
			s.cart.Lines[i].Quantity--
		} else {
			s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
		}
		s.persist(ctx)
	}
	return s.snapshotLocked()
}

// Merge folds the given lines into the cart: a line for a product already
// present adds its quantity to the existing line, which keeps its snapshot
// fields; the rest are appended in their given order. Used when an anonymous
// cart is carried into a session at login.
func (s *Store) Merge(ctx context.Context, lines []domain.CartLine) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		if i := s.cart.FindLine(line.ProductID); i >= 0 {
			s.cart.Lines[i].Quantity += line.Quantity
		} else {
			s.cart.Lines = append(s.cart.Lines, line)
		}
	}

	if len(lines) > 0 {
		s.persist(ctx)
	}
	return s.snapshotLocked()
}

// Clear empties the cart and deletes the persisted key rather than writing an
// empty list. Both encode to an empty cart on rehydrate.
func (s *Store) Clear(ctx context.Context) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Lines = nil

	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.WarnContext(ctx, "cart clear did not reach the persistent store",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
	}
	return s.snapshotLocked()
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subtotal returns the current subtotal in cents, computed fresh.
func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Subtotal()
}

// Count returns the total quantity across lines, computed fresh.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Count()
}

// persist overwrites the serialized lines under the store's key. The caller
// must hold the mutex. Failures are non-fatal: the in-memory state is already
// committed and the next successful write restores durability.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.cart.Lines)
	if err != nil {
		s.logger.WarnContext(ctx, "cart serialization failed",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.logger.WarnContext(ctx, "cart persistence failed, in-memory state kept",
			slog.String("key", s.key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) snapshotLocked() domain.Cart {
	lines := make([]domain.CartLine, len(s.cart.Lines))
	copy(lines, s.cart.Lines)
	return domain.Cart{Lines: lines}
}
