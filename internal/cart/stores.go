package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/repository"
)

const keyPrefix = "cart:"

// Stores maps session IDs to their cart store. Every UI surface resolves the
// cart through here, so one session always observes a single store instance.
// Stores are created lazily and rehydrated from the persistent store on first
// access.
type Stores struct {
	mu     sync.Mutex
	kv     repository.KVStore
	logger *slog.Logger
	active map[string]*Store
}

// NewStores creates a registry over the given persistent store.
func NewStores(kv repository.KVStore, logger *slog.Logger) *Stores {
	return &Stores{
		kv:     kv,
		logger: logger,
		active: make(map[string]*Store),
	}
}

// ForSession returns the session's cart store, creating and rehydrating it on
// first access. Rehydration happens before the store is published in the
// registry, so a concurrent first request for the same session cannot mutate
// and persist over the old blob while it is still being read.
//
// TODO: evict stores for idle sessions; entries currently live until restart.
func (m *Stores) ForSession(ctx context.Context, sessionID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.active[sessionID]
	if !ok {
		store = NewStore(m.kv, keyPrefix+sessionID, m.logger)
		store.Rehydrate(ctx)
		m.active[sessionID] = store
	}
	return store
}

// Adopt folds the cart stored under fromID into toID's cart and retires the
// source, deleting its persisted key. Called at login so the cart an
// anonymous shopper built survives into the session.
func (m *Stores) Adopt(ctx context.Context, fromID, toID string) {
	if fromID == "" || fromID == toID {
		return
	}

	src := m.ForSession(ctx, fromID)
	if lines := src.Snapshot().Lines; len(lines) > 0 {
		m.ForSession(ctx, toID).Merge(ctx, lines)
	}
	src.Clear(ctx)

	m.mu.Lock()
	delete(m.active, fromID)
	m.mu.Unlock()
}
