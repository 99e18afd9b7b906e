package cart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository/memory"
)

var (
	shirt = domain.Product{ID: 1, Title: "Mens Casual T-Shirt", Price: 2295, ImageURL: "https://img.example/1.jpg"}
	bag   = domain.Product{ID: 2, Title: "Laptop Backpack", Price: 10995, ImageURL: "https://img.example/2.jpg"}
	ring  = domain.Product{ID: 3, Title: "Gold Plated Ring", Price: 695, ImageURL: "https://img.example/3.jpg"}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *memory.KVStore) {
	t.Helper()
	kv := memory.NewKVStore()
	return NewStore(kv, "cart:test", testLogger()), kv
}

// failingKV refuses all writes and deletes, simulating a persistence outage.
type failingKV struct {
	inner *memory.KVStore
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *failingKV) Set(context.Context, string, []byte) error {
	return errors.New("store unavailable")
}

func (f *failingKV) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}

func persistedLines(t *testing.T, kv *memory.KVStore, key string) []domain.CartLine {
	t.Helper()
	data, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	var lines []domain.CartLine
	require.NoError(t, json.Unmarshal(data, &lines))
	return lines
}

func TestStoreAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("new product appends a line with quantity one", func(t *testing.T) {
		store, _ := newTestStore(t)

		cart := store.Add(ctx, shirt)

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, domain.CartLine{
			ProductID: 1,
			Title:     "Mens Casual T-Shirt",
			UnitPrice: 2295,
			ImageURL:  "https://img.example/1.jpg",
			Quantity:  1,
		}, cart.Lines[0])
	})

	t.Run("existing product merges by incrementing quantity", func(t *testing.T) {
		store, _ := newTestStore(t)

		store.Add(ctx, shirt)
		cart := store.Add(ctx, shirt)

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
	})

	t.Run("merge keeps the original snapshot fields", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)

		repriced := shirt
		repriced.Price = 1999
		repriced.Title = "Renamed Shirt"
		cart := store.Add(ctx, repriced)

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, int64(2295), cart.Lines[0].UnitPrice)
		assert.Equal(t, "Mens Casual T-Shirt", cart.Lines[0].Title)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		store, _ := newTestStore(t)

		store.Add(ctx, shirt)
		store.Add(ctx, bag)
		store.Add(ctx, shirt)
		cart := store.Add(ctx, ring)

		require.Len(t, cart.Lines, 3)
		assert.Equal(t, int64(1), cart.Lines[0].ProductID)
		assert.Equal(t, int64(2), cart.Lines[1].ProductID)
		assert.Equal(t, int64(3), cart.Lines[2].ProductID)
	})

	t.Run("removed then re-added product lands at the end", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)
		store.Add(ctx, bag)

		store.Remove(ctx, shirt.ID)
		cart := store.Add(ctx, shirt)

		require.Len(t, cart.Lines, 2)
		assert.Equal(t, int64(2), cart.Lines[0].ProductID)
		assert.Equal(t, int64(1), cart.Lines[1].ProductID)
		assert.Equal(t, 1, cart.Lines[1].Quantity)
	})
}

func TestStoreMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("sums quantities and keeps the original snapshot fields", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)

		cart := store.Merge(ctx, []domain.CartLine{
			{ProductID: 1, Title: "Renamed Shirt", UnitPrice: 1999, Quantity: 2},
		})

		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 3, cart.Lines[0].Quantity)
		assert.Equal(t, "Mens Casual T-Shirt", cart.Lines[0].Title)
		assert.Equal(t, int64(2295), cart.Lines[0].UnitPrice)
	})

	t.Run("appends lines for new products in order", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)

		cart := store.Merge(ctx, []domain.CartLine{
			{ProductID: 2, Title: "Laptop Backpack", UnitPrice: 10995, Quantity: 1},
			{ProductID: 3, Title: "Gold Plated Ring", UnitPrice: 695, Quantity: 4},
		})

		require.Len(t, cart.Lines, 3)
		assert.Equal(t, int64(1), cart.Lines[0].ProductID)
		assert.Equal(t, int64(2), cart.Lines[1].ProductID)
		assert.Equal(t, int64(3), cart.Lines[2].ProductID)
		assert.Equal(t, 4, cart.Lines[2].Quantity)
	})

	t.Run("persists the merged cart", func(t *testing.T) {
		store, kv := newTestStore(t)

		store.Merge(ctx, []domain.CartLine{
			{ProductID: 1, Title: "Mens Casual T-Shirt", UnitPrice: 2295, Quantity: 2},
		})

		lines := persistedLines(t, kv, "cart:test")
		require.Len(t, lines, 1)
		assert.Equal(t, 2, lines[0].Quantity)
	})

	t.Run("empty input leaves the cart and the store untouched", func(t *testing.T) {
		store, kv := newTestStore(t)

		cart := store.Merge(ctx, nil)

		assert.Empty(t, cart.Lines)
		_, err := kv.Get(ctx, "cart:test")
		assert.Error(t, err)
	})
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, shirt)
	store.Add(ctx, bag)

	cart := store.Remove(ctx, shirt.ID)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(2), cart.Lines[0].ProductID)

	// Unknown product is a no-op, not an error.
	cart = store.Remove(ctx, 999)
	assert.Len(t, cart.Lines, 1)
}

func TestStoreIncrease(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, shirt)

	cart := store.Increase(ctx, shirt.ID)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	cart = store.Increase(ctx, 999)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestStoreDecrease(t *testing.T) {
	ctx := context.Background()

	t.Run("above one decrements", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)
		store.Add(ctx, shirt)

		cart := store.Decrease(ctx, shirt.ID)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 1, cart.Lines[0].Quantity)
	})

	t.Run("at one removes the line", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)

		cart := store.Decrease(ctx, shirt.ID)
		assert.Empty(t, cart.Lines)
	})

	t.Run("unknown product is a no-op", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)

		cart := store.Decrease(ctx, 999)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 1, cart.Lines[0].Quantity)
	})
}

func TestStoreQuantityNeverBelowOne(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, shirt)

	for i := 0; i < 5; i++ {
		cart := store.Decrease(ctx, shirt.ID)
		for _, line := range cart.Lines {
			assert.GreaterOrEqual(t, line.Quantity, 1)
		}
	}
	assert.Empty(t, store.Snapshot().Lines)
}

func TestStoreSubtotalAndCount(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.Add(ctx, shirt)
	store.Add(ctx, shirt)
	store.Add(ctx, bag)

	assert.Equal(t, int64(2*2295+10995), store.Subtotal())
	assert.Equal(t, 3, store.Count())

	store.Decrease(ctx, shirt.ID)
	assert.Equal(t, int64(2295+10995), store.Subtotal())
	assert.Equal(t, 2, store.Count())
}

func TestStorePersistsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	store.Add(ctx, shirt)
	lines := persistedLines(t, kv, "cart:test")
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)

	store.Increase(ctx, shirt.ID)
	lines = persistedLines(t, kv, "cart:test")
	assert.Equal(t, 2, lines[0].Quantity)

	store.Decrease(ctx, shirt.ID)
	lines = persistedLines(t, kv, "cart:test")
	assert.Equal(t, 1, lines[0].Quantity)

	store.Remove(ctx, shirt.ID)
	lines = persistedLines(t, kv, "cart:test")
	assert.Empty(t, lines)
}

func TestStoreClearDeletesPersistedKey(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	store.Add(ctx, shirt)

	cart := store.Clear(ctx)

	assert.Empty(t, cart.Lines)
	_, err := kv.Get(ctx, "cart:test")
	assert.Error(t, err)
}

func TestStoreSurvivesPersistenceOutage(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{inner: memory.NewKVStore()}
	store := NewStore(kv, "cart:test", testLogger())

	cart := store.Add(ctx, shirt)
	require.Len(t, cart.Lines, 1)

	cart = store.Increase(ctx, shirt.ID)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	cart = store.Clear(ctx)
	assert.Empty(t, cart.Lines)
}

func TestStoreRehydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("restores persisted lines and recomputes totals", func(t *testing.T) {
		kv := memory.NewKVStore()
		lines := []domain.CartLine{
			{ProductID: 1, Title: "Mens Casual T-Shirt", UnitPrice: 2295, Quantity: 2},
			{ProductID: 2, Title: "Laptop Backpack", UnitPrice: 10995, Quantity: 1},
		}
		data, err := json.Marshal(lines)
		require.NoError(t, err)
		require.NoError(t, kv.Set(ctx, "cart:test", data))

		store := NewStore(kv, "cart:test", testLogger())
		store.Rehydrate(ctx)

		assert.Equal(t, lines, store.Snapshot().Lines)
		assert.Equal(t, int64(2*2295+10995), store.Subtotal())
		assert.Equal(t, 3, store.Count())
	})

	t.Run("absent key yields empty cart", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Rehydrate(ctx)
		assert.Empty(t, store.Snapshot().Lines)
	})

	t.Run("malformed blob yields empty cart", func(t *testing.T) {
		kv := memory.NewKVStore()
		require.NoError(t, kv.Set(ctx, "cart:test", []byte("{not json")))

		store := NewStore(kv, "cart:test", testLogger())
		store.Rehydrate(ctx)
		assert.Empty(t, store.Snapshot().Lines)
	})

	t.Run("non-positive quantity invalidates the whole blob", func(t *testing.T) {
		kv := memory.NewKVStore()
		lines := []domain.CartLine{
			{ProductID: 1, UnitPrice: 2295, Quantity: 2},
			{ProductID: 2, UnitPrice: 10995, Quantity: 0},
		}
		data, err := json.Marshal(lines)
		require.NoError(t, err)
		require.NoError(t, kv.Set(ctx, "cart:test", data))

		store := NewStore(kv, "cart:test", testLogger())
		store.Rehydrate(ctx)
		assert.Empty(t, store.Snapshot().Lines)
	})

	t.Run("replaces any in-memory state", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Add(ctx, shirt)
		store.Clear(ctx)

		store.Rehydrate(ctx)
		assert.Empty(t, store.Snapshot().Lines)
	})
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()

	first := NewStore(kv, "cart:test", testLogger())
	first.Add(ctx, shirt)
	first.Add(ctx, shirt)
	first.Add(ctx, bag)
	want := first.Snapshot()

	second := NewStore(kv, "cart:test", testLogger())
	second.Rehydrate(ctx)

	assert.Equal(t, want.Lines, second.Snapshot().Lines)
	assert.Equal(t, want.Subtotal(), second.Subtotal())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, shirt)

	snapshot := store.Snapshot()
	snapshot.Lines[0].Quantity = 99

	assert.Equal(t, 1, store.Snapshot().Lines[0].Quantity)
}
