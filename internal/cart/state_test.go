package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Yakebda/internal/notify"
	"Yakebda/internal/store"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails writes on demand, and removals of one key.
type flakyStore struct {
	*store.MemStore
	failSet    bool
	failRemove string
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	if key != "" && key == f.failRemove {
		return &store.StorageError{Op: "remove", Key: key, Err: errDiskFull}
	}
	return f.MemStore.Remove(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return &store.StorageError{Op: "set", Key: key, Err: errDiskFull}
	}
	return f.MemStore.Set(ctx, key, value)
}

type fixture struct {
	state *State
	store *flakyStore
	feed  *notify.Feed
	keys  store.Keys
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := &flakyStore{MemStore: store.NewMemStore()}
	feed := notify.NewFeed(32)
	keys := store.NewKeys("")
	return fixture{
		state: New(Options{Store: st, Keys: keys, DeliveryFee: decimal.NewFromInt(30), Notifier: feed}),
		store: st,
		feed:  feed,
		keys:  keys,
	}
}

func item(t *testing.T, name string, price int64) LineItem {
	t.Helper()
	it, err := NewLineItem(name, decimal.NewFromInt(price), "img/"+name+".png")
	require.NoError(t, err)
	return it
}

func TestAddItem_MergesSameName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.state.AddItem(ctx, item(t, "Falafel", 15)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Falafel", 15)))

	items := f.state.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, f.state.ItemCount())

	got := f.feed.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, notify.Success, got[0].Severity)
	assert.Contains(t, got[0].Message, "Falafel")
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Tea", "Coffee", "Tea", "Juice"} {
		require.NoError(t, f.state.AddItem(ctx, item(t, name, 10)))
	}

	var names []string
	for _, it := range f.state.Items() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Tea", "Coffee", "Juice"}, names)
}

func TestDecreaseQuantity_AtOneRemoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Coffee", 20)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Coffee", 20)))

	require.NoError(t, f.state.DecreaseQuantity(ctx, 1))
	assert.Equal(t, 1, f.state.Items()[1].Quantity)

	require.NoError(t, f.state.DecreaseQuantity(ctx, 0))
	items := f.state.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Coffee", items[0].Name)
}

func TestIndexOperations_OutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))

	for _, idx := range []int{-1, 1, 99} {
		assert.ErrorIs(t, f.state.IncreaseQuantity(ctx, idx), ErrInvalidIndex)
		assert.ErrorIs(t, f.state.DecreaseQuantity(ctx, idx), ErrInvalidIndex)
		assert.ErrorIs(t, f.state.RemoveItem(ctx, idx), ErrInvalidIndex)
	}
	assert.Equal(t, 1, f.state.ItemCount())
}

func TestIncreaseAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Cake", 40)))

	require.NoError(t, f.state.IncreaseQuantity(ctx, 0))
	require.NoError(t, f.state.IncreaseQuantity(ctx, 0))
	assert.Equal(t, 3, f.state.Items()[0].Quantity)

	require.NoError(t, f.state.RemoveItem(ctx, 0))
	items := f.state.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Cake", items[0].Name)
}

func TestTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.state.Totals()
	assert.True(t, empty.Subtotal.IsZero())
	assert.True(t, empty.Delivery.IsZero())
	assert.True(t, empty.Total.IsZero())

	require.NoError(t, f.state.AddItem(ctx, item(t, "Shawarma", 100)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Shawarma", 100)))
	one := f.state.Totals()
	assert.Equal(t, "200", one.Subtotal.String())
	assert.Equal(t, "30", one.Delivery.String())
	assert.Equal(t, "230", one.Total.String())

	require.NoError(t, f.state.AddItem(ctx, item(t, "Pepsi", 15)))
	two := f.state.Totals()
	assert.Equal(t, "30", two.Delivery.String(), "delivery is flat regardless of item count")
	assert.Equal(t, "245", two.Total.String())
}

func TestPersistLoad_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
	require.NoError(t, f.state.AddItem(ctx, item(t, "Cake", 40)))
	require.NoError(t, f.state.IncreaseQuantity(ctx, 1))

	half, err := NewLineItem("Half", decimal.RequireFromString("12.5"), "")
	require.NoError(t, err)
	require.NoError(t, f.state.AddItem(ctx, half))

	reloaded := New(Options{Store: f.store, Keys: f.keys, DeliveryFee: decimal.NewFromInt(30)})
	require.NoError(t, reloaded.Load(ctx))

	want, got := f.state.Items(), reloaded.Items()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.True(t, want[i].Price.Equal(got[i].Price), "price of %s", want[i].Name)
		assert.Equal(t, want[i].Image, got[i].Image)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
	}
}

func TestLoad_AbsentKeyIsEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.state.Load(context.Background()))
	assert.Empty(t, f.state.Items())
}

func TestLoad_AcceptsNumericPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, f.keys.Cart, `[{"name":"Tea","price":10,"image":"tea.png","quantity":3}]`))

	require.NoError(t, f.state.Load(ctx))
	assert.Equal(t, 3, f.state.ItemCount())
	assert.Equal(t, "30", f.state.Totals().Subtotal.String())
}

func TestLoad_CorruptDataResets(t *testing.T) {
	cases := map[string]string{
		"malformed json":  `[{"name":`,
		"not an array":    `{"name":"Tea"}`,
		"zero quantity":   `[{"name":"Tea","price":10,"quantity":0}]`,
		"negative price":  `[{"name":"Tea","price":-1,"quantity":1}]`,
		"duplicate names": `[{"name":"Tea","price":1,"quantity":1},{"name":"Tea","price":1,"quantity":2}]`,
		"empty name":      `[{"name":"","price":1,"quantity":1}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.state.AddItem(ctx, item(t, "Old", 5)))
			require.NoError(t, f.store.Set(ctx, f.keys.Cart, raw))

			err := f.state.Load(ctx)
			assert.ErrorIs(t, err, ErrCorruptCartData)
			assert.Empty(t, f.state.Items())

			_, ok, err := f.store.Get(ctx, f.keys.Cart)
			require.NoError(t, err)
			assert.False(t, ok, "corrupt key is removed")

			assert.NoError(t, f.state.Load(ctx), "second load finds nothing")
		})
	}
}

func TestMutation_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
	f.feed.Drain()

	f.store.failSet = true
	err := f.state.AddItem(ctx, item(t, "Cake", 40))
	assert.ErrorIs(t, err, store.ErrStorageFailure)
	assert.ErrorIs(t, f.state.IncreaseQuantity(ctx, 0), store.ErrStorageFailure)

	items := f.state.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	got := f.feed.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, notify.Error, got[0].Severity)
}

func TestClear_StorageFailureKeepsMemoryAndStoreEqual(t *testing.T) {
	cases := []struct {
		failing   string
		wantItems int
	}{
		{"yakebda_cart", 1},
		{"yakebda_order_time", 0},
	}
	for _, tc := range cases {
		t.Run(tc.failing, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
			require.NoError(t, f.store.Set(ctx, f.keys.OrderTime, "1760000000000"))
			f.feed.Drain()

			f.store.failRemove = tc.failing
			assert.ErrorIs(t, f.state.Clear(ctx), store.ErrStorageFailure)

			assert.Len(t, f.state.Items(), tc.wantItems)
			_, persisted, err := f.store.Get(ctx, f.keys.Cart)
			require.NoError(t, err)
			assert.Equal(t, tc.wantItems > 0, persisted)

			_, recorded, err := f.store.Get(ctx, f.keys.OrderTime)
			require.NoError(t, err)
			assert.True(t, recorded, "record survives so clearing is retried")

			got := f.feed.Drain()
			require.Len(t, got, 1)
			assert.Equal(t, notify.Error, got[0].Severity)
		})
	}
}

func TestClear_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))
	require.NoError(t, f.store.Set(ctx, f.keys.OrderTime, "1760000000000"))

	require.NoError(t, f.state.Clear(ctx))
	assert.Empty(t, f.state.Items())
	require.NoError(t, f.state.Clear(ctx))
	assert.Empty(t, f.state.Items())
	assert.Zero(t, f.state.ItemCount())

	for _, key := range []string{f.keys.Cart, f.keys.OrderTime} {
		_, ok, err := f.store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestItems_ReturnsCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.state.AddItem(ctx, item(t, "Tea", 10)))

	snapshot := f.state.Items()
	require.NoError(t, f.state.IncreaseQuantity(ctx, 0))
	assert.Equal(t, 1, snapshot[0].Quantity)
}
