package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Yakebda/internal/cart"
	"Yakebda/internal/checkout"
	"Yakebda/internal/expiry"
	"Yakebda/internal/store"
)

type Finalizer struct {
	Store       store.Store
	Keys        store.Keys
	DeliveryFee decimal.Decimal
	TTL         time.Duration
	Now         func() time.Time
	Scheduler   expiry.Scheduler
	// OnExpire runs once the TTL of a finalized order has elapsed.
	OnExpire func()
	Log      *zap.Logger
}

// Finalize snapshots items and customer into an Order and persists it as the
// last order together with its expiration record, replacing any previous
// order. The cart itself is left alone; OnExpire is scheduled for TTL later.
func (f *Finalizer) Finalize(ctx context.Context, items []cart.LineItem, customer checkout.CustomerInfo) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyOrder
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	createdAt := now()

	totals := computeTotals(items, f.DeliveryFee)
	o := Order{
		ID:        NewID(createdAt),
		Items:     slices.Clone(items),
		Customer:  customer,
		Subtotal:  totals.Subtotal,
		Delivery:  totals.Delivery,
		Total:     totals.Total,
		Timestamp: createdAt.UnixMilli(),
	}

	if err := f.persist(ctx, o); err != nil {
		return Order{}, err
	}

	if f.Scheduler != nil && f.OnExpire != nil {
		f.Scheduler.AfterFunc(f.ttl(), f.OnExpire)
	}

	f.logger().Info("order finalized",
		zap.String("order_id", o.ID),
		zap.Int("items", o.ItemCount()),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

// persist writes the order, then its expiration record. If the record cannot
// be written the previous last order is put back so the two keys never
// disagree.
func (f *Finalizer) persist(ctx context.Context, o Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	prev, hadPrev, err := f.Store.Get(ctx, f.Keys.LastOrder)
	if err != nil {
		return err
	}

	if err := f.Store.Set(ctx, f.Keys.LastOrder, string(b)); err != nil {
		return err
	}

	recErr := f.Store.Set(ctx, f.Keys.OrderTime, expiry.FormatRecord(o.CreatedAt()))
	if recErr == nil {
		return nil
	}

	var restoreErr error
	if hadPrev {
		restoreErr = f.Store.Set(ctx, f.Keys.LastOrder, prev)
	} else {
		restoreErr = f.Store.Remove(ctx, f.Keys.LastOrder)
	}
	if restoreErr != nil {
		f.logger().Error("restore previous order failed", zap.Error(restoreErr))
	}
	return errors.Join(recErr, restoreErr)
}

// Last returns the most recently finalized order, if any.
func (f *Finalizer) Last(ctx context.Context) (Order, bool, error) {
	raw, ok, err := f.Store.Get(ctx, f.Keys.LastOrder)
	if err != nil || !ok {
		return Order{}, false, err
	}

	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return Order{}, false, fmt.Errorf("%w: %v", ErrCorruptOrder, err)
	}
	return o, true, nil
}

func (f *Finalizer) ttl() time.Duration {
	if f.TTL <= 0 {
		return expiry.DefaultTTL
	}
	return f.TTL
}

func (f *Finalizer) logger() *zap.Logger {
	if f.Log == nil {
		return zap.NewNop()
	}
	return f.Log
}
