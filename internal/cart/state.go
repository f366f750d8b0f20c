// Package cart holds the session's ordered line items and keeps the persisted
// snapshot in step with memory.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Yakebda/internal/notify"
	"Yakebda/internal/store"
)

type Options struct {
	Store       store.Store
	Keys        store.Keys
	DeliveryFee decimal.Decimal
	Notifier    notify.Notifier
	Log         *zap.Logger
}

// State is the single in-memory cart of a session. Every mutation rewrites
// the whole snapshot; if that write fails the mutation is undone.
type State struct {
	mu       sync.RWMutex
	items    []LineItem
	store    store.Store
	keys     store.Keys
	fee      decimal.Decimal
	notifier notify.Notifier
	log      *zap.Logger
}

func New(o Options) *State {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Keys == (store.Keys{}) {
		o.Keys = store.NewKeys("")
	}
	return &State{
		items:    []LineItem{},
		store:    o.Store,
		keys:     o.Keys,
		fee:      o.DeliveryFee,
		notifier: o.Notifier,
		log:      o.Log,
	}
}

// Load hydrates the cart from the store. Unreadable content is removed and the
// cart reset; the returned error then matches ErrCorruptCartData and is safe
// to log and ignore. A failed read keeps the current items.
func (s *State) Load(ctx context.Context) error {
	raw, ok, err := s.store.Get(ctx, s.keys.Cart)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.items = []LineItem{}
		return nil
	}

	items, perr := decodeItems(raw)
	if perr == nil {
		s.items = items
		return nil
	}

	s.items = []LineItem{}
	corrupt := fmt.Errorf("%w: %v", ErrCorruptCartData, perr)
	if err := s.store.Remove(ctx, s.keys.Cart); err != nil {
		return errors.Join(corrupt, err)
	}
	return corrupt
}

func decodeItems(raw string) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if err := validateAll(items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}

// AddItem merges by name: an existing entry gains one unit, a new one is
// appended with quantity 1.
func (s *State) AddItem(ctx context.Context, item LineItem) error {
	item.Quantity = 1
	if err := item.validate(); err != nil {
		return err
	}

	err := s.mutate(ctx, func(items []LineItem) ([]LineItem, error) {
		if i := slices.IndexFunc(items, func(it LineItem) bool { return it.Name == item.Name }); i >= 0 {
			items[i].Quantity++
			return items, nil
		}
		return append(items, item), nil
	})
	if err != nil {
		return err
	}

	notify.Raise(s.notifier, notify.Success, fmt.Sprintf("%s added to cart ✓", item.Name))
	return nil
}

func (s *State) IncreaseQuantity(ctx context.Context, index int) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, error) {
		if err := checkIndex(items, index); err != nil {
			return nil, err
		}
		items[index].Quantity++
		return items, nil
	})
}

// DecreaseQuantity removes the item instead of letting it reach zero.
func (s *State) DecreaseQuantity(ctx context.Context, index int) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, error) {
		if err := checkIndex(items, index); err != nil {
			return nil, err
		}
		if items[index].Quantity > 1 {
			items[index].Quantity--
			return items, nil
		}
		return slices.Delete(items, index, index+1), nil
	})
}

// RemoveItem deletes unconditionally; asking the user first is up to the
// caller.
func (s *State) RemoveItem(ctx context.Context, index int) error {
	return s.mutate(ctx, func(items []LineItem) ([]LineItem, error) {
		if err := checkIndex(items, index); err != nil {
			return nil, err
		}
		return slices.Delete(items, index, index+1), nil
	})
}

// Clear empties the cart and drops the persisted cart and expiration record.
// Calling it on an empty cart is fine.
func (s *State) Clear(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		s.log.Error("clear cart failed", zap.Error(err))
		notify.Raise(s.notifier, notify.Error, "failed to empty cart")
		return err
	}
	notify.Raise(s.notifier, notify.Success, "cart emptied")
	return nil
}

func (s *State) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, s.keys.Cart); err != nil {
		return err
	}
	s.items = []LineItem{}

	// A record left behind by a failed removal makes the next expiration
	// check clear again.
	return s.store.Remove(ctx, s.keys.OrderTime)
}

func (s *State) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeTotals(s.items, s.fee)
}

func (s *State) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Count(s.items)
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy safe to keep after further mutations.
func (s *State) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *State) mutate(ctx context.Context, fn func([]LineItem) ([]LineItem, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(slices.Clone(s.items))
	if err != nil {
		return err
	}

	if err := s.persist(ctx, next); err != nil {
		s.log.Error("save cart failed", zap.Error(err))
		notify.Raise(s.notifier, notify.Error, "failed to save cart")
		return err
	}

	s.items = next
	return nil
}

func (s *State) persist(ctx context.Context, items []LineItem) error {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return s.store.Set(ctx, s.keys.Cart, string(b))
}

func checkIndex(items []LineItem, index int) error {
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%w: %d (len %d)", ErrInvalidIndex, index, len(items))
	}
	return nil
}
