// Package session wires the cart, expiration policy and order finalizer into
// the one instance a storefront process owns.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Yakebda/internal/cart"
	"Yakebda/internal/checkout"
	"Yakebda/internal/expiry"
	"Yakebda/internal/notify"
	"Yakebda/internal/order"
	"Yakebda/internal/store"
)

const (
	msgOrderPlaced = "order placed successfully, we will contact you soon"
	msgOrderFailed = "failed to place order, please try again"
	msgCartReset   = "saved cart could not be read and was reset"
	msgLoadFailed  = "saved cart is unavailable right now"

	expireCallTimeout = 10 * time.Second
)

type Options struct {
	Store       store.Store
	Keys        store.Keys
	DeliveryFee decimal.Decimal
	TTL         time.Duration
	Now         func() time.Time
	Scheduler   expiry.Scheduler
	Notifier    notify.Notifier
	Metrics     *Metrics
	Log         *zap.Logger
}

// Session serializes every operation on the cart and the last order. HTTP
// handlers, the periodic runner and TTL timers all go through it.
type Session struct {
	mu        sync.Mutex
	cart      *cart.State
	policy    *expiry.Policy
	finalizer *order.Finalizer
	notifier  notify.Notifier
	metrics   *Metrics
	log       *zap.Logger
}

func New(o Options) *Session {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Keys == (store.Keys{}) {
		o.Keys = store.NewKeys("")
	}
	if o.TTL <= 0 {
		o.TTL = expiry.DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Scheduler == nil {
		o.Scheduler = expiry.TimerScheduler{}
	}

	s := &Session{
		notifier: o.Notifier,
		metrics:  o.Metrics,
		log:      o.Log,
	}
	s.cart = cart.New(cart.Options{
		Store:       o.Store,
		Keys:        o.Keys,
		DeliveryFee: o.DeliveryFee,
		Notifier:    o.Notifier,
		Log:         o.Log.Named("cart"),
	})
	s.policy = &expiry.Policy{
		Store:    o.Store,
		Keys:     o.Keys,
		Cart:     s.cart,
		TTL:      o.TTL,
		Now:      o.Now,
		Notifier: o.Notifier,
		Log:      o.Log.Named("expiry"),
	}
	s.finalizer = &order.Finalizer{
		Store:       o.Store,
		Keys:        o.Keys,
		DeliveryFee: o.DeliveryFee,
		TTL:         o.TTL,
		Now:         o.Now,
		Scheduler:   o.Scheduler,
		OnExpire:    s.expireFromTimer,
		Log:         o.Log.Named("order"),
	}
	return s
}

// Start loads the persisted cart and drops it if the last order has expired.
// Unreadable cart data is reset and an unreachable store leaves the cart
// empty; both are reported through the notifier, not returned. The periodic
// check retries the expiration step.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cart.Load(ctx); err != nil {
		switch {
		case errors.Is(err, cart.ErrCorruptCartData):
			s.log.Warn("persisted cart reset", zap.Error(err))
			notify.Raise(s.notifier, notify.Error, msgCartReset)
		case errors.Is(err, store.ErrStorageFailure):
			s.metrics.observeErr(err)
			s.log.Error("load cart failed, starting empty", zap.Error(err))
			notify.Raise(s.notifier, notify.Error, msgLoadFailed)
		default:
			return err
		}
	}

	if _, err := s.checkExpiration(ctx); err != nil {
		if !errors.Is(err, store.ErrStorageFailure) {
			return err
		}
		s.log.Error("startup expiration check failed", zap.Error(err))
	}

	s.metrics.items(s.cart.ItemCount())
	s.log.Info("session started", zap.Int("lines", s.cart.Len()), zap.Int("items", s.cart.ItemCount()))
	return nil
}

// AddItem parses the UI's price text before the item enters the cart.
func (s *Session) AddItem(ctx context.Context, name, priceText, image string) error {
	price, err := cart.ParsePrice(priceText)
	if err != nil {
		return err
	}
	item, err := cart.NewLineItem(name, price, image)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "add", func(ctx context.Context) error { return s.cart.AddItem(ctx, item) })
}

func (s *Session) IncreaseQuantity(ctx context.Context, index int) error {
	return s.mutate(ctx, "increase", func(ctx context.Context) error { return s.cart.IncreaseQuantity(ctx, index) })
}

func (s *Session) DecreaseQuantity(ctx context.Context, index int) error {
	return s.mutate(ctx, "decrease", func(ctx context.Context) error { return s.cart.DecreaseQuantity(ctx, index) })
}

func (s *Session) RemoveItem(ctx context.Context, index int) error {
	return s.mutate(ctx, "remove", func(ctx context.Context) error { return s.cart.RemoveItem(ctx, index) })
}

func (s *Session) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", s.cart.Clear)
}

func (s *Session) Totals() cart.Totals { return s.cart.Totals() }

func (s *Session) ItemCount() int { return s.cart.ItemCount() }

func (s *Session) Items() []cart.LineItem { return s.cart.Items() }

// Snapshot returns items and their totals as of the same moment.
func (s *Session) Snapshot() ([]cart.LineItem, cart.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items(), s.cart.Totals()
}

// ValidateCheckout checks the form against the current cart and raises an
// error notification with the failing rule's message.
func (s *Session) ValidateCheckout(f checkout.Fields) (checkout.CustomerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validate(f)
}

// FinalizeOrder validates, records the order and starts its TTL. The cart is
// kept until the order expires or the customer clears it.
func (s *Session) FinalizeOrder(ctx context.Context, f checkout.Fields) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.validate(f)
	if err != nil {
		return order.Order{}, err
	}

	o, err := s.finalizer.Finalize(ctx, s.cart.Items(), info)
	if err != nil {
		s.metrics.observeErr(err)
		s.log.Error("finalize order failed", zap.Error(err))
		notify.Raise(s.notifier, notify.Error, msgOrderFailed)
		return order.Order{}, err
	}

	s.metrics.orderFinalized()
	notify.Raise(s.notifier, notify.Success, msgOrderPlaced)
	return o, nil
}

func (s *Session) LastOrder(ctx context.Context) (order.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizer.Last(ctx)
}

// CheckExpiration clears the cart and last order once the TTL has elapsed.
func (s *Session) CheckExpiration(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkExpiration(ctx)
}

func (s *Session) checkExpiration(ctx context.Context) (bool, error) {
	expired, err := s.policy.Check(ctx)
	if err != nil {
		s.metrics.observeErr(err)
		return false, err
	}
	if expired {
		s.metrics.expired()
		s.metrics.items(s.cart.ItemCount())
	}
	return expired, nil
}

// expireFromTimer runs on the timer goroutine. A newer order resets the
// record, so this is a no-op when the order it was scheduled for is gone.
func (s *Session) expireFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), expireCallTimeout)
	defer cancel()

	if _, err := s.CheckExpiration(ctx); err != nil {
		s.log.Error("scheduled expiration failed", zap.Error(err))
	}
}

func (s *Session) validate(f checkout.Fields) (checkout.CustomerInfo, error) {
	info, err := checkout.Validate(s.cart.Len(), f)
	if err != nil {
		s.metrics.observeErr(err)
		notify.Raise(s.notifier, notify.Error, err.Error())
		return checkout.CustomerInfo{}, err
	}
	return info, nil
}

func (s *Session) mutate(ctx context.Context, op string, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.metrics.observeErr(err)
		return err
	}
	s.metrics.mutation(op, s.cart.ItemCount())
	return nil
}
