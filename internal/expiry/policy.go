// Package expiry evicts a finalized order and its cart once the order is
// older than the TTL.
package expiry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"Yakebda/internal/notify"
	"Yakebda/internal/store"
)

const (
	DefaultTTL      = 10 * time.Hour
	DefaultInterval = 60 * time.Second
)

// Clearer empties the cart and removes its persisted keys, including the
// expiration record.
type Clearer interface {
	Clear(ctx context.Context) error
}

type Policy struct {
	Store    store.Store
	Keys     store.Keys
	Cart     Clearer
	TTL      time.Duration
	Now      func() time.Time
	Notifier notify.Notifier
	Log      *zap.Logger
}

// Check clears the cart and the last order when the expiration record has
// reached the TTL. No record means nothing to do. An unreadable record is
// treated as stale.
func (p *Policy) Check(ctx context.Context) (bool, error) {
	raw, ok, err := p.Store.Get(ctx, p.Keys.OrderTime)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if recorded, perr := ParseRecord(raw); perr == nil {
		if p.now().Sub(recorded) < p.ttl() {
			return false, nil
		}
	} else {
		p.logger().Warn("unreadable expiration record", zap.String("value", raw), zap.Error(perr))
	}

	// Clearing the cart drops the record, so it must be the last step for a
	// failure to be retried on the next check.
	if err := p.Store.Remove(ctx, p.Keys.LastOrder); err != nil {
		return false, fmt.Errorf("remove expired order: %w", err)
	}
	if err := p.Cart.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear expired cart: %w", err)
	}

	p.logger().Info("expired order cleared", zap.Duration("ttl", p.ttl()))
	notify.Raise(p.Notifier, notify.Warning,
		fmt.Sprintf("previous order removed automatically (%s elapsed)", humanize(p.ttl())))
	return true, nil
}

// FormatRecord renders an instant as epoch milliseconds.
func FormatRecord(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func ParseRecord(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiration record %q: %w", s, err)
	}
	return time.UnixMilli(ms), nil
}

// now is truncated to the millisecond precision records are stored with.
func (p *Policy) now() time.Time {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Truncate(time.Millisecond)
}

func (p *Policy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultTTL
	}
	return p.TTL
}

func (p *Policy) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func humanize(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
