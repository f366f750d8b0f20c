// Package order turns a validated cart into the immutable last-order record
// and schedules its expiry.
package order

import (
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"Yakebda/internal/cart"
	"Yakebda/internal/checkout"
)

const idPrefix = "ORD-"

var (
	ErrEmptyOrder   = errors.New("order has no items")
	ErrCorruptOrder = errors.New("corrupt last order data")
)

// Order is a snapshot taken at finalization. It is replaced by the next
// order, never updated.
type Order struct {
	ID        string                `json:"orderId"`
	Items     []cart.LineItem       `json:"cart"`
	Customer  checkout.CustomerInfo `json:"customer"`
	Subtotal  decimal.Decimal       `json:"subtotal"`
	Delivery  decimal.Decimal       `json:"delivery"`
	Total     decimal.Decimal       `json:"total"`
	Timestamp int64                 `json:"timestamp"`
}

func (o Order) CreatedAt() time.Time { return time.UnixMilli(o.Timestamp) }

func (o Order) ItemCount() int { return cart.Count(o.Items) }

// NewID derives the order id from the last eight digits of the epoch
// milliseconds. Two orders within the same truncation window collide.
func NewID(createdAt time.Time) string {
	ms := strconv.FormatInt(createdAt.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return idPrefix + ms
}

// computeTotals charges delivery on any non-empty order, even one whose items
// are all free.
func computeTotals(items []cart.LineItem, fee decimal.Decimal) cart.Totals {
	t := cart.ComputeTotals(items, fee)
	if len(items) > 0 && t.Delivery.IsZero() {
		t.Delivery = fee
		t.Total = t.Subtotal.Add(fee)
	}
	return t
}
