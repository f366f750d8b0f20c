package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidIndex    = errors.New("cart index out of range")
	ErrCorruptCartData = errors.New("corrupt cart data")
	ErrInvalidItem     = errors.New("invalid line item")
	ErrInvalidPrice    = errors.New("invalid price")
)

const (
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2

	// Exponents outside this range are rejected before any arithmetic, which
	// would otherwise expand them digit by digit.
	maxPriceExponent = 9
	minPriceExponent = -9
)

// MaxPrice caps a single unit price.
var MaxPrice = decimal.NewFromInt(1_000_000)

// LineItem is one distinct product in the cart. Name is its key.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// NewLineItem validates a product at the point it enters the cart.
func NewLineItem(name string, price decimal.Decimal, image string) (LineItem, error) {
	it := LineItem{
		Name:     strings.TrimSpace(name),
		Price:    price,
		Image:    strings.TrimSpace(image),
		Quantity: 1,
	}
	if err := it.validate(); err != nil {
		return LineItem{}, err
	}
	return it, nil
}

// ParsePrice turns UI-supplied price text into a decimal.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if err := checkPrice(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func (it LineItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func (it LineItem) validate() error {
	switch {
	case it.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidItem)
	case it.Quantity < 1:
		return fmt.Errorf("%w: quantity %d for %q", ErrInvalidItem, it.Quantity, it.Name)
	}
	if err := checkPrice(it.Price); err != nil {
		return fmt.Errorf("%w (item %q)", err, it.Name)
	}
	return nil
}

// checkPrice looks at the exponent first so that absurd magnitudes are
// rejected without being expanded.
func checkPrice(d decimal.Decimal) error {
	if exp := d.Exponent(); exp > maxPriceExponent || exp < minPriceExponent {
		return fmt.Errorf("%w: exponent %d out of range", ErrInvalidPrice, exp)
	}
	switch {
	case d.IsNegative():
		return fmt.Errorf("%w: negative %s", ErrInvalidPrice, d)
	case d.GreaterThan(MaxPrice):
		return fmt.Errorf("%w: %s above %s", ErrInvalidPrice, d, MaxPrice)
	case !d.Equal(d.Truncate(PriceScale)):
		return fmt.Errorf("%w: more than %d decimal places in %s", ErrInvalidPrice, PriceScale, d)
	}
	return nil
}

func validateAll(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.validate(); err != nil {
			return err
		}
		if _, dup := seen[it.Name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidItem, it.Name)
		}
		seen[it.Name] = struct{}{}
	}
	return nil
}
