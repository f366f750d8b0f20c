package order

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Yakebda/internal/expiry"
)

func receiptOrder(createdAt time.Time) Order {
	return Order{
		ID:        NewID(createdAt),
		Items:     lineItems(100, 2),
		Subtotal:  decimal.NewFromInt(200),
		Delivery:  decimal.NewFromInt(30),
		Total:     decimal.NewFromInt(230),
		Timestamp: createdAt.UnixMilli(),
	}
}

func TestReceipt_IssueVerify(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewReceiptSigner("test-secret", expiry.DefaultTTL)
	r.now = func() time.Time { return created.Add(time.Hour) }

	o := receiptOrder(created)
	tok, err := r.Issue(o)
	require.NoError(t, err)

	c, err := r.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, o.ID, c.OrderID)
	assert.Equal(t, "230", c.Total)
	assert.Equal(t, 2, c.Items)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.ExpiresAt.Time.Equal(created.Add(expiry.DefaultTTL)))
}

func TestReceipt_ExpiresWithOrder(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewReceiptSigner("test-secret", expiry.DefaultTTL)
	tok, err := r.Issue(receiptOrder(created))
	require.NoError(t, err)

	r.now = func() time.Time { return created.Add(expiry.DefaultTTL + time.Second) }
	_, err = r.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestReceipt_RejectsForeignTokens(t *testing.T) {
	created := time.Now()
	r := NewReceiptSigner("test-secret", expiry.DefaultTTL)

	other, err := NewReceiptSigner("other-secret", expiry.DefaultTTL).Issue(receiptOrder(created))
	require.NoError(t, err)
	_, err = r.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, ReceiptClaims{OrderID: "ORD-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = r.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	tok, err := r.Issue(receiptOrder(created))
	require.NoError(t, err)
	parts := strings.Split(tok, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	_, err = r.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}
