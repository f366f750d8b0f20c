package order

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const receiptIssuer = "yakebda-storefront"

var ErrInvalidReceipt = errors.New("invalid receipt")

// ReceiptSigner issues signed order receipts that stop verifying at the same
// moment the order itself expires.
type ReceiptSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewReceiptSigner(secret string, ttl time.Duration) *ReceiptSigner {
	return &ReceiptSigner{
		secret: []byte(secret),
		issuer: receiptIssuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

type ReceiptClaims struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
	Items   int    `json:"items"`
	jwt.RegisteredClaims
}

func (r *ReceiptSigner) Issue(o Order) (string, error) {
	createdAt := o.CreatedAt()

	claims := ReceiptClaims{
		OrderID: o.ID,
		Total:   o.Total.String(),
		Items:   o.ItemCount(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   o.ID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(createdAt),
			ExpiresAt: jwt.NewNumericDate(createdAt.Add(r.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

func (r *ReceiptSigner) Verify(tokenStr string) (ReceiptClaims, error) {
	var c ReceiptClaims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return ReceiptClaims{}, errors.Join(ErrInvalidReceipt, err)
	}
	if token == nil || !token.Valid || c.OrderID == "" || c.OrderID != c.Subject {
		return ReceiptClaims{}, ErrInvalidReceipt
	}

	return c, nil
}
