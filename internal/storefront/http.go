package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Yakebda/internal/cart"
	"Yakebda/internal/checkout"
	"Yakebda/internal/notify"
	"Yakebda/internal/order"
	"Yakebda/internal/session"
	"Yakebda/internal/store"
	"Yakebda/pkg/kit"
)

type Server struct {
	Session  *session.Session
	Store    store.Store
	Receipts *order.ReceiptSigner
	Feed     *notify.Feed
	Log      *zap.Logger
}

type cartResp struct {
	Items  []cart.LineItem `json:"items"`
	Totals cart.Totals     `json:"totals"`
	Count  int             `json:"count"`
}

// addItemReq takes price as a JSON number or a numeric string.
type addItemReq struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Image string      `json:"image"`
}

type placeOrderResp struct {
	Order   order.Order `json:"order"`
	Receipt string      `json:"receipt,omitempty"`
}

type verifyReq struct {
	Token string `json:"token"`
}

type verifyResp struct {
	OrderID   string    `json:"order_id"`
	Total     string    `json:"total"`
	Items     int       `json:"items"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) getCart(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) getTotals(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Session.Totals())
}

func (s *Server) getCount(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]int{"count": s.Session.ItemCount()})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if err := s.Session.AddItem(r.Context(), req.Name, req.Price.String(), req.Image); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, s.snapshot())
}

func (s *Server) increase(w http.ResponseWriter, r *http.Request) {
	s.atIndex(w, r, s.Session.IncreaseQuantity)
}

func (s *Server) decrease(w http.ResponseWriter, r *http.Request) {
	s.atIndex(w, r, s.Session.DecreaseQuantity)
}

// removeItem expects the UI to have confirmed with the customer already.
func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	s.atIndex(w, r, s.Session.RemoveItem)
}

func (s *Server) atIndex(w http.ResponseWriter, r *http.Request, op func(context.Context, int) error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad index", map[string]any{"index": raw})
		return
	}

	if err := op(r.Context(), index); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) validateCheckout(w http.ResponseWriter, r *http.Request) {
	var f checkout.Fields
	if err := kit.DecodeJSON(w, r, &f); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	info, err := s.Session.ValidateCheckout(f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var f checkout.Fields
	if err := kit.DecodeJSON(w, r, &f); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	o, err := s.Session.FinalizeOrder(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := placeOrderResp{Order: o}
	if s.Receipts != nil {
		// The order is already stored; a missing receipt is not worth failing it.
		tok, err := s.Receipts.Issue(o)
		if err != nil {
			s.logger().Error("issue receipt failed", zap.Error(err), zap.String("order_id", o.ID))
		}
		resp.Receipt = tok
	}
	kit.WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) lastOrder(w http.ResponseWriter, r *http.Request) {
	o, ok, err := s.Session.LastOrder(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "no order", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) verifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.Token == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "token required", nil)
		return
	}
	if s.Receipts == nil {
		kit.WriteError(w, r, http.StatusNotFound, "receipts disabled", nil)
		return
	}

	c, err := s.Receipts.Verify(req.Token)
	if err != nil {
		s.logger().Debug("receipt rejected", zap.Error(err))
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid receipt", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, verifyResp{
		OrderID:   c.OrderID,
		Total:     c.Total,
		Items:     c.Items,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	})
}

func (s *Server) drainNotifications(w http.ResponseWriter, _ *http.Request) {
	out := []notify.Notification{}
	if s.Feed != nil {
		out = s.Feed.Drain()
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) snapshot() cartResp {
	items, totals := s.Session.Snapshot()
	return cartResp{
		Items:  items,
		Totals: totals,
		Count:  cart.Count(items),
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError

	switch {
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusUnprocessableEntity, verr.Message, map[string]any{
			"code":  verr.Code,
			"field": verr.Field,
		})
	case errors.Is(err, cart.ErrInvalidIndex):
		kit.WriteError(w, r, http.StatusNotFound, "item not found", nil)
	case errors.Is(err, cart.ErrInvalidPrice), errors.Is(err, cart.ErrInvalidItem):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	case errors.Is(err, store.ErrStorageFailure):
		s.logger().Error("storage failure", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "storage unavailable", nil)
	default:
		s.logger().Error("request failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
