package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Yakebda/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
	// MetricsToken guards /metrics. Empty locks the endpoint.
	MetricsToken string
	// CheckoutLimit is checkouts per client IP per minute; <= 0 disables it.
	CheckoutLimit int
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.RoutePatternOrPath))
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/cart", func(cr chi.Router) {
		cr.Get("/", s.getCart)
		cr.Delete("/", s.clearCart)
		cr.Get("/totals", s.getTotals)
		cr.Get("/count", s.getCount)
		cr.Post("/items", s.addItem)
		cr.Post("/items/{index}/increase", s.increase)
		cr.Post("/items/{index}/decrease", s.decrease)
		cr.Delete("/items/{index}", s.removeItem)
	})

	limiter := kit.NewIPRateLimiter(deps.CheckoutLimit, time.Minute)
	r.Post("/checkout/validate", s.validateCheckout)
	r.With(limiter.Middleware).Post("/checkout", s.placeOrder)

	r.Get("/orders/last", s.lastOrder)
	r.Post("/orders/receipts/verify", s.verifyReceipt)

	r.Get("/notifications", s.drainNotifications)

	return r
}
