package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Yakebda/internal/config"
	"Yakebda/internal/expiry"
	"Yakebda/internal/notify"
	"Yakebda/internal/order"
	"Yakebda/internal/session"
	"Yakebda/internal/store"
	"Yakebda/internal/storefront"
	"Yakebda/pkg/kit"
)

func main() {
	service := "storefront"

	cfg, err := config.Load()
	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal("open store", zap.Error(err), zap.String("backend", cfg.Store.Backend))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	feed := notify.NewFeed(notify.DefaultFeedSize)
	sess := session.New(session.Options{
		Store:       st,
		Keys:        store.NewKeys(cfg.KeyPrefix),
		DeliveryFee: cfg.DeliveryFee,
		TTL:         cfg.OrderTTL,
		Scheduler:   expiry.TimerScheduler{},
		Notifier:    notify.Multi{notify.Log(log), feed},
		Metrics:     session.NewMetrics(reg),
		Log:         log,
	})
	if err := sess.Start(ctx); err != nil {
		log.Error("start session", zap.Error(err))
	}

	s := &storefront.Server{
		Session:  sess,
		Store:    st,
		Receipts: order.NewReceiptSigner(cfg.ReceiptSecret, cfg.OrderTTL),
		Feed:     feed,
		Log:      log,
	}
	h := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:           log,
		Service:       service,
		Registry:      reg,
		MetricsToken:  cfg.MetricsToken,
		CheckoutLimit: cfg.CheckoutLimit,
	})

	runner := &expiry.Runner{
		Interval: cfg.CheckInterval,
		Check:    sess.CheckExpiration,
		Log:      log.Named("expiry"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return kit.RunHTTPServer(gctx, cfg.Addr(), h, log) })
	g.Go(func() error { return runner.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("storefront stopped", zap.Error(err))
		return
	}
	log.Info("storefront stopped")
}
