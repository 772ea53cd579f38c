// Command mavrouterd is the MAVLink router daemon: it multiplexes frames
// between any number of UDP, TCP and serial endpoints, forwarding by the
// dialect's per-message targeting rules and fanning matching frames out to
// local subscribers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
	"github.com/nemoria/mavrouter/internal/metrics"
	"github.com/nemoria/mavrouter/internal/router"
	"github.com/nemoria/mavrouter/internal/subscription"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "mavrouterd:", err)
		os.Exit(2)
	}

	log := setupLogger(cfg)
	log.Info("starting", "version", version, "commit", commit, "endpoints", len(cfg.endpoints))

	metrics.InitBuildInfo(version, commit, date)

	store, closeStore, err := buildSubscriptionStore(cfg)
	if err != nil {
		log.Error("subscription_store_init_failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	subs, err := subscription.New(store, 64, subscription.PolicyDrop, mavlink.Common)
	if err != nil {
		log.Error("subscription_registry_init_failed", "error", err)
		os.Exit(1)
	}
	defer subs.Close()
	metrics.SetSubscriptionsActive(subs.Count())

	codec := mavlink.NewCodec(mavlink.Common)
	r := router.New(mavlink.Common, codec, subs, uint8(cfg.systemID), uint8(cfg.componentID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initEndpoints(ctx, r, codec, cfg.endpoints, log); err != nil {
		log.Error("endpoint_init_failed", "error", err)
		os.Exit(1)
	}

	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.metricsAddr != "" {
		metrics.SetReadinessFunc(func() bool { return true })
		metricsSrv = metrics.StartHTTP(cfg.metricsAddr)
	}

	go runMetricsLogger(ctx, log, 30*time.Second)

	runErr := r.Run(ctx)
	log.Info("stopped", "reason", runErr)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// buildSubscriptionStore returns the MemStore by default, or a NATSStore
// when --nats-url/MAVROUTERD_NATS_URL is set, plus a cleanup func.
func buildSubscriptionStore(cfg appConfig) (subscription.Store, func(), error) {
	if cfg.natsURL == "" {
		return subscription.NewMemStore(), func() {}, nil
	}
	ns, err := subscription.NewNATSStore(cfg.natsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("nats store: %w", err)
	}
	return ns, func() { _ = ns.Close() }, nil
}
