package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/nemoria/mavrouter/internal/metrics"
)

// runMetricsLogger periodically logs a metrics.Snapshot so the daemon's
// health is visible in logs even when nothing is scraping /metrics.
func runMetricsLogger(ctx context.Context, log *slog.Logger, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := metrics.Snap()
			log.Info("metrics_snapshot",
				"frames_v1", s.FramesV1,
				"frames_v2", s.FramesV2,
				"checksum_fails", s.ChecksumFails,
				"unknown_messages", s.UnknownMsgs,
				"errors", s.Errors,
				"route_table_size", s.RouteTable,
				"subscriptions", s.Subscriptions,
			)
		}
	}
}
