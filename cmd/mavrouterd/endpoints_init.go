package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nemoria/mavrouter/internal/endpoint"
	"github.com/nemoria/mavrouter/internal/mavlink"
	"github.com/nemoria/mavrouter/internal/router"
)

// initEndpoints parses and registers every configured connection string.
// A parse failure for one endpoint aborts startup entirely — partial
// configuration is not a state the operator should have to debug at runtime.
func initEndpoints(ctx context.Context, r *router.Router, codec *mavlink.Codec, raw []string, log *slog.Logger) error {
	for _, s := range raw {
		cfg, err := endpoint.ParseConnectionString(s)
		if err != nil {
			return fmt.Errorf("endpoint %q: %w", s, err)
		}
		d, err := endpoint.New(cfg, codec)
		if err != nil {
			return fmt.Errorf("endpoint %q: %w", s, err)
		}
		log.Info("endpoint_configured", "connection", s, "scheme", cfg.Scheme)
		r.AddEndpoint(ctx, d)
	}
	return nil
}
