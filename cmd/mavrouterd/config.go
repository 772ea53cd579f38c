package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidConnectionString is returned by validate when the system id,
// component id or log format is out of range. An unparseable --endpoint
// value is reported by endpoint.ParseConnectionString in initEndpoints.
var ErrInvalidConnectionString = errors.New("mavrouterd: invalid connection string")

// ErrNoDialectSet is returned when the router is asked to start without any
// configured endpoints at all (nothing to route between).
var ErrNoDialectSet = errors.New("mavrouterd: no endpoints configured")

// appConfig is the daemon's runtime configuration, built from flags with
// environment-variable overrides applied afterward — same precedence the
// teacher's cmd/can-server/config.go uses.
type appConfig struct {
	endpoints []string // raw connection strings, e.g. "udpin:0.0.0.0:14550"

	systemID    int
	componentID int

	metricsAddr string
	logFormat   string
	logLevel    string

	natsURL string // empty means use the in-process MemStore
}

// endpointList implements flag.Value so --endpoint can repeat.
type endpointList struct{ values *[]string }

func (e endpointList) String() string {
	if e.values == nil {
		return ""
	}
	return strings.Join(*e.values, ",")
}

func (e endpointList) Set(v string) error {
	*e.values = append(*e.values, v)
	return nil
}

// parseFlags builds an appConfig from argv, then applyEnvOverrides from the
// process environment, then validates the result.
func parseFlags(argv []string) (appConfig, error) {
	fs := flag.NewFlagSet("mavrouterd", flag.ContinueOnError)

	var cfg appConfig
	fs.Var(endpointList{&cfg.endpoints}, "endpoint", "connection string (repeatable): udpin:HOST:PORT, udpout:HOST:PORT, tcpout:HOST:PORT, serial:DEVICE[:BAUD]")
	fs.IntVar(&cfg.systemID, "system-id", 250, "system id this daemon uses for locally-originated frames")
	fs.IntVar(&cfg.componentID, "component-id", 1, "component id this daemon uses for locally-originated frames")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", ":9110", "address to serve /metrics and /ready on (empty disables)")
	fs.StringVar(&cfg.logFormat, "log-format", "text", "log format: text or json")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "NATS server URL for subscription persistence (empty uses an in-process store)")

	if err := fs.Parse(argv); err != nil {
		return appConfig{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets MAVROUTERD_* environment variables override flag
// values, whether set on the command line or defaulted; MAVROUTERD_ENDPOINTS
// is appended to the --endpoint list. Mirrors the teacher's CANSRV_*
// precedence in cmd/can-server.
func applyEnvOverrides(cfg *appConfig) {
	if v := os.Getenv("MAVROUTERD_ENDPOINTS"); v != "" {
		cfg.endpoints = append(cfg.endpoints, strings.Split(v, ",")...)
	}
	if v := os.Getenv("MAVROUTERD_SYSTEM_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.systemID = n
		}
	}
	if v := os.Getenv("MAVROUTERD_COMPONENT_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.componentID = n
		}
	}
	if v := os.Getenv("MAVROUTERD_METRICS_ADDR"); v != "" {
		cfg.metricsAddr = v
	}
	if v := os.Getenv("MAVROUTERD_LOG_FORMAT"); v != "" {
		cfg.logFormat = v
	}
	if v := os.Getenv("MAVROUTERD_LOG_LEVEL"); v != "" {
		cfg.logLevel = v
	}
	if v := os.Getenv("MAVROUTERD_NATS_URL"); v != "" {
		cfg.natsURL = v
	}
}

func (c appConfig) validate() error {
	if len(c.endpoints) == 0 {
		return ErrNoDialectSet
	}
	if c.systemID < 0 || c.systemID > 255 {
		return fmt.Errorf("%w: system-id %d out of range", ErrInvalidConnectionString, c.systemID)
	}
	if c.componentID < 0 || c.componentID > 255 {
		return fmt.Errorf("%w: component-id %d out of range", ErrInvalidConnectionString, c.componentID)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log-format %q", ErrInvalidConnectionString, c.logFormat)
	}
	return nil
}
