// Package metrics exposes Prometheus counters/gauges for the router plus a
// lightweight local mirror for non-Prometheus periodic logging.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/nemoria/mavrouter/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series
var (
	FramesDecodedV1 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_decoded_v1_total",
		Help: "Total MAVLink v1 frames successfully decoded.",
	})
	FramesDecodedV2 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_decoded_v2_total",
		Help: "Total MAVLink v2 frames successfully decoded.",
	})
	ChecksumInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checksum_invalid_total",
		Help: "Total frames rejected for an x25 checksum mismatch.",
	})
	UnknownMessage = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unknown_message_total",
		Help: "Total frames whose message id has no dialect entry (still forwarded verbatim).",
	})
	FailedUnpack = promauto.NewCounter(prometheus.CounterOpts{
		Name: "failed_unpack_total",
		Help: "Total frames whose payload could not be reconciled with its MessageSpec.",
	})
	IncompatibleFlags = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incompatible_flags_total",
		Help: "Total v2 frames dropped for a non-zero incompatible_flags byte.",
	})
	FramesForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frames_forwarded_total",
		Help: "Total frames forwarded, by forwarding kind.",
	}, []string{"kind"})
	EndpointReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_reconnects_total",
		Help: "Total reconnect attempts, by transport.",
	}, []string{"transport"})
	RouteTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "route_table_size",
		Help: "Number of distinct (system, component) pairs currently routed.",
	})
	SubscriptionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "subscriptions_active",
		Help: "Number of live local subscriptions.",
	})
	SubscriptionDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_dropped_frames_total",
		Help: "Total frames dropped for a subscriber under the drop backpressure policy.",
	})
	SubscriptionKicked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_kicked_total",
		Help: "Total subscribers disconnected under the kick backpressure policy.",
	})
	SequenceWraps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sequence_wraps_total",
		Help: "Total times a locally-originated frame's sequence number wrapped mod 256.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrTCPRead      = "tcp_read"
	ErrTCPWrite     = "tcp_write"
	ErrUDPRead      = "udp_read"
	ErrUDPWrite     = "udp_write"
	ErrSerialRead   = "serial_read"
	ErrSerialWrite  = "serial_write"
	ErrSerialOver   = "serial_tx_overflow"
	ErrConnect      = "connect"
	ErrSubscription = "subscription_persist"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness probe at
// /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for periodic logging without scraping Prometheus
// in-process.
var (
	localV1        uint64
	localV2        uint64
	localChecksum  uint64
	localUnknown   uint64
	localErrors    uint64
	localRouteSize uint64
	localSubs      uint64
)

type Snapshot struct {
	FramesV1      uint64
	FramesV2      uint64
	ChecksumFails uint64
	UnknownMsgs   uint64
	Errors        uint64
	RouteTable    uint64
	Subscriptions uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesV1:      atomic.LoadUint64(&localV1),
		FramesV2:      atomic.LoadUint64(&localV2),
		ChecksumFails: atomic.LoadUint64(&localChecksum),
		UnknownMsgs:   atomic.LoadUint64(&localUnknown),
		Errors:        atomic.LoadUint64(&localErrors),
		RouteTable:    atomic.LoadUint64(&localRouteSize),
		Subscriptions: atomic.LoadUint64(&localSubs),
	}
}

func IncFramesDecoded(version uint8) {
	if version == 2 {
		FramesDecodedV2.Inc()
		atomic.AddUint64(&localV2, 1)
		return
	}
	FramesDecodedV1.Inc()
	atomic.AddUint64(&localV1, 1)
}

func IncChecksumInvalid() {
	ChecksumInvalid.Inc()
	atomic.AddUint64(&localChecksum, 1)
}

func IncUnknownMessage() {
	UnknownMessage.Inc()
	atomic.AddUint64(&localUnknown, 1)
}

func IncFailedUnpack() { FailedUnpack.Inc() }

func IncIncompatibleFlags() { IncompatibleFlags.Inc() }

func IncForwarded(kind string) { FramesForwarded.WithLabelValues(kind).Inc() }

func IncReconnect(transport string) { EndpointReconnects.WithLabelValues(transport).Inc() }

func SetRouteTableSize(n int) {
	RouteTableSize.Set(float64(n))
	atomic.StoreUint64(&localRouteSize, uint64(n))
}

func SetSubscriptionsActive(n int) {
	SubscriptionsActive.Set(float64(n))
	atomic.StoreUint64(&localSubs, uint64(n))
}

func IncSubscriptionDrop() { SubscriptionDropped.Inc() }
func IncSubscriptionKick() { SubscriptionKicked.Inc() }

func IncSequenceWrap() { SequenceWraps.Inc() }

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// label series so the first real error doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrTCPRead, ErrTCPWrite, ErrUDPRead, ErrUDPWrite,
		ErrSerialRead, ErrSerialWrite, ErrSerialOver, ErrConnect, ErrSubscription,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

func Ready() bool { return IsReady() }
