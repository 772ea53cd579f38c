// Package subscription implements the local subscriber registry: in-process
// consumers register a Query and receive every Frame that matches it,
// fanned out with the same bounded-buffer backpressure policy the router
// uses for endpoints.
package subscription

import (
	"sync"

	"github.com/nemoria/mavrouter/internal/logging"
	"github.com/nemoria/mavrouter/internal/mavlink"
	"github.com/nemoria/mavrouter/internal/metrics"
)

// BackpressurePolicy controls what happens when a subscriber's buffer fills.
type BackpressurePolicy int

const (
	PolicyDrop BackpressurePolicy = iota
	PolicyKick
)

// Delivery is what a Subscriber receives on Out for one matching frame: the
// verbatim Frame always, plus, for a subscriber with DeliverAsFrame false,
// the dialect-decoded Message (nil when the dialect does not know the
// message id or cannot decode the payload, so such a subscriber can fall
// back to the frame). Message is always nil for DeliverAsFrame subscribers.
type Delivery struct {
	Frame   mavlink.Frame
	Message *mavlink.Message
}

// Subscriber is one (query, subscriber_handle) pair. Deliveries matching
// Query arrive on Out; Closed is signaled if the registry gives up on a
// kicked subscriber.
type Subscriber struct {
	ID     string
	Query  Query
	Out    chan Delivery
	Closed chan struct{}

	closeOnce sync.Once
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.Closed) })
}

// Registry owns the live subscriber set and the liveness/persistence
// bookkeeping. Unlike the router's route table, subscribers can be added
// and removed from arbitrary goroutines, so Registry keeps its own mutex —
// mirroring how the teacher's hub.Hub is the one piece of shared state with
// explicit locking, called into from many connection goroutines at once.
type Registry struct {
	mu      sync.RWMutex
	subs    map[string]*Subscriber
	store   Store
	policy  BackpressurePolicy
	outBuf  int
	dialect *mavlink.Dialect
}

// New creates a Registry backed by store (use NewMemStore() if no external
// persistence is configured) and reloads any subscriptions recorded there.
// dialect is used to decode frames for subscribers with DeliverAsFrame
// false; pass mavlink.Common in production.
func New(store Store, outBuf int, policy BackpressurePolicy, dialect *mavlink.Dialect) (*Registry, error) {
	r := &Registry{
		subs:    make(map[string]*Subscriber),
		store:   store,
		policy:  policy,
		outBuf:  outBuf,
		dialect: dialect,
	}
	persisted, err := store.List()
	if err != nil {
		return nil, err
	}
	// Persisted entries are reloaded as dormant subscribers (no live
	// consumer yet) so route/subscription metrics and restart semantics
	// are visible immediately; a reconnecting subscriber calls Subscribe
	// again with the same id, which simply replaces the channel.
	for id, q := range persisted {
		r.subs[id] = &Subscriber{ID: id, Query: q, Out: make(chan Delivery, outBuf), Closed: make(chan struct{})}
	}
	return r, nil
}

// Subscribe registers (or re-registers) a subscriber and persists its
// query so it survives a router restart.
func (r *Registry) Subscribe(id string, q Query) *Subscriber {
	sub := &Subscriber{ID: id, Query: q, Out: make(chan Delivery, r.outBuf), Closed: make(chan struct{})}

	r.mu.Lock()
	if old, ok := r.subs[id]; ok {
		old.Close()
	}
	r.subs[id] = sub
	r.mu.Unlock()

	if err := r.store.Save(id, q); err != nil {
		logging.L().Error("subscription_persist_failed", "id", id, "error", err)
	}
	metrics.SetSubscriptionsActive(r.Count())
	return sub
}

// Unsubscribe removes id, both from the live set and from the persistence
// store.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()
	if ok {
		sub.Close()
	}
	if err := r.store.Delete(id); err != nil {
		logging.L().Error("subscription_delete_failed", "id", id, "error", err)
	}
	metrics.SetSubscriptionsActive(r.Count())
}

// Publish fans fr out to every subscriber whose Query matches, honoring the
// configured backpressure policy for full buffers. The frame is decoded
// into a Message at most once per Publish call, not once per subscriber.
func (r *Registry) Publish(fr mavlink.Frame) {
	subs := r.Snapshot()
	if len(subs) == 0 {
		return
	}

	var msg *mavlink.Message
	var decodeAttempted bool

	for _, sub := range subs {
		if !sub.Query.Match(fr) {
			continue
		}
		if !sub.Query.DeliverAsFrame && !decodeAttempted {
			decodeAttempted = true
			if r.dialect != nil {
				if m, err := r.dialect.Decode(fr.MessageID, fr.Payload); err == nil {
					msg = &m
				}
			}
		}
		delivery := Delivery{Frame: fr}
		if !sub.Query.DeliverAsFrame {
			delivery.Message = msg
		}
		select {
		case sub.Out <- delivery:
		default:
			if r.policy == PolicyKick {
				metrics.IncSubscriptionKick()
				sub.Close()
			} else {
				metrics.IncSubscriptionDrop()
			}
		}
	}
}

// Snapshot returns a point-in-time copy of the live subscriber set.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry) Close() error {
	r.mu.Lock()
	for _, s := range r.subs {
		s.Close()
	}
	r.mu.Unlock()
	return r.store.Close()
}
