// Package router implements the single-coordinator RouterState: one
// goroutine owns the route table, the endpoint registry and the outbound
// sequence counter, and is the only goroutine that ever mutates them — so
// none of them need a lock of their own. Endpoint drivers and local
// publishers talk to it only through the events and commands channels.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nemoria/mavrouter/internal/endpoint"
	"github.com/nemoria/mavrouter/internal/logging"
	"github.com/nemoria/mavrouter/internal/mavlink"
	"github.com/nemoria/mavrouter/internal/metrics"
	"github.com/nemoria/mavrouter/internal/subscription"
)

// loopBounceWindow bounds how long an (endpoint, sys, comp, message, crc)
// tuple is remembered to suppress re-broadcasting an unknown message back
// onto an endpoint it was just forwarded to — see SPEC_FULL.md §4.4.
const loopBounceWindow = 1 * time.Second

type bounceKey struct {
	endpoint string
	sys      uint8
	comp     uint8
	msgID    uint32
	checksum uint16
}

// Router is the runtime core: it owns RouterState (route table + endpoint
// registry + sequence counter) exclusively from Run's goroutine.
type Router struct {
	dialect *mavlink.Dialect
	codec   *mavlink.Codec
	subs    *subscription.Registry
	log     *slog.Logger

	systemID    uint8 // this router's own identity, stamped on locally-published frames
	componentID uint8

	events chan endpoint.Event
	cmds   chan command

	drivers map[string]endpoint.Driver
	routes  *routeTable
	bounce  map[bounceKey]time.Time

	seq uint32 // outbound sequence counter for locally-published frames; advanced only by Run's goroutine

	driverWG sync.WaitGroup
}

// New constructs a Router identifying itself as (systemID, componentID) to
// the rest of the MAVLink network. Call AddEndpoint for every configured
// connection string before Run.
func New(dialect *mavlink.Dialect, codec *mavlink.Codec, subs *subscription.Registry, systemID, componentID uint8) *Router {
	return &Router{
		dialect:     dialect,
		codec:       codec,
		subs:        subs,
		log:         logging.L(),
		systemID:    systemID,
		componentID: componentID,
		events:      make(chan endpoint.Event, 256),
		cmds:        make(chan command, 64),
		drivers:     make(map[string]endpoint.Driver),
		routes:      newRouteTable(),
		bounce:      make(map[bounceKey]time.Time),
	}
}

// AddEndpoint registers d and starts its Run loop, which will begin
// emitting Events onto the router's shared channel.
func (r *Router) AddEndpoint(ctx context.Context, d endpoint.Driver) {
	r.drivers[d.Key()] = d
	r.driverWG.Add(1)
	go func() {
		defer r.driverWG.Done()
		d.Run(ctx, r.events)
	}()
}

// Publish injects a locally-originated frame into the router, stamping the
// router's own (system_id, component_id) as the source. The coordinator
// assigns the next outbound sequence number (mod 256) when it handles the
// frame. Callers only need to set MessageID, Payload and Version.
func (r *Router) Publish(fr mavlink.Frame) {
	fr.SystemID = r.systemID
	fr.ComponentID = r.componentID
	r.cmds <- command{kind: cmdPublish, frame: fr}
}

// Run is the single coordinator loop. It blocks until ctx is canceled, then
// closes every driver and returns.
func (r *Router) Run(ctx context.Context) error {
	defer func() {
		for _, d := range r.drivers {
			_ = d.Close()
		}
		r.driverWG.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.handleEvent(ev)
		case cmd := <-r.cmds:
			r.handleCommand(cmd)
		}
	}
}

func (r *Router) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdPublish:
		fr := cmd.frame
		r.seq++
		if r.seq%256 == 0 {
			metrics.IncSequenceWrap()
		}
		fr.Sequence = uint8(r.seq)
		r.forwardBroadcast("", fr, false)
		r.subs.Publish(fr)
	}
}

func (r *Router) handleEvent(ev endpoint.Event) {
	switch ev.Kind {
	case endpoint.EventOpen:
		r.log.Info("endpoint_connected", "endpoint", ev.Endpoint)
	case endpoint.EventClosed:
		metrics.IncReconnect(strings.SplitN(ev.Endpoint, ":", 2)[0])
		r.log.Warn("endpoint_disconnected", "endpoint", ev.Endpoint, "error", ev.Err)
		r.forgetPeersOf(ev.Endpoint)
	case endpoint.EventPeerOpen:
		r.drivers[ev.Endpoint] = ev.Peer
		r.log.Info("peer_learned", "endpoint", ev.Endpoint)
	case endpoint.EventFrame:
		r.routeFrame(ev.Endpoint, ev.Frame, ev.Err)
	}
}

// forgetPeersOf drops every peer endpoint registered under base+"@..." (see
// endpoint.EventPeerOpen) when base itself reconnects, since a fresh socket
// means the old UDPPeer handles no longer have anywhere to write.
func (r *Router) forgetPeersOf(base string) {
	prefix := base + "@"
	for key := range r.drivers {
		if strings.HasPrefix(key, prefix) {
			delete(r.drivers, key)
		}
	}
}

func (r *Router) routeFrame(source string, fr mavlink.Frame, derr error) {
	if errors.Is(derr, mavlink.ErrChecksumInvalid) {
		metrics.IncChecksumInvalid()
		return
	}
	if errors.Is(derr, mavlink.ErrIncompatibleFlags) {
		metrics.IncIncompatibleFlags()
		return
	}

	r.routes.learn(fr.SystemID, fr.ComponentID, source, time.Now())
	metrics.SetRouteTableSize(r.routes.size())
	metrics.IncFramesDecoded(fr.Version)

	if errors.Is(derr, mavlink.ErrUnknownMessage) {
		metrics.IncUnknownMessage()
		r.forwardBroadcast(source, fr, true)
		r.subs.Publish(fr)
		return
	}

	spec, known := r.dialect.Lookup(fr.MessageID)
	if !known {
		// Should not happen: derr would have been ErrUnknownMessage above.
		r.forwardBroadcast(source, fr, true)
		r.subs.Publish(fr)
		return
	}

	switch spec.Targeting {
	case mavlink.TargetBroadcast:
		r.forwardBroadcast(source, fr, false)
	case mavlink.TargetSystem:
		r.forwardToSystem(source, fr)
	case mavlink.TargetSystemComponent:
		r.forwardToSystemComponent(source, fr)
	case mavlink.TargetComponent:
		r.forwardToComponent(source, fr)
	}
	r.subs.Publish(fr)
}

func (r *Router) forwardToSystem(source string, fr mavlink.Frame) {
	dest, ok := r.routes.lookupSystem(fr.TargetSystem)
	if !ok {
		r.forwardBroadcast(source, fr, false)
		return
	}
	r.forwardTo(source, dest, fr)
}

func (r *Router) forwardToSystemComponent(source string, fr mavlink.Frame) {
	dest, ok := r.routes.lookupSystemComponent(fr.TargetSystem, fr.TargetComponent)
	if !ok {
		r.forwardBroadcast(source, fr, false)
		return
	}
	r.forwardTo(source, dest, fr)
}

func (r *Router) forwardToComponent(source string, fr mavlink.Frame) {
	dest, ok := r.routes.lookupComponent(fr.TargetComponent)
	if !ok {
		r.forwardBroadcast(source, fr, false)
		return
	}
	r.forwardTo(source, dest, fr)
}

func (r *Router) forwardTo(source, dest string, fr mavlink.Frame) {
	if dest == source {
		return // never loop a frame back onto the endpoint it came from
	}
	d, ok := r.drivers[dest]
	if !ok {
		return
	}
	if err := d.Send(fr); err != nil {
		r.log.Debug("forward_failed", "endpoint", dest, "error", err)
	}
	metrics.IncForwarded("targeted")
}

// forwardBroadcast sends fr to every endpoint except source. When
// guardLoop is set (only used for the unknown-message path), a frame that
// was forwarded to a given destination within loopBounceWindow is skipped
// instead of being sent again.
func (r *Router) forwardBroadcast(source string, fr mavlink.Frame, guardLoop bool) {
	now := time.Now()
	for key, d := range r.drivers {
		if key == source {
			continue
		}
		if guardLoop {
			bk := bounceKey{endpoint: key, sys: fr.SystemID, comp: fr.ComponentID, msgID: fr.MessageID, checksum: fr.Checksum}
			if last, ok := r.bounce[bk]; ok && now.Sub(last) < loopBounceWindow {
				continue
			}
			r.bounce[bk] = now
		}
		if err := d.Send(fr); err != nil {
			r.log.Debug("forward_failed", "endpoint", key, "error", err)
		}
	}
	metrics.IncForwarded("broadcast")
}
