// Package endpoint implements the uniform endpoint-driver contract (connect,
// forward, on_failure) for the four transport kinds the router multiplexes:
// UDP-in, UDP-out, TCP-out and serial.
package endpoint

import (
	"context"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

// EventKind classifies an Event emitted by a driver's Run loop.
type EventKind int

const (
	// EventFrame carries a frame received from the wire, decoded or not
	// (Err is set to mavlink.ErrUnknownMessage for opaque forwards).
	EventFrame EventKind = iota
	// EventOpen marks a successful (re)connection.
	EventOpen
	// EventClosed marks the driver giving up one connection attempt and
	// entering its reconnect backoff; Err holds the failure reason.
	EventClosed
	// EventPeerOpen introduces a new addressable peer multiplexed on top of
	// an already-open driver (UDP-in's shared socket, one per remote
	// (ip, port) it has heard from — see SPEC_FULL.md §6). Peer holds a
	// Driver the router can register under Endpoint and address directly
	// with Send; it has no Run loop of its own and must not be started.
	EventPeerOpen
)

// Event is what a Driver's Run loop sends to the router's single
// coordinator goroutine. The router never talks to a driver's socket
// directly; it only observes Events and calls Send.
type Event struct {
	Kind     EventKind
	Endpoint string
	Frame    mavlink.Frame
	Err      error
	Peer     Driver
}

// Driver is the uniform contract every endpoint kind implements.
type Driver interface {
	// Key returns the stable identifier the router uses in its route table
	// (normally the original connection string — except UDP-in, where a
	// shared socket serves many remotes and Key instead identifies one
	// (ip, port) peer multiplexed on it, so the router can target each
	// independently; see UDPPeer and EventPeerOpen).
	Key() string

	// Run owns the connect/read/reconnect life-cycle until ctx is done. It
	// emits Events on the shared channel and never returns until ctx is
	// canceled (reconnect failures are handled internally with a fixed
	// 1-second backoff, not surfaced as a fatal Run error).
	Run(ctx context.Context, events chan<- Event)

	// Send forwards a frame out this endpoint asynchronously. A full send
	// buffer drops the frame rather than blocking the caller.
	Send(fr mavlink.Frame) error

	// Close releases the underlying socket/port and stops Run.
	Close() error
}

// reconnectDelay is fixed, not exponential: the teacher's backend loops
// double an interval up to a cap, but this router's reconnect contract
// requires a constant wait between attempts, with indefinite retry.
const reconnectDelay = 1 * time.Second

// sleepCtx waits for d or ctx cancellation, whichever comes first. It
// returns false when ctx was canceled, telling the caller's reconnect loop
// to give up rather than attempt another connect.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
