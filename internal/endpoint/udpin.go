package endpoint

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

const udpInSendBuf = 256

// UDPIn binds a local UDP socket and learns peer addresses from whichever
// remote senders show up on it (ground-control stations, companion
// computers). Each distinct (ip, port) it hears from becomes its own
// addressable endpoint — a UDPPeer registered with the router via
// EventPeerOpen — so the router can target one peer specifically instead of
// broadcasting to everyone sharing the socket (gomavlib models the same
// one-Channel-per-remote idea for its UDP server transport).
type UDPIn struct {
	key   string
	addr  string
	codec *mavlink.Codec

	mu    sync.Mutex
	conn  *net.UDPConn
	peers map[string]*UDPPeer
}

// NewUDPIn builds a UDPIn driver from a parsed Config (Scheme must be udpin).
func NewUDPIn(cfg Config, codec *mavlink.Codec) *UDPIn {
	return &UDPIn{
		key:   cfg.Raw,
		addr:  net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		codec: codec,
		peers: make(map[string]*UDPPeer),
	}
}

func (d *UDPIn) Key() string { return d.key }

func (d *UDPIn) Run(ctx context.Context, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := net.ListenPacket("udp", d.addr)
		if err != nil {
			events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: %v", ErrConnectFailed, err)}
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}
		uconn := conn.(*net.UDPConn)

		d.mu.Lock()
		d.conn = uconn
		d.mu.Unlock()

		events <- Event{Kind: EventOpen, Endpoint: d.key}
		d.readLoop(ctx, uconn, events)

		d.mu.Lock()
		for k, p := range d.peers {
			p.detach()
			delete(d.peers, k)
		}
		d.conn = nil
		d.mu.Unlock()
		_ = uconn.Close()

		if ctx.Err() != nil {
			return
		}
		events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: connection lost", ErrConnectFailed)}
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (d *UDPIn) readLoop(ctx context.Context, conn *net.UDPConn, events chan<- Event) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		peerKey := d.learnPeer(ctx, peer, events)

		bb := newFilledBuffer(buf[:n])
		fr, derr := d.codec.Decode(bb)
		if derr == mavlink.ErrIncompleteFrame {
			continue // a single malformed/short datagram; nothing to forward
		}
		events <- Event{Kind: EventFrame, Endpoint: peerKey, Frame: fr, Err: derr}
	}
}

// learnPeer returns the endpoint key for addr, emitting EventPeerOpen the
// first time this (ip, port) is seen so the router can register it as an
// addressable destination.
func (d *UDPIn) learnPeer(ctx context.Context, addr *net.UDPAddr, events chan<- Event) string {
	peerKey := d.key + "@" + addr.String()

	d.mu.Lock()
	_, known := d.peers[peerKey]
	var p *UDPPeer
	if !known {
		p = newUDPPeer(peerKey, addr, d)
		d.peers[peerKey] = p
	}
	d.mu.Unlock()

	if !known {
		events <- Event{Kind: EventPeerOpen, Endpoint: peerKey, Peer: p}
	}
	return peerKey
}

// writeTo sends wire-encoded fr to one specific peer over the shared socket.
func (d *UDPIn) writeTo(addr *net.UDPAddr, fr mavlink.Frame) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return ErrWriteFailed
	}
	wire := d.codec.Encode(fr)
	if _, err := conn.WriteToUDP(wire, addr); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Send on the base UDPIn driver always fails: the base key names no single
// remote, so frames reach remotes only through the UDPPeer drivers learned
// from them.
func (d *UDPIn) Send(fr mavlink.Frame) error {
	return ErrWriteFailed
}

func (d *UDPIn) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.peers {
		p.detach()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// UDPPeer is one remote (ip, port) multiplexed on a UDPIn's shared socket.
// The router addresses it exactly like any other Driver; its Send queues
// through its own AsyncTx but writes out through the parent's conn.
type UDPPeer struct {
	key    string
	addr   *net.UDPAddr
	parent *UDPIn

	mu sync.Mutex
	tx *AsyncTx
}

func newUDPPeer(key string, addr *net.UDPAddr, parent *UDPIn) *UDPPeer {
	p := &UDPPeer{key: key, addr: addr, parent: parent}
	p.tx = NewAsyncTx(context.Background(), udpInSendBuf, p.write, Hooks{})
	return p
}

func (p *UDPPeer) write(fr mavlink.Frame) error {
	return p.parent.writeTo(p.addr, fr)
}

func (p *UDPPeer) Key() string { return p.key }

// Run never runs: UDPPeer is registered directly via EventPeerOpen, not
// through Router.AddEndpoint, so it has no connect/reconnect life-cycle of
// its own — it only forwards Send calls onto its parent's socket.
func (p *UDPPeer) Run(ctx context.Context, events chan<- Event) {
	<-ctx.Done()
}

func (p *UDPPeer) Send(fr mavlink.Frame) error {
	p.mu.Lock()
	tx := p.tx
	p.mu.Unlock()
	if tx == nil {
		return ErrWriteFailed
	}
	return tx.SendFrame(fr)
}

// Close is a no-op: the parent UDPIn owns the shared socket and closes all
// peers together when its own connection drops or it is closed.
func (p *UDPPeer) Close() error { return nil }

// detach stops the peer's async writer without touching the shared socket.
func (p *UDPPeer) detach() {
	p.mu.Lock()
	tx := p.tx
	p.tx = nil
	p.mu.Unlock()
	if tx != nil {
		tx.Close()
	}
}
