package endpoint

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

const udpOutSendBuf = 256

// UDPOut opens an ephemeral local socket and talks to one fixed remote
// peer (e.g. a specific ground-control station address). Unlike UDPIn it
// never learns additional peers; the single remote address is bidirectional.
type UDPOut struct {
	key     string
	host    string
	port    int
	codec   *mavlink.Codec

	mu   sync.Mutex
	conn *net.UDPConn
	tx   *AsyncTx
}

func NewUDPOut(cfg Config, codec *mavlink.Codec) *UDPOut {
	return &UDPOut{key: cfg.Raw, host: cfg.Host, port: cfg.Port, codec: codec}
}

func (d *UDPOut) Key() string { return d.key }

func (d *UDPOut) Run(ctx context.Context, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(d.host, fmt.Sprint(d.port)))
		if err != nil {
			events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: %v", ErrConnectFailed, err)}
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: %v", ErrConnectFailed, err)}
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		d.mu.Lock()
		d.conn = conn
		d.tx = NewAsyncTx(ctx, udpOutSendBuf, d.write, Hooks{})
		d.mu.Unlock()

		events <- Event{Kind: EventOpen, Endpoint: d.key}
		d.readLoop(ctx, conn, events)

		d.mu.Lock()
		d.tx.Close()
		d.conn = nil
		d.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: connection lost", ErrConnectFailed)}
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (d *UDPOut) readLoop(ctx context.Context, conn *net.UDPConn, events chan<- Event) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		bb := newFilledBuffer(buf[:n])
		fr, derr := d.codec.Decode(bb)
		if derr == mavlink.ErrIncompleteFrame {
			continue
		}
		events <- Event{Kind: EventFrame, Endpoint: d.key, Frame: fr, Err: derr}
	}
}

func (d *UDPOut) write(fr mavlink.Frame) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return ErrWriteFailed
	}
	if _, err := conn.Write(d.codec.Encode(fr)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (d *UDPOut) Send(fr mavlink.Frame) error {
	d.mu.Lock()
	tx := d.tx
	d.mu.Unlock()
	if tx == nil {
		return ErrWriteFailed
	}
	return tx.SendFrame(fr)
}

func (d *UDPOut) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		d.tx.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
