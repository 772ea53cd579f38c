package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

const (
	tcpOutSendBuf    = 256
	tcpReadChunkSize = 4096
)

// TCPOut dials out to a fixed remote TCP endpoint (e.g. a companion
// computer's MAVLink server). Reads are accumulated in a rolling buffer and
// drained with Codec.DecodeN until the buffer can't yield another frame,
// mirroring the serial driver's drain discipline.
type TCPOut struct {
	key   string
	host  string
	port  int
	codec *mavlink.Codec

	mu   sync.Mutex
	conn net.Conn
	tx   *AsyncTx
}

func NewTCPOut(cfg Config, codec *mavlink.Codec) *TCPOut {
	return &TCPOut{key: cfg.Raw, host: cfg.Host, port: cfg.Port, codec: codec}
}

func (d *TCPOut) Key() string { return d.key }

func (d *TCPOut) Run(ctx context.Context, events chan<- Event) {
	addr := net.JoinHostPort(d.host, fmt.Sprint(d.port))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: %v", ErrConnectFailed, err)}
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		d.mu.Lock()
		d.conn = conn
		d.tx = NewAsyncTx(ctx, tcpOutSendBuf, d.write, Hooks{})
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

func (d *TCPOut) readLoop(ctx context.Context, conn net.Conn, events chan<- Event) {
	var acc bytes.Buffer
	chunk := make([]byte, tcpReadChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := conn.Read(chunk)
		if n > 0 {
			acc.Write(chunk[:n])
			emit := func(fr mavlink.Frame, derr error) {
				events <- Event{Kind: EventFrame, Endpoint: d.key, Frame: fr, Err: derr}
			}
			for d.codec.DecodeN(&acc, 64, emit) == 64 {
			}
			mavlink.CompactBuffer(&acc)
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
	}
}

func (d *TCPOut) write(fr mavlink.Frame) error {
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

func (d *TCPOut) Send(fr mavlink.Frame) error {
	d.mu.Lock()
	tx := d.tx
	d.mu.Unlock()
	if tx == nil {
		return ErrWriteFailed
	}
	return tx.SendFrame(fr)
}

func (d *TCPOut) Close() error {
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
