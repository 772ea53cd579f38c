package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	tarmserial "github.com/tarm/serial"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

const (
	serialSendBuf      = 256
	serialReadChunk    = 4096
	serialReadTimeout  = 200 * time.Millisecond
)

// serialPort is the minimal surface this driver needs from a UART, kept
// narrow so tests can substitute a fake without a real device.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// openSerialPort opens name via github.com/tarm/serial; overridable in tests.
var openSerialPort = func(name string, baud int, readTimeout time.Duration) (serialPort, error) {
	return tarmserial.OpenPort(&tarmserial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
}

// Serial talks MAVLink over a UART. Like TCPOut it accumulates reads in a
// rolling buffer and drains it with DecodeN until no more frames are
// available, compacting the buffer afterward.
type Serial struct {
	key   string
	dev   string
	baud  int
	codec *mavlink.Codec

	mu   sync.Mutex
	port serialPort
	tx   *AsyncTx
}

func NewSerial(cfg Config, codec *mavlink.Codec) *Serial {
	return &Serial{key: cfg.Raw, dev: cfg.Device, baud: cfg.Baud, codec: codec}
}

func (d *Serial) Key() string { return d.key }

func (d *Serial) Run(ctx context.Context, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		port, err := openSerialPort(d.dev, d.baud, serialReadTimeout)
		if err != nil {
			events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: %v", ErrConnectFailed, err)}
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		d.mu.Lock()
		d.port = port
		d.tx = NewAsyncTx(ctx, serialSendBuf, d.write, Hooks{})
		d.mu.Unlock()

		events <- Event{Kind: EventOpen, Endpoint: d.key}
		d.readLoop(ctx, port, events)

		d.mu.Lock()
		d.tx.Close()
		d.port = nil
		d.mu.Unlock()
		_ = port.Close()

		if ctx.Err() != nil {
			return
		}
		events <- Event{Kind: EventClosed, Endpoint: d.key, Err: fmt.Errorf("%w: port lost", ErrConnectFailed)}
		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func (d *Serial) readLoop(ctx context.Context, port serialPort, events chan<- Event) {
	var acc bytes.Buffer
	chunk := make([]byte, serialReadChunk)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := port.Read(chunk)
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
			// tarm/serial returns an error on its read-timeout expiry; treat
			// anything other than that as a lost port.
			if isTimeout(err) {
				continue
			}
			return
		}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func (d *Serial) write(fr mavlink.Frame) error {
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return ErrWriteFailed
	}
	if _, err := port.Write(d.codec.Encode(fr)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (d *Serial) Send(fr mavlink.Frame) error {
	d.mu.Lock()
	tx := d.tx
	d.mu.Unlock()
	if tx == nil {
		return ErrWriteFailed
	}
	return tx.SendFrame(fr)
}

func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		d.tx.Close()
	}
	if d.port != nil {
		return d.port.Close()
	}
	return nil
}
