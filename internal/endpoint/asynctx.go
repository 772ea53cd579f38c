package endpoint

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

// ErrAsyncTxClosed is returned by SendFrame once the writer has been closed.
var ErrAsyncTxClosed = errors.New("endpoint: async writer closed")

// Hooks customize AsyncTx behavior without duplicating the goroutine and
// buffer plumbing in every driver.
type Hooks struct {
	OnError func(error)
	OnAfter func()
	OnDrop  func() error
}

// AsyncTx funnels frame writes through a single goroutine so a slow or
// wedged endpoint never blocks whoever is forwarding a frame to it (the
// router's single coordinator, most commonly). A full buffer drops the
// frame via OnDrop instead of blocking.
type AsyncTx struct {
	mu     sync.Mutex
	ch     chan mavlink.Frame
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	send   func(mavlink.Frame) error
	hooks  Hooks
	closed atomic.Bool
}

// NewAsyncTx constructs an AsyncTx with a buffered channel of size buf and
// starts its worker goroutine.
func NewAsyncTx(parent context.Context, buf int, send func(mavlink.Frame) error, hooks Hooks) *AsyncTx {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx{
		ch:     make(chan mavlink.Frame, buf),
		ctx:    ctx,
		cancel: cancel,
		send:   send,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx) loop() {
	defer a.wg.Done()
	for {
		select {
		case fr, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.send(fr); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter()
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// SendFrame queues fr for asynchronous transmission, or invokes OnDrop (and
// returns its error) if the buffer is full.
func (a *AsyncTx) SendFrame(fr mavlink.Frame) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- fr:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for it to exit. Idempotent.
func (a *AsyncTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
