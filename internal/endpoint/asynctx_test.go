package endpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

func TestAsyncTxSendsFrames(t *testing.T) {
	var mu sync.Mutex
	var got []uint8

	send := func(fr mavlink.Frame) error {
		mu.Lock()
		got = append(got, fr.Sequence)
		mu.Unlock()
		return nil
	}

	tx := NewAsyncTx(context.Background(), 8, send, Hooks{})
	defer tx.Close()

	for i := uint8(0); i < 5; i++ {
		if err := tx.SendFrame(mavlink.Frame{Sequence: i}); err != nil {
			t.Fatalf("SendFrame: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for frames, got %d/5", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAsyncTxDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	send := func(mavlink.Frame) error {
		<-block
		return nil
	}
	dropped := 0
	var mu sync.Mutex
	hooks := Hooks{OnDrop: func() error {
		mu.Lock()
		dropped++
		mu.Unlock()
		return ErrWriteFailed
	}}

	tx := NewAsyncTx(context.Background(), 1, send, hooks)
	defer func() {
		close(block)
		tx.Close()
	}()

	// First send is picked up by the worker and blocks on <-block.
	_ = tx.SendFrame(mavlink.Frame{Sequence: 0})
	time.Sleep(20 * time.Millisecond)

	// Second fills the buffer, third should be dropped.
	_ = tx.SendFrame(mavlink.Frame{Sequence: 1})
	err := tx.SendFrame(mavlink.Frame{Sequence: 2})
	if err == nil {
		t.Fatalf("expected drop error once buffer is full")
	}
}

func TestAsyncTxCloseIsIdempotent(t *testing.T) {
	tx := NewAsyncTx(context.Background(), 1, func(mavlink.Frame) error { return nil }, Hooks{})
	tx.Close()
	tx.Close() // must not panic or block

	if err := tx.SendFrame(mavlink.Frame{}); err != ErrAsyncTxClosed {
		t.Fatalf("expected ErrAsyncTxClosed after Close, got %v", err)
	}
}
