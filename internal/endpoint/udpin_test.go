package endpoint

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

func TestUDPInLearnsDistinctPeersAndAddressesThemIndividually(t *testing.T) {
	codec := mavlink.NewCodec(mavlink.Common)
	cfg, err := ParseConnectionString("udpin:127.0.0.1:14550")
	if err != nil {
		t.Fatalf("ParseConnectionString: %v", err)
	}
	// Connection strings only accept ports 1024-65535; bind an ephemeral
	// port instead so the test never collides with a real listener.
	cfg.Port = 0
	d := NewUDPIn(cfg, codec)

	events := make(chan Event, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, events)

	waitForOpen(t, events)
	addr := dialableAddr(t, d)

	peerA, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("DialUDP peerA: %v", err)
	}
	defer peerA.Close()
	peerB, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("DialUDP peerB: %v", err)
	}
	defer peerB.Close()

	wire := codec.Encode(mavlink.Frame{Version: 1, SystemID: 9, ComponentID: 1, MessageID: 0, Payload: make([]byte, 9)})
	if _, err := peerA.Write(wire); err != nil {
		t.Fatalf("peerA write: %v", err)
	}
	if _, err := peerB.Write(wire); err != nil {
		t.Fatalf("peerB write: %v", err)
	}

	opens := map[string]Driver{}
	deadline := time.After(time.Second)
	for len(opens) < 2 {
		select {
		case ev := <-events:
			if ev.Kind == EventPeerOpen {
				opens[ev.Endpoint] = ev.Peer
			}
		case <-deadline:
			t.Fatalf("timed out waiting for two distinct peers, got %d", len(opens))
		}
	}

	if len(opens) != 2 {
		t.Fatalf("expected 2 distinct peer keys, got %d: %v", len(opens), opens)
	}
	for key, peer := range opens {
		if peer.Key() != key {
			t.Fatalf("peer.Key() = %q, want %q", peer.Key(), key)
		}
	}

	// Each peer driver must be independently addressable: sending through
	// one must not also deliver to the other.
	keyA := d.Key() + "@" + peerA.LocalAddr().String()
	driverA, ok := opens[keyA]
	if !ok {
		t.Fatalf("no learned peer for %q among %v", keyA, opens)
	}
	reply := mavlink.Frame{Version: 1, SystemID: 1, ComponentID: 1, MessageID: 0, Payload: make([]byte, 9)}
	if err := driverA.Send(reply); err != nil {
		t.Fatalf("Send to learned peer: %v", err)
	}
	rx := make([]byte, 512)
	_ = peerA.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := peerA.Read(rx); err != nil {
		t.Fatalf("peerA did not receive the frame sent to it: %v", err)
	}
	_ = peerB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if n, err := peerB.Read(rx); err == nil {
		t.Fatalf("peerB received %d bytes sent only to peerA", n)
	}
}

func waitForOpen(t *testing.T, events chan Event) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventOpen {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for EventOpen")
		}
	}
}

func dialableAddr(t *testing.T, d *UDPIn) *net.UDPAddr {
	t.Helper()
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		t.Fatal("UDPIn has no open conn")
	}
	return conn.LocalAddr().(*net.UDPAddr)
}
