package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nemoria/mavrouter/internal/endpoint"
	"github.com/nemoria/mavrouter/internal/mavlink"
	"github.com/nemoria/mavrouter/internal/subscription"
)

// fakeDriver is a test double satisfying endpoint.Driver without any real
// socket: Run just blocks until ctx is done, and Send records frames.
type fakeDriver struct {
	key string

	mu  sync.Mutex
	out []mavlink.Frame
}

func newFakeDriver(key string) *fakeDriver { return &fakeDriver{key: key} }

func (f *fakeDriver) Key() string { return f.key }
func (f *fakeDriver) Run(ctx context.Context, events chan<- endpoint.Event) {
	<-ctx.Done()
}
func (f *fakeDriver) Send(fr mavlink.Frame) error {
	f.mu.Lock()
	f.out = append(f.out, fr)
	f.mu.Unlock()
	return nil
}
func (f *fakeDriver) Close() error { return nil }

func (f *fakeDriver) sent() []mavlink.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mavlink.Frame, len(f.out))
	copy(out, f.out)
	return out
}

func newTestRouter(t *testing.T) (*Router, func()) {
	t.Helper()
	subs, err := subscription.New(subscription.NewMemStore(), 8, subscription.PolicyDrop, mavlink.Common)
	if err != nil {
		t.Fatalf("subscription.New: %v", err)
	}
	r := New(mavlink.Common, mavlink.NewCodec(mavlink.Common), subs, 250, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return r, cancel
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastMessageReachesAllEndpointsExceptSource(t *testing.T) {
	r, cancel := newTestRouter(t)
	defer cancel()

	a, b := newFakeDriver("a"), newFakeDriver("b")
	ctx := context.Background()
	r.AddEndpoint(ctx, a)
	r.AddEndpoint(ctx, b)

	r.events <- endpoint.Event{Kind: endpoint.EventFrame, Endpoint: "a", Frame: mavlink.Frame{
		Version: 1, SystemID: 1, ComponentID: 1, MessageID: 0,
	}}

	waitUntil(t, func() bool { return len(b.sent()) == 1 })
	if len(a.sent()) != 0 {
		t.Fatalf("source endpoint must never receive its own frame back, got %d", len(a.sent()))
	}
}

func TestTargetedMessageRoutesToLearnedEndpointOnly(t *testing.T) {
	r, cancel := newTestRouter(t)
	defer cancel()

	gcs, drone, bystander := newFakeDriver("gcs"), newFakeDriver("drone"), newFakeDriver("bystander")
	ctx := context.Background()
	r.AddEndpoint(ctx, gcs)
	r.AddEndpoint(ctx, drone)
	r.AddEndpoint(ctx, bystander)

	// drone announces itself as system 7, component 1.
	r.events <- endpoint.Event{Kind: endpoint.EventFrame, Endpoint: "drone", Frame: mavlink.Frame{
		Version: 1, SystemID: 7, ComponentID: 1, MessageID: 0,
	}}
	waitUntil(t, func() bool { return len(gcs.sent())+len(bystander.sent()) == 2 })

	// gcs sends a COMMAND_LONG targeted at system 7, component 1.
	payload := make([]byte, commandLongMaxLen)
	payload[30], payload[31] = 7, 1
	r.events <- endpoint.Event{Kind: endpoint.EventFrame, Endpoint: "gcs", Frame: mavlink.Frame{
		Version: 2, SystemID: 255, ComponentID: 1, MessageID: 76,
		Payload: payload, HasTargeting: true, TargetSystem: 7, TargetComponent: 1,
	}}

	waitUntil(t, func() bool { return len(drone.sent()) == 1 })
	if len(bystander.sent()) != 1 {
		t.Fatalf("bystander should only have received the earlier broadcast, got %d", len(bystander.sent()))
	}
}

const commandLongMaxLen = 33

func TestTargetedMessageWithUnknownRouteFallsBackToBroadcast(t *testing.T) {
	r, cancel := newTestRouter(t)
	defer cancel()

	gcs, unrelated := newFakeDriver("gcs"), newFakeDriver("unrelated")
	ctx := context.Background()
	r.AddEndpoint(ctx, gcs)
	r.AddEndpoint(ctx, unrelated)

	payload := make([]byte, commandLongMaxLen)
	payload[30], payload[31] = 42, 1 // system 42 has never been heard from
	r.events <- endpoint.Event{Kind: endpoint.EventFrame, Endpoint: "gcs", Frame: mavlink.Frame{
		Version: 2, SystemID: 255, ComponentID: 1, MessageID: 76,
		Payload: payload, HasTargeting: true, TargetSystem: 42, TargetComponent: 1,
	}}

	waitUntil(t, func() bool { return len(unrelated.sent()) == 1 })
}

func TestPublishAssignsSequenceNumbersAndStampsOwnIdentity(t *testing.T) {
	r, cancel := newTestRouter(t)
	defer cancel()

	a := newFakeDriver("a")
	r.AddEndpoint(context.Background(), a)

	r.Publish(mavlink.Frame{Version: 1, MessageID: 0})
	r.Publish(mavlink.Frame{Version: 1, MessageID: 0})

	waitUntil(t, func() bool { return len(a.sent()) == 2 })
	seqs := a.sent()
	if seqs[0].Sequence == seqs[1].Sequence {
		t.Fatalf("expected distinct sequence numbers, got %d twice", seqs[0].Sequence)
	}
	for _, fr := range seqs {
		if fr.SystemID != 250 || fr.ComponentID != 1 {
			t.Fatalf("expected Publish to stamp the router's own identity, got sys=%d comp=%d", fr.SystemID, fr.ComponentID)
		}
	}
}
