package subscription

import (
	"testing"
	"time"

	"github.com/nemoria/mavrouter/internal/mavlink"
)

func TestSubscribeAndPublishMatches(t *testing.T) {
	r, err := New(NewMemStore(), 4, PolicyDrop, mavlink.Common)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := r.Subscribe("s1", Query{MatchSystem: true, SystemID: 1})

	r.Publish(mavlink.Frame{SystemID: 1, MessageID: 0})
	r.Publish(mavlink.Frame{SystemID: 2, MessageID: 0})

	select {
	case d := <-sub.Out:
		if d.Frame.SystemID != 1 {
			t.Fatalf("expected system 1 frame, got %+v", d.Frame)
		}
	case <-time.After(time.Second):
		t.Fatal("expected matching frame to be delivered")
	}

	select {
	case d := <-sub.Out:
		t.Fatalf("did not expect a second frame, got %+v", d.Frame)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r, _ := New(NewMemStore(), 4, PolicyDrop, mavlink.Common)
	sub := r.Subscribe("s1", Query{})
	r.Unsubscribe("s1")

	select {
	case <-sub.Closed:
	default:
		t.Fatal("expected subscriber to be closed after Unsubscribe")
	}

	r.Publish(mavlink.Frame{SystemID: 1})
	select {
	case <-sub.Out:
		t.Fatal("did not expect delivery after unsubscribe")
	default:
	}
}

func TestTargetComponentMatchUsesTargetComponentNotTargetSystem(t *testing.T) {
	r, _ := New(NewMemStore(), 4, PolicyDrop, mavlink.Common)
	sub := r.Subscribe("s1", Query{MatchTargetComponent: true, TargetComponent: 200})

	// A frame targeted at a DIFFERENT component but with target_system
	// equal to 200 must NOT match — this is the copy/paste bug regression.
	r.Publish(mavlink.Frame{HasTargeting: true, TargetSystem: 200, TargetComponent: 1})
	select {
	case d := <-sub.Out:
		t.Fatalf("must not match on target_system, got %+v", d.Frame)
	default:
	}

	r.Publish(mavlink.Frame{HasTargeting: true, TargetSystem: 1, TargetComponent: 200})
	select {
	case <-sub.Out:
	default:
		t.Fatal("expected delivery when target_component matches")
	}
}

func TestPersistedSubscriptionsSurviveRegistryRestart(t *testing.T) {
	store := NewMemStore()
	r1, _ := New(store, 4, PolicyDrop, mavlink.Common)
	r1.Subscribe("persisted", Query{MatchSystem: true, SystemID: 5})

	r2, err := New(store, 4, PolicyDrop, mavlink.Common)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r2.Count() != 1 {
		t.Fatalf("expected persisted subscription to reload, count=%d", r2.Count())
	}
}
