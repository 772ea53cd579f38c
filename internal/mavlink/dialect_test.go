package mavlink

import "testing"

func TestCommonDialectCoversAllTargetingKinds(t *testing.T) {
	seen := map[TargetingKind]bool{}
	for _, spec := range []MessageSpec{
		heartbeatSpec, paramRequestReadSpec, commandLongSpec, pingSpec,
	} {
		seen[spec.Targeting] = true
	}
	for _, k := range []TargetingKind{TargetBroadcast, TargetSystem, TargetSystemComponent, TargetComponent} {
		if !seen[k] {
			t.Fatalf("no message in the representative set uses targeting kind %s", k)
		}
	}
}

func TestLookupUnknownMessage(t *testing.T) {
	if _, ok := Common.Lookup(0xFFFFFF); ok {
		t.Fatalf("expected lookup miss for an undefined message id")
	}
}

func TestLookupKnownMessage(t *testing.T) {
	spec, ok := Common.Lookup(0)
	if !ok || spec.Name != "HEARTBEAT" {
		t.Fatalf("expected HEARTBEAT at id 0, got %+v ok=%v", spec, ok)
	}
}
