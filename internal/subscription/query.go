package subscription

import "github.com/nemoria/mavrouter/internal/mavlink"

// Query describes what a subscriber wants to receive. Every field is a
// wildcard (matches anything) unless its corresponding Match flag is set —
// an absent/zero value is explicitly NOT the same as "match only zero",
// which is why these are separate booleans rather than using zero as the
// wildcard sentinel.
type Query struct {
	SystemID    uint8
	MatchSystem bool

	ComponentID    uint8
	MatchComponent bool

	MessageID    uint32
	MatchMessage bool

	// TargetSystem restricts to frames addressed to a specific system (e.g.
	// a subscriber watching everything targeted at system 7, regardless of
	// which component). Compares against Frame.TargetSystem only.
	TargetSystem      uint8
	MatchTargetSystem bool

	// TargetComponent restricts to frames addressed to a specific
	// component (e.g. a subscriber that only wants COMMAND_LONG frames
	// targeted at component 200). This intentionally compares against
	// Frame.TargetComponent, never Frame.TargetSystem — an earlier
	// implementation conflated the two, which silently matched nothing for
	// component-scoped subscribers.
	TargetComponent      uint8
	MatchTargetComponent bool

	// DeliverAsFrame chooses what a matching Publish call puts on a
	// Subscriber's Out channel: true delivers the verbatim mavlink.Frame,
	// false delivers the dialect-decoded mavlink.Message (Frame.Raw is
	// still available via Delivery.Frame either way).
	DeliverAsFrame bool
}

// Match reports whether fr satisfies q.
func (q Query) Match(fr mavlink.Frame) bool {
	if q.MatchSystem && q.SystemID != fr.SystemID {
		return false
	}
	if q.MatchComponent && q.ComponentID != fr.ComponentID {
		return false
	}
	if q.MatchMessage && q.MessageID != fr.MessageID {
		return false
	}
	if q.MatchTargetSystem && (!fr.HasTargeting || fr.TargetSystem != q.TargetSystem) {
		return false
	}
	if q.MatchTargetComponent && (!fr.HasTargeting || fr.TargetComponent != q.TargetComponent) {
		return false
	}
	return true
}
