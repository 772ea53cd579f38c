// Package mavlink implements the MAVLink v1/v2 wire codec and dialect table
// shared by every endpoint driver and the router core.
package mavlink

// TargetingKind classifies how a message addresses its recipient(s).
type TargetingKind int

const (
	// TargetBroadcast messages have no addressing fields; they are
	// delivered to every endpoint and every matching subscriber.
	TargetBroadcast TargetingKind = iota
	// TargetSystem messages carry a target_system field only.
	TargetSystem
	// TargetSystemComponent messages carry target_system and target_component.
	TargetSystemComponent
	// TargetComponent messages carry target_component only (target_system
	// is implied by the sender's own route).
	TargetComponent
)

func (k TargetingKind) String() string {
	switch k {
	case TargetBroadcast:
		return "broadcast"
	case TargetSystem:
		return "system"
	case TargetSystemComponent:
		return "system_component"
	case TargetComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Frame is a fully decoded MAVLink frame plus its verbatim wire bytes.
//
// Raw is retained so the router and endpoints can forward an unrecognized
// message opaquely without re-encoding it, per the "unknown message forwards
// verbatim" requirement.
type Frame struct {
	Version         uint8 // 1 or 2
	Incompat        uint8 // v2 only, 0 for v1
	Compat          uint8 // v2 only, 0 for v1
	Sequence        uint8
	SystemID        uint8
	ComponentID     uint8
	MessageID       uint32
	Payload         []byte
	Checksum        uint16
	Raw             []byte
	TargetSystem    uint8
	TargetComponent uint8
	HasTargeting    bool // true once TargetSystem/TargetComponent were extracted from Payload
}

// Key identifies the (system, component) pair that originated a frame. The
// router's route table is keyed on this.
type Key struct {
	SystemID    uint8
	ComponentID uint8
}

func (f Frame) Key() Key { return Key{SystemID: f.SystemID, ComponentID: f.ComponentID} }

const (
	magicV1 = 0xFE
	magicV2 = 0xFD

	headerLenV1 = 6
	headerLenV2 = 10

	// incompatFlagSigned marks a v2 frame as carrying a 13-byte signature
	// trailer. Signing is out of scope (spec Non-goals); Decode uses this
	// flag only to consume the signature bytes along with the rest of the
	// frame, which it then drops with ErrIncompatibleFlags. Signed frames
	// are never generated.
	incompatFlagSigned = 0x01
)
