package mavlink

// MessageSpec is the parsed-dialect entry for one message id, standing in
// for what the (out-of-scope) dialect-XML code generator would emit.
type MessageSpec struct {
	ID          uint32
	Name        string
	CRCExtra    uint8
	MinLength   int // trimmed v2 wire length (trailing zero fields may be omitted)
	MaxLength   int // full wire length, v1 payload size
	Targeting   TargetingKind
	Fields      []FieldDef
	TargetSysAt int // byte offset of target_system within Payload, -1 if none
	TargetCompAt int // byte offset of target_component within Payload, -1 if none
}

// Dialect is an immutable message-id -> MessageSpec lookup table.
type Dialect struct {
	byID map[uint32]MessageSpec
}

// NewDialect builds a Dialect from a list of specs, computed once at
// startup; the returned value is never mutated afterward.
func NewDialect(specs []MessageSpec) *Dialect {
	d := &Dialect{byID: make(map[uint32]MessageSpec, len(specs))}
	for _, s := range specs {
		d.byID[s.ID] = s
	}
	return d
}

// Lookup returns the MessageSpec for id, or false if the dialect does not
// define it (the "unknown message" case the router must still forward).
func (d *Dialect) Lookup(id uint32) (MessageSpec, bool) {
	s, ok := d.byID[id]
	return s, ok
}

// Common is the built-in stand-in dialect table: a representative slice of
// the MAVLink common.xml dialect, covering every TargetingKind so the router
// and subscription matcher can be exercised against all four addressing
// modes without a full dialect-XML toolchain.
var Common = NewDialect([]MessageSpec{
	heartbeatSpec,
	sysStatusSpec,
	attitudeSpec,
	gpsRawIntSpec,
	globalPositionIntSpec,
	paramRequestReadSpec,
	paramValueSpec,
	commandLongSpec,
	commandAckSpec,
	setModeSpec,
	missionRequestListSpec,
	missionAckSpec,
	pingSpec,
	messageIntervalSpec,
})
