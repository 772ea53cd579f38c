package mavlink

// The specs below stand in for a dialect-XML-generated table (the generator
// itself is out of scope). CRC_EXTRA values for the messages borrowed
// directly from the published MAVLink common dialect match the published
// constants; field layouts are simplified to the bytes this router actually
// inspects (targeting fields) rather than reproducing every upstream field.

var heartbeatSpec = MessageSpec{
	ID: 0, Name: "HEARTBEAT", CRCExtra: 50,
	MinLength: 9, MaxLength: 9,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
	Fields: []FieldDef{
		{Type: "uint32_t", Name: "custom_mode"},
		{Type: "uint8_t", Name: "type"},
		{Type: "uint8_t", Name: "autopilot"},
		{Type: "uint8_t", Name: "base_mode"},
		{Type: "uint8_t", Name: "system_status"},
		{Type: "uint8_t", Name: "mavlink_version"},
	},
}

var sysStatusSpec = MessageSpec{
	ID: 1, Name: "SYS_STATUS", CRCExtra: 124,
	MinLength: 31, MaxLength: 31,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
}

var attitudeSpec = MessageSpec{
	ID: 30, Name: "ATTITUDE", CRCExtra: 39,
	MinLength: 28, MaxLength: 28,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
}

var gpsRawIntSpec = MessageSpec{
	ID: 24, Name: "GPS_RAW_INT", CRCExtra: 24,
	MinLength: 30, MaxLength: 30,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
}

var globalPositionIntSpec = MessageSpec{
	ID: 33, Name: "GLOBAL_POSITION_INT", CRCExtra: 104,
	MinLength: 28, MaxLength: 28,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
}

var paramRequestReadSpec = MessageSpec{
	ID: 20, Name: "PARAM_REQUEST_READ", CRCExtra: 214,
	MinLength: 20, MaxLength: 20,
	Targeting: TargetSystem, TargetSysAt: 2, TargetCompAt: -1,
	Fields: []FieldDef{
		{Type: "int16_t", Name: "param_index"},
		{Type: "uint8_t", Name: "target_system"},
		{Type: "uint8_t", Name: "target_component"},
		{Type: "char", Name: "param_id", ArrayLen: 16},
	},
}

var paramValueSpec = MessageSpec{
	ID: 22, Name: "PARAM_VALUE", CRCExtra: 220,
	MinLength: 25, MaxLength: 25,
	Targeting: TargetBroadcast, TargetSysAt: -1, TargetCompAt: -1,
}

var commandLongSpec = MessageSpec{
	ID: 76, Name: "COMMAND_LONG", CRCExtra: 152,
	MinLength: 33, MaxLength: 33,
	Targeting: TargetSystemComponent, TargetSysAt: 30, TargetCompAt: 31,
	Fields: []FieldDef{
		{Type: "float", Name: "param1"}, {Type: "float", Name: "param2"},
		{Type: "float", Name: "param3"}, {Type: "float", Name: "param4"},
		{Type: "float", Name: "param5"}, {Type: "float", Name: "param6"},
		{Type: "float", Name: "param7"},
		{Type: "uint16_t", Name: "command"},
		{Type: "uint8_t", Name: "target_system"},
		{Type: "uint8_t", Name: "target_component"},
		{Type: "uint8_t", Name: "confirmation"},
	},
}

var commandAckSpec = MessageSpec{
	ID: 77, Name: "COMMAND_ACK", CRCExtra: 143,
	MinLength: 3, MaxLength: 10,
	Targeting: TargetSystemComponent, TargetSysAt: 8, TargetCompAt: 9,
	Fields: []FieldDef{
		{Type: "uint16_t", Name: "command"},
		{Type: "uint8_t", Name: "result"},
		{Type: "uint8_t", Name: "progress", Extension: true},
		{Type: "int32_t", Name: "result_param2", Extension: true},
		{Type: "uint8_t", Name: "target_system", Extension: true},
		{Type: "uint8_t", Name: "target_component", Extension: true},
	},
}

var setModeSpec = MessageSpec{
	ID: 11, Name: "SET_MODE", CRCExtra: 89,
	MinLength: 6, MaxLength: 6,
	Targeting: TargetSystem, TargetSysAt: 4, TargetCompAt: -1,
	Fields: []FieldDef{
		{Type: "uint32_t", Name: "custom_mode"},
		{Type: "uint8_t", Name: "target_system"},
		{Type: "uint8_t", Name: "base_mode"},
	},
}

var missionRequestListSpec = MessageSpec{
	ID: 43, Name: "MISSION_REQUEST_LIST", CRCExtra: 132,
	MinLength: 2, MaxLength: 3,
	Targeting: TargetSystemComponent, TargetSysAt: 0, TargetCompAt: 1,
	Fields: []FieldDef{
		{Type: "uint8_t", Name: "target_system"},
		{Type: "uint8_t", Name: "target_component"},
		{Type: "uint8_t", Name: "mission_type", Extension: true},
	},
}

var missionAckSpec = MessageSpec{
	ID: 47, Name: "MISSION_ACK", CRCExtra: 153,
	MinLength: 3, MaxLength: 4,
	Targeting: TargetSystemComponent, TargetSysAt: 0, TargetCompAt: 1,
	Fields: []FieldDef{
		{Type: "uint8_t", Name: "target_system"},
		{Type: "uint8_t", Name: "target_component"},
		{Type: "uint8_t", Name: "type"},
		{Type: "uint8_t", Name: "mission_type", Extension: true},
	},
}

// pingSpec is pinned to TargetComponent deliberately (see SPEC_FULL.md §4.3)
// so all four TargetingKind values have a concrete, exercised MessageSpec.
var pingSpec = MessageSpec{
	ID: 4, Name: "PING", CRCExtra: 237,
	MinLength: 12, MaxLength: 14,
	Targeting: TargetComponent, TargetSysAt: -1, TargetCompAt: 13,
	Fields: []FieldDef{
		{Type: "uint64_t", Name: "time_usec"},
		{Type: "uint32_t", Name: "seq"},
		{Type: "uint8_t", Name: "target_system", Extension: true},
		{Type: "uint8_t", Name: "target_component", Extension: true},
	},
}

var messageIntervalSpec = MessageSpec{
	ID: 244, Name: "MESSAGE_INTERVAL", CRCExtra: 95,
	MinLength: 6, MaxLength: 8,
	Targeting: TargetSystemComponent, TargetSysAt: 6, TargetCompAt: 7,
	Fields: []FieldDef{
		{Type: "int32_t", Name: "interval_us"},
		{Type: "uint16_t", Name: "message_id"},
		{Type: "uint8_t", Name: "target_system", Extension: true},
		{Type: "uint8_t", Name: "target_component", Extension: true},
	},
}
