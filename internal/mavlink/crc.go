package mavlink

import "strings"

// X25Init returns the seed value for the x25 (CRC-16/MCRF4XX) checksum used
// by every MAVLink frame.
func X25Init() uint16 { return 0xFFFF }

// x25Accumulate folds one byte into the running checksum. This is the
// bit-by-bit algorithm MAVLink specifies (not a lookup-table variant): each
// byte is XORed against the low byte of the checksum, self-XORed with its
// own left-shift-by-4, then folded back across the checksum's two halves.
func x25Accumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// X25Accumulate folds every byte of buf into crc, in order.
func X25Accumulate(buf []byte, crc uint16) uint16 {
	for _, b := range buf {
		crc = x25Accumulate(b, crc)
	}
	return crc
}

// FieldDef describes one field of a message in wire order — the order the
// real dialect generator emits fields on the wire, largest type first with
// ties broken by declaration order, not the order fields are declared in the
// dialect XML. ComputeCRCExtra must be fed fields in this order to match the
// published CRC_EXTRA values.
type FieldDef struct {
	Type      string // e.g. "uint8_t", "float"
	Name      string
	ArrayLen  int // 0 or 1 for scalars, >1 for arrays
	Extension bool
}

// ComputeCRCExtra derives the one-byte CRC_EXTRA seed for a message: the
// x25 checksum of the uppercased message name, a space, and then for every
// non-extension field "type name " (with a trailing array-length byte when
// the field is an array of more than one element), folded down to a single
// byte by XORing the checksum's two halves.
func ComputeCRCExtra(name string, fields []FieldDef) uint8 {
	crc := X25Init()
	crc = X25Accumulate([]byte(strings.ToUpper(name)+" "), crc)
	for _, f := range fields {
		if f.Extension {
			continue
		}
		crc = X25Accumulate([]byte(f.Type+" "+f.Name+" "), crc)
		if f.ArrayLen > 1 {
			crc = x25Accumulate(byte(f.ArrayLen), crc)
		}
	}
	return uint8((crc & 0xFF) ^ (crc >> 8))
}
