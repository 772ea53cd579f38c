package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Message is the decoded, typed representation of a frame's payload — one
// variant per message id, keyed by field name rather than a generated
// per-message Go struct (the dialect-XML code generator that would emit
// those structs is out of scope; see SPEC_FULL.md §4.2). Dialect.Decode and
// Dialect.Encode pack/unpack it against a MessageSpec's Fields.
type Message struct {
	ID     uint32
	Name   string
	Fields map[string]any
}

func fieldElemSize(t string) int {
	switch t {
	case "uint8_t", "int8_t", "char":
		return 1
	case "uint16_t", "int16_t":
		return 2
	case "uint32_t", "int32_t", "float":
		return 4
	case "uint64_t", "int64_t", "double":
		return 8
	default:
		return 1
	}
}

func arrayLen(n int) int {
	if n > 1 {
		return n
	}
	return 1
}

// Decode unpacks payload — already zero-padded to spec.MaxLength for a
// truncated v2 frame by the codec's restoreTruncation — into a Message, per
// the MessageSpec's Fields (stored in wire order). Trailing extension
// fields absent from a v1 or truncated payload are simply left unset rather
// than causing a decode failure.
func (d *Dialect) Decode(messageID uint32, payload []byte) (Message, error) {
	spec, ok := d.Lookup(messageID)
	if !ok {
		return Message{}, ErrUnknownMessage
	}
	msg := Message{ID: spec.ID, Name: spec.Name, Fields: make(map[string]any, len(spec.Fields))}
	off := 0
	for _, f := range spec.Fields {
		size := fieldElemSize(f.Type) * arrayLen(f.ArrayLen)
		if off+size > len(payload) {
			if f.Extension {
				continue
			}
			return Message{}, fmt.Errorf("%w: %s.%s needs %d bytes at offset %d, have %d",
				ErrFailedToUnpack, spec.Name, f.Name, size, off, len(payload))
		}
		msg.Fields[f.Name] = decodeField(f, payload[off:off+size])
		off += size
	}
	return msg, nil
}

// Encode packs msg back into a wire-order payload sized to its
// MessageSpec's MaxLength. The codec trims trailing zero bytes for v2
// frames itself (Codec.Encode), so callers don't need to.
func (d *Dialect) Encode(msg Message) ([]byte, error) {
	spec, ok := d.Lookup(msg.ID)
	if !ok {
		return nil, ErrUnknownMessage
	}
	out := make([]byte, spec.MaxLength)
	off := 0
	for _, f := range spec.Fields {
		size := fieldElemSize(f.Type) * arrayLen(f.ArrayLen)
		if off+size > len(out) {
			break
		}
		if v, present := msg.Fields[f.Name]; present {
			encodeField(f, v, out[off:off+size])
		}
		off += size
	}
	return out, nil
}

func decodeField(f FieldDef, raw []byte) any {
	if f.Type == "char" && f.ArrayLen > 1 {
		n := len(raw)
		for n > 0 && raw[n-1] == 0 {
			n--
		}
		return string(raw[:n])
	}
	if f.ArrayLen > 1 {
		elemSize := fieldElemSize(f.Type)
		out := make([]uint64, f.ArrayLen)
		for i := 0; i < f.ArrayLen; i++ {
			out[i] = decodeUint(raw[i*elemSize : (i+1)*elemSize])
		}
		return out
	}
	return decodeScalar(f.Type, raw)
}

func decodeUint(raw []byte) uint64 {
	switch len(raw) {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(raw))
	case 4:
		return uint64(binary.LittleEndian.Uint32(raw))
	case 8:
		return binary.LittleEndian.Uint64(raw)
	default:
		return 0
	}
}

func decodeScalar(t string, raw []byte) any {
	switch t {
	case "float":
		return math.Float32frombits(binary.LittleEndian.Uint32(raw))
	case "double":
		return math.Float64frombits(binary.LittleEndian.Uint64(raw))
	case "int8_t":
		return int8(raw[0])
	case "int16_t":
		return int16(binary.LittleEndian.Uint16(raw))
	case "int32_t":
		return int32(binary.LittleEndian.Uint32(raw))
	case "int64_t":
		return int64(binary.LittleEndian.Uint64(raw))
	default:
		return decodeUint(raw)
	}
}

func encodeField(f FieldDef, v any, dst []byte) {
	if f.Type == "char" && f.ArrayLen > 1 {
		if s, ok := v.(string); ok {
			copy(dst, s)
		}
		return
	}
	switch x := v.(type) {
	case uint64:
		putUint(dst, x)
	case uint32:
		putUint(dst, uint64(x))
	case uint16:
		putUint(dst, uint64(x))
	case uint8:
		putUint(dst, uint64(x))
	case int:
		putUint(dst, uint64(x))
	case int64:
		putUint(dst, uint64(x))
	case int32:
		putUint(dst, uint64(uint32(x)))
	case int16:
		putUint(dst, uint64(uint16(x)))
	case int8:
		dst[0] = byte(x)
	case float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(x))
	}
}

func putUint(dst []byte, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(dst, v)
	}
}
