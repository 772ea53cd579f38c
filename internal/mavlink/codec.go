package mavlink

import "bytes"

// Codec parses and serializes frames against one Dialect. It is stateless
// and safe for concurrent use; per-endpoint state lives in the *bytes.Buffer
// the caller passes in, not in the Codec itself.
type Codec struct {
	Dialect *Dialect
}

// NewCodec returns a Codec bound to d.
func NewCodec(d *Dialect) *Codec { return &Codec{Dialect: d} }

// Decode consumes exactly one frame from the front of buf, resyncing past
// any garbage bytes that precede a valid STX. It returns ErrIncompleteFrame
// when buf does not yet hold a complete frame, having consumed only the
// garbage ahead of the first STX (the buffer is left intact from that STX
// on, or empty); callers should stop draining and wait for more bytes. A checksum failure consumes
// one byte (the offending STX) and returns ErrChecksumInvalid so the caller
// can re-invoke Decode to keep resyncing. An unknown message id is returned
// as a normal Frame alongside ErrUnknownMessage: callers forward it
// opaquely rather than discarding it.
func (c *Codec) Decode(buf *bytes.Buffer) (Frame, error) {
	for {
		if buf.Len() == 0 {
			return Frame{}, ErrIncompleteFrame
		}
		b := buf.Bytes()
		if b[0] != magicV1 && b[0] != magicV2 {
			buf.Next(1)
			continue
		}

		version := uint8(1)
		headerLen := headerLenV1
		if b[0] == magicV2 {
			version = 2
			headerLen = headerLenV2
		}
		if len(b) < headerLen {
			return Frame{}, ErrIncompleteFrame
		}

		payloadLen := int(b[1])
		var incompat uint8
		if version == 2 {
			incompat = b[2]
		}
		sigLen := 0
		if version == 2 && incompat&incompatFlagSigned != 0 {
			sigLen = 13
		}
		total := headerLen + payloadLen + 2 + sigLen
		if len(b) < total {
			return Frame{}, ErrIncompleteFrame
		}

		raw := make([]byte, total)
		copy(raw, b[:total])

		if incompat != 0 {
			buf.Next(total)
			return Frame{}, ErrIncompatibleFlags
		}

		var seq, sysID, compID, compat uint8
		var msgID uint32
		if version == 1 {
			seq, sysID, compID = raw[2], raw[3], raw[4]
			msgID = uint32(raw[5])
		} else {
			compat = raw[3]
			seq, sysID, compID = raw[4], raw[5], raw[6]
			msgID = uint32(raw[7]) | uint32(raw[8])<<8 | uint32(raw[9])<<16
		}
		payload := raw[headerLen : headerLen+payloadLen]
		ckOff := headerLen + payloadLen
		checksum := uint16(raw[ckOff]) | uint16(raw[ckOff+1])<<8

		spec, known := c.Dialect.Lookup(msgID)

		// An unknown message id has no CRC_EXTRA we could possibly know, so
		// its trailer checksum is not ours to validate: the sender computed
		// it with the real (non-zero) CRC_EXTRA for that message, which we
		// don't have. Trust it and forward opaquely rather than rejecting
		// virtually all genuine unknown-message traffic as a checksum
		// mismatch.
		if !known {
			buf.Next(total)
			fr := Frame{
				Version: version, Incompat: incompat, Compat: compat,
				Sequence: seq, SystemID: sysID, ComponentID: compID,
				MessageID: msgID, Checksum: checksum, Raw: raw,
				Payload: payload,
			}
			return fr, ErrUnknownMessage
		}

		crc := X25Init()
		crc = X25Accumulate(raw[1:headerLen], crc)
		crc = X25Accumulate(payload, crc)
		crc = x25Accumulate(spec.CRCExtra, crc)

		if crc != checksum {
			buf.Next(1)
			return Frame{}, ErrChecksumInvalid
		}

		buf.Next(total)

		fr := Frame{
			Version: version, Incompat: incompat, Compat: compat,
			Sequence: seq, SystemID: sysID, ComponentID: compID,
			MessageID: msgID, Checksum: checksum, Raw: raw,
			Payload: restoreTruncation(payload, spec, known),
		}
		applyTargeting(&fr, spec)
		return fr, nil
	}
}

// DecodeN drains up to max frames from buf, invoking onFrame for each one
// decoded (err is nil, ErrUnknownMessage, ErrChecksumInvalid or
// ErrIncompatibleFlags — the error cases still call onFrame so counters can
// be updated). It stops early once
// buf no longer holds a complete frame. This is the drain loop TCP-out and
// serial endpoints run after every read; UDP endpoints decode exactly one
// frame per datagram instead.
func (c *Codec) DecodeN(buf *bytes.Buffer, max int, onFrame func(Frame, error)) int {
	n := 0
	for n < max {
		fr, err := c.Decode(buf)
		if err == ErrIncompleteFrame {
			break
		}
		onFrame(fr, err)
		n++
	}
	return n
}

// Encode serializes fr per its Version. v2 payloads are truncated by
// trimming trailing zero bytes; the decoder restores the truncation by
// zero-padding back up to the MessageSpec's MaxLength.
func (c *Codec) Encode(fr Frame) []byte {
	payload := fr.Payload
	if fr.Version == 2 {
		payload = trimTrailingZeros(payload)
	}

	spec, known := c.Dialect.Lookup(fr.MessageID)
	var crcExtra uint8
	if known {
		crcExtra = spec.CRCExtra
	}

	headerLen := headerLenV1
	if fr.Version == 2 {
		headerLen = headerLenV2
	}
	buf := make([]byte, headerLen+len(payload)+2)
	buf[1] = byte(len(payload))
	if fr.Version == 1 {
		buf[0] = magicV1
		buf[2] = fr.Sequence
		buf[3] = fr.SystemID
		buf[4] = fr.ComponentID
		buf[5] = byte(fr.MessageID)
	} else {
		buf[0] = magicV2
		buf[2] = fr.Incompat
		buf[3] = fr.Compat
		buf[4] = fr.Sequence
		buf[5] = fr.SystemID
		buf[6] = fr.ComponentID
		buf[7] = byte(fr.MessageID)
		buf[8] = byte(fr.MessageID >> 8)
		buf[9] = byte(fr.MessageID >> 16)
	}
	copy(buf[headerLen:], payload)

	crc := X25Init()
	crc = X25Accumulate(buf[1:headerLen], crc)
	crc = X25Accumulate(payload, crc)
	crc = x25Accumulate(crcExtra, crc)
	buf[headerLen+len(payload)] = byte(crc)
	buf[headerLen+len(payload)+1] = byte(crc >> 8)
	return buf
}

func restoreTruncation(payload []byte, spec MessageSpec, known bool) []byte {
	if !known || len(payload) >= spec.MaxLength {
		return payload
	}
	out := make([]byte, spec.MaxLength)
	copy(out, payload)
	return out
}

func applyTargeting(fr *Frame, spec MessageSpec) {
	if spec.Targeting == TargetBroadcast {
		return
	}
	if spec.TargetSysAt >= 0 && spec.TargetSysAt < len(fr.Payload) {
		fr.TargetSystem = fr.Payload[spec.TargetSysAt]
	}
	if spec.TargetCompAt >= 0 && spec.TargetCompAt < len(fr.Payload) {
		fr.TargetComponent = fr.Payload[spec.TargetCompAt]
	}
	fr.HasTargeting = true
}

func trimTrailingZeros(p []byte) []byte {
	n := len(p)
	for n > 0 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

// CompactBuffer reclaims a buffer's backing array once it has drained past
// a point where holding onto the larger capacity is wasteful. Mirrors the
// reclaim thresholds used for UART buffers: skip small buffers outright,
// and only compact once less than a quarter of the capacity remains
// unread, so we are not copying on every call.
func CompactBuffer(buf *bytes.Buffer) bool {
	const minCapToCompact = 1024
	if buf.Cap() < minCapToCompact {
		return false
	}
	if buf.Len()*4 > buf.Cap() {
		return false
	}
	remaining := append([]byte(nil), buf.Bytes()...)
	*buf = *bytes.NewBuffer(remaining)
	return true
}
