package mavlink

import (
	"bytes"
	"errors"
	"testing"
)

func heartbeatV1(seq, sys, comp uint8) Frame {
	return Frame{
		Version: 1, Sequence: seq, SystemID: sys, ComponentID: comp,
		MessageID: heartbeatSpec.ID,
		Payload:   []byte{4, 0, 0, 0, 1, 4, 3, 5, 3},
	}
}

func TestEncodeDecodeRoundTripV1(t *testing.T) {
	codec := NewCodec(Common)
	want := heartbeatV1(7, 1, 1)
	wire := codec.Encode(want)

	buf := bytes.NewBuffer(wire)
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.SystemID != want.SystemID || got.ComponentID != want.ComponentID || got.Sequence != want.Sequence {
		t.Fatalf("round trip header mismatch: got %+v want %+v", got, want)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("round trip payload mismatch: got %v want %v", got.Payload, want.Payload)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer fully consumed, %d bytes left", buf.Len())
	}
}

func TestEncodeDecodeRoundTripV2Truncated(t *testing.T) {
	codec := NewCodec(Common)
	fr := Frame{
		Version: 2, Sequence: 1, SystemID: 1, ComponentID: 1,
		MessageID: heartbeatSpec.ID,
		// trailing zero bytes should be trimmed on the wire, then restored on decode
		Payload: []byte{4, 0, 0, 0, 1, 4, 3, 0, 0},
	}
	wire := codec.Encode(fr)
	if len(wire) >= headerLenV2+len(fr.Payload)+2 {
		t.Fatalf("expected v2 payload to be truncated on the wire, got %d bytes", len(wire))
	}

	buf := bytes.NewBuffer(wire)
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Payload) != heartbeatSpec.MaxLength {
		t.Fatalf("expected restored payload length %d, got %d", heartbeatSpec.MaxLength, len(got.Payload))
	}
	if !bytes.Equal(got.Payload, fr.Payload) {
		t.Fatalf("restored payload mismatch: got %v want %v", got.Payload, fr.Payload)
	}
}

func TestDecodeResyncsPastGarbage(t *testing.T) {
	codec := NewCodec(Common)
	wire := codec.Encode(heartbeatV1(0, 2, 3))
	garbage := append([]byte{0x00, 0xAB, 0xCD, 0xEF}, wire...)

	buf := bytes.NewBuffer(garbage)
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("Decode after garbage prefix: %v", err)
	}
	if got.SystemID != 2 || got.ComponentID != 3 {
		t.Fatalf("unexpected frame after resync: %+v", got)
	}
}

func TestDecodeIncompleteFrameDoesNotConsume(t *testing.T) {
	codec := NewCodec(Common)
	wire := codec.Encode(heartbeatV1(0, 1, 1))
	buf := bytes.NewBuffer(wire[:len(wire)-2])

	_, err := codec.Decode(buf)
	if !errors.Is(err, ErrIncompleteFrame) {
		t.Fatalf("expected ErrIncompleteFrame, got %v", err)
	}
	if buf.Len() != len(wire)-2 {
		t.Fatalf("incomplete decode must not consume bytes, buf now has %d", buf.Len())
	}
}

func TestDecodeChecksumInvalidResyncsOneByte(t *testing.T) {
	codec := NewCodec(Common)
	wire := codec.Encode(heartbeatV1(0, 1, 1))
	wire[len(wire)-1] ^= 0xFF // corrupt checksum

	buf := bytes.NewBuffer(wire)
	before := buf.Len()
	_, err := codec.Decode(buf)
	if !errors.Is(err, ErrChecksumInvalid) {
		t.Fatalf("expected ErrChecksumInvalid, got %v", err)
	}
	if buf.Len() != before-1 {
		t.Fatalf("expected exactly one byte consumed on checksum failure, consumed %d", before-buf.Len())
	}
}

func TestDecodeUnknownMessageStillForwarded(t *testing.T) {
	// Build the wire bytes by hand with a realistic non-zero CRC_EXTRA (as
	// any real sender would use for a message id this dialect table doesn't
	// carry) rather than going through Codec.Encode, which would seed the
	// same crcExtra=0 the decoder uses for unknown ids and so could never
	// catch a decoder that mistakenly validates against it.
	payload := []byte{1, 2, 3}
	const msgID = 9999 // v2: 24-bit message id, does not fit in v1's 8-bit field
	header := []byte{
		byte(len(payload)), // payload length
		0,                  // incompat
		0,                  // compat
		0,                  // seq
		9, 9,               // sys, comp
		byte(msgID & 0xFF), byte(msgID >> 8), byte(msgID >> 16),
	}

	const realisticCRCExtra = 199
	crc := X25Init()
	crc = X25Accumulate(header, crc)
	crc = X25Accumulate(payload, crc)
	crc = x25Accumulate(realisticCRCExtra, crc)

	wire := []byte{magicV2}
	wire = append(wire, header...)
	wire = append(wire, payload...)
	wire = append(wire, byte(crc), byte(crc>>8))

	buf := bytes.NewBuffer(wire)
	got, err := NewCodec(Common).Decode(buf)
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	if got.MessageID != msgID || !bytes.Equal(got.Raw, wire) {
		t.Fatalf("unknown message should still be returned verbatim: %+v", got)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("unknown message payload mismatch: got %v want %v", got.Payload, payload)
	}
}

func TestDecodeDropsNonZeroIncompatibleFlags(t *testing.T) {
	// 0x02 is an arbitrary non-signing incompatible flag bit: any non-zero
	// incompatible_flags must cause the frame to be dropped, not just the
	// signing bit specifically.
	fr := Frame{Version: 2, Sequence: 1, SystemID: 1, ComponentID: 1, MessageID: heartbeatSpec.ID, Incompat: 0x02, Payload: make([]byte, 9)}
	wire := NewCodec(Common).Encode(fr)

	buf := bytes.NewBuffer(wire)
	_, err := NewCodec(Common).Decode(buf)
	if !errors.Is(err, ErrIncompatibleFlags) {
		t.Fatalf("expected ErrIncompatibleFlags, got %v", err)
	}
}

func TestDecodeNDrainsMultipleFrames(t *testing.T) {
	codec := NewCodec(Common)
	var wire []byte
	wire = append(wire, codec.Encode(heartbeatV1(0, 1, 1))...)
	wire = append(wire, codec.Encode(heartbeatV1(1, 1, 1))...)
	wire = append(wire, codec.Encode(heartbeatV1(2, 1, 1))...)

	buf := bytes.NewBuffer(wire)
	var seqs []uint8
	n := codec.DecodeN(buf, 16, func(fr Frame, err error) {
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		seqs = append(seqs, fr.Sequence)
	})
	if n != 3 {
		t.Fatalf("expected 3 frames drained, got %d", n)
	}
	if len(seqs) != 3 || seqs[0] != 0 || seqs[1] != 1 || seqs[2] != 2 {
		t.Fatalf("unexpected sequence order: %v", seqs)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer drained, %d bytes left", buf.Len())
	}
}

func TestTargetingExtractionSystemComponent(t *testing.T) {
	codec := NewCodec(Common)
	payload := make([]byte, commandLongSpec.MaxLength)
	payload[30] = 5  // target_system
	payload[31] = 9  // target_component
	fr := Frame{Version: 2, SystemID: 1, ComponentID: 1, MessageID: commandLongSpec.ID, Payload: payload}
	wire := codec.Encode(fr)

	buf := bytes.NewBuffer(wire)
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.TargetSystem != 5 || got.TargetComponent != 9 || !got.HasTargeting {
		t.Fatalf("targeting not extracted: %+v", got)
	}
}

func TestCompactBufferSkipsSmallBuffers(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 10))
	if CompactBuffer(buf) {
		t.Fatalf("expected no compaction below threshold")
	}
}
