package mavlink

import "errors"

var (
	// ErrIncompleteFrame signals the buffer does not yet hold a full frame;
	// it is not a protocol violation and callers should simply wait for
	// more bytes before calling Decode again.
	ErrIncompleteFrame = errors.New("mavlink: incomplete frame")
	// ErrChecksumInvalid means a candidate frame's x25 checksum did not
	// match its CRC_EXTRA-seeded expectation.
	ErrChecksumInvalid = errors.New("mavlink: checksum invalid")
	// ErrUnknownMessage means the dialect has no MessageSpec for the
	// frame's message id; the frame is still returned (forwarded verbatim)
	// alongside this error so the caller can count it without dropping it.
	ErrUnknownMessage = errors.New("mavlink: unknown message id")
	// ErrIncompatibleFlags means a v2 frame set a non-zero incompatible_flags
	// byte (e.g. signing). MAVLink-2 signing is out of scope, so the frame
	// is dropped: its bytes are consumed from buf but no Frame is returned.
	ErrIncompatibleFlags = errors.New("mavlink: unsupported incompatible flag")
	// ErrFailedToUnpack means a MessageSpec was found but the payload could
	// not be reconciled with its declared length (after truncation-restore).
	ErrFailedToUnpack = errors.New("mavlink: failed to unpack payload")
	// ErrNotAFrame names the "no STX byte found" case. Codec.Decode does
	// not return it: it discards the garbage and reports ErrIncompleteFrame
	// once the buffer is exhausted.
	ErrNotAFrame = errors.New("mavlink: no frame magic found")
)
