package endpoint

import "bytes"

// newFilledBuffer wraps a single already-read chunk (e.g. one UDP datagram)
// in a *bytes.Buffer so it can be handed to mavlink.Codec.Decode, which
// always operates on a buffer rather than an io.Reader.
func newFilledBuffer(b []byte) *bytes.Buffer {
	cp := make([]byte, len(b))
	copy(cp, b)
	return bytes.NewBuffer(cp)
}
