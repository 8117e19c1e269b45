package a2s

import (
	"errors"
	"fmt"
)

// Error taxonomy for the A2S client. Sentinels are compared with
// errors.Is; wrapped with fmt.Errorf("...: %w", err) at the call site
// the way the teacher's packages wrap net/UDP errors.
var (
	// ErrResolve indicates hostname resolution failed for an endpoint.
	ErrResolve = errors.New("a2s: resolve failed")

	// ErrBind indicates the dispatcher could not bind its UDP socket.
	ErrBind = errors.New("a2s: bind failed")

	// ErrSocket indicates a fatal send/receive failure on the UDP socket.
	ErrSocket = errors.New("a2s: socket failed")

	// ErrUnknownSource indicates a datagram arrived from an address not
	// tracked by the dispatcher's endpoint map.
	ErrUnknownSource = errors.New("a2s: datagram from unknown source")

	// ErrBadFraming indicates the four-byte framing prefix was neither
	// -1 (single packet) nor -2 (multi-packet).
	ErrBadFraming = errors.New("a2s: bad framing prefix")

	// ErrTruncated indicates a fixed-width read ran past the end of the
	// response buffer.
	ErrTruncated = errors.New("a2s: truncated response")

	// ErrTruncatedString indicates a null-terminated string read ran off
	// the end of the buffer before a terminator was found.
	ErrTruncatedString = errors.New("a2s: truncated string")

	// ErrChecksum indicates a decompressed multi-packet payload's CRC32
	// did not match the checksum declared in fragment 0.
	ErrChecksum = errors.New("a2s: checksum mismatch")

	// ErrInvalidRequestKind indicates the caller asked the codec to build
	// a request kind outside the five defined in the protocol.
	ErrInvalidRequestKind = errors.New("a2s: invalid request kind")

	// ErrProtocolOutOfOrder indicates a PLAYER or RULES response reached
	// its stage with no challenge token stored for it, an internal
	// invariant check. A response type arriving at a stage that isn't
	// waiting for it is reported as *ProtocolError instead.
	ErrProtocolOutOfOrder = errors.New("a2s: response out of order")

	// ErrTimeout is not a failure: it marks a run that reached its
	// overall deadline before every endpoint completed. Endpoints are
	// still delivered with whatever slots were populated.
	ErrTimeout = errors.New("a2s: query timed out")

	// ErrTooManyRetries bounds the challenge handshake: if a stage keeps
	// receiving fresh challenge tokens without ever getting the
	// substantive response, the endpoint gives up rather than looping.
	ErrTooManyRetries = errors.New("a2s: too many challenge retries")
)

// ErrUnexpectedResponseType reports a response type byte the state
// machine doesn't recognize in any state, carrying the byte observed so
// callers can log or classify unfamiliar server behavior.
type ErrUnexpectedResponseType struct {
	Actual byte
}

func (e *ErrUnexpectedResponseType) Error() string {
	return fmt.Sprintf("a2s: unexpected response type 0x%02X", e.Actual)
}

// ProtocolError reports a response type byte that doesn't match what a
// specific state expected, distinct from ErrUnexpectedResponseType in
// that the byte IS a known response type, just not a valid one for the
// state the endpoint is currently in.
type ProtocolError struct {
	Expected byte
	Actual   byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("a2s: expected response type 0x%02X, got 0x%02X", e.Expected, e.Actual)
}
