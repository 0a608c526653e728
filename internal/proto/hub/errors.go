package hub

import "errors"

// Codec-layer errors, surfaced to the hub client session so it can
// decide whether a bad frame is transient (reconnect) or something
// that should never have been sent by a conforming hub.
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrSchemaMismatch = errors.New("required field missing")
)
