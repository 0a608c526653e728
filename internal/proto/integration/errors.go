package integration

import "errors"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrSchemaMismatch = errors.New("required field missing")
)
