package entity

import "errors"

var (
	// ErrNotSupported is returned when a remote command has no mapping
	// in a domain's translation table.
	ErrNotSupported = errors.New("command not supported")
	// ErrEntityUnknown is returned when a command targets an entity_id
	// absent from the catalog.
	ErrEntityUnknown = errors.New("entity unknown")
	// ErrBadParameter is returned when a command's parameters fail
	// validation before being mapped to hub service data.
	ErrBadParameter = errors.New("bad parameter")
)
