package hubclient

import "errors"

var (
	// ErrTimeout is returned to a pending request's awaiter when its
	// deadline fires before the hub replies.
	ErrTimeout = errors.New("hub request timed out")
	// ErrNotConnected is returned when a command is issued while the
	// client is not in RunningReceive.
	ErrNotConnected = errors.New("hub not connected")
	// ErrAuthFailed marks a permanent auth rejection (auth_invalid): the
	// client will not retry with the same token (spec.md §4.3/§8).
	ErrAuthFailed = errors.New("hub rejected access token")
)
