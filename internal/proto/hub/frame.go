// Package hub encodes and decodes the smart-home hub's WebSocket JSON
// wire protocol: the auth handshake, request/result correlation, and
// the state_changed event stream.
package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message type tags, as sent in the frame's "type" field.
const (
	TypeAuthRequired    = "auth_required"
	TypeAuth            = "auth"
	TypeAuthOK          = "auth_ok"
	TypeAuthInvalid     = "auth_invalid"
	TypeResult          = "result"
	TypeEvent           = "event"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeSubscribeEvents = "subscribe_events"
	TypeGetStates       = "get_states"
	TypeCallService     = "call_service"
)

// EventStateChanged is the only event type the translation layer
// currently interprets; registry events are decoded but not acted on.
const EventStateChanged = "state_changed"

// ResultError is the {code, message} shape of a failed "result" frame.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is a superset struct covering every hub wire message. Only the
// fields relevant to Type are populated on decode; callers switch on
// Type and read the matching fields.
type Frame struct {
	ID          uint32          `json:"id,omitempty"`
	Type        string          `json:"type"`
	AccessToken string          `json:"access_token,omitempty"`
	Success     *bool           `json:"success,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *ResultError    `json:"error,omitempty"`
	EventType   string          `json:"event_type,omitempty"`
	Event       json.RawMessage `json:"event,omitempty"`
	Domain      string          `json:"domain,omitempty"`
	Service     string          `json:"service,omitempty"`
	ServiceData json.RawMessage `json:"service_data,omitempty"`
}

// State is a hub entity's last-known representation as carried in
// get_states results and state_changed events.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged time.Time      `json:"last_changed,omitempty"`
	LastUpdated time.Time      `json:"last_updated,omitempty"`
}

// StateChangedEvent is the decoded payload of an event_type=state_changed
// event frame.
type StateChangedEvent struct {
	EntityID string `json:"entity_id"`
	OldState *State `json:"old_state"`
	NewState *State `json:"new_state"`
}

// Decode parses a single WebSocket text frame into a Frame and validates
// that the fields required for its Type are present.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrSchemaMismatch)
	}
	switch f.Type {
	case TypeAuthRequired, TypeAuthOK, TypeAuthInvalid, TypePing, TypePong:
		// no required payload beyond type
	case TypeResult:
		if f.Success == nil {
			return nil, fmt.Errorf("%w: result missing success", ErrSchemaMismatch)
		}
	case TypeEvent:
		if f.EventType == "" || f.Event == nil {
			return nil, fmt.Errorf("%w: event missing event_type/event", ErrSchemaMismatch)
		}
	case TypeAuth:
		if f.AccessToken == "" {
			return nil, fmt.Errorf("%w: auth missing access_token", ErrSchemaMismatch)
		}
	case TypeCallService:
		if f.Domain == "" || f.Service == "" {
			return nil, fmt.Errorf("%w: call_service missing domain/service", ErrSchemaMismatch)
		}
	case TypeSubscribeEvents, TypeGetStates:
		// no further required fields
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, f.Type)
	}
	return &f, nil
}

// DecodeStates unmarshals a successful get_states result payload.
func DecodeStates(result json.RawMessage) ([]State, error) {
	var states []State
	if err := json.Unmarshal(result, &states); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, err)
	}
	return states, nil
}

// DecodeStateChangedEvent unmarshals an event frame's Event payload,
// assuming EventType == EventStateChanged.
func DecodeStateChangedEvent(event json.RawMessage) (*StateChangedEvent, error) {
	var e StateChangedEvent
	if err := json.Unmarshal(event, &e); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, err)
	}
	return &e, nil
}

// EncodeAuth builds the {type: auth, access_token} request frame.
func EncodeAuth(token string) ([]byte, error) {
	return json.Marshal(Frame{Type: TypeAuth, AccessToken: token})
}

// EncodeGetStates builds a get_states request frame with the given
// correlation id.
func EncodeGetStates(id uint32) ([]byte, error) {
	return json.Marshal(Frame{ID: id, Type: TypeGetStates})
}

// EncodeSubscribeEvents builds a subscribe_events(state_changed) request.
func EncodeSubscribeEvents(id uint32) ([]byte, error) {
	return json.Marshal(struct {
		ID        uint32 `json:"id"`
		Type      string `json:"type"`
		EventType string `json:"event_type"`
	}{ID: id, Type: TypeSubscribeEvents, EventType: EventStateChanged})
}

// EncodeCallService builds a call_service request with the given
// domain/service/data payload.
func EncodeCallService(id uint32, domain, service string, data map[string]any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Frame{
		ID:          id,
		Type:        TypeCallService,
		Domain:      domain,
		Service:     service,
		ServiceData: raw,
	})
}

// EncodePing builds a ping heartbeat request frame.
func EncodePing(id uint32) ([]byte, error) {
	return json.Marshal(Frame{ID: id, Type: TypePing})
}
