// Package integration encodes and decodes the remote-control device's
// native integration API: the req/resp/event envelope, driver-setup
// messages, subscription messages, and entity command/change messages.
package integration

import (
	"encoding/json"
	"fmt"
)

// Kind values of the outer envelope.
const (
	KindReq   = "req"
	KindResp  = "resp"
	KindEvent = "event"
)

// Message names, as carried in the "msg" field.
const (
	MsgDriverVersion        = "driver_version"
	MsgGetDriverMetadata    = "get_driver_metadata"
	MsgSetupDriver          = "setup_driver"
	MsgSetDriverUserData    = "set_driver_user_data"
	MsgGetAvailableEntities = "get_available_entities"
	MsgSubscribeEvents      = "subscribe_events"
	MsgUnsubscribeEvents    = "unsubscribe_events"
	MsgGetEntityStates      = "get_entity_states"
	MsgEntityCommand        = "entity_command"
	MsgEntityChange         = "entity_change"
	MsgConnect              = "connect"
	MsgDisconnect           = "disconnect"
	MsgEnterStandby         = "enter_standby"
	MsgExitStandby          = "exit_standby"
	MsgAbortDriverSetup     = "abort_driver_setup"
	MsgDeviceState          = "device_state"
)

// Resp codes used on the "resp" envelope's MsgData when an operation
// fails or succeeds without a richer payload.
const (
	CodeOK        = "OK"
	CodeNotFound  = "NOT_FOUND"
	CodeTimeout   = "TIMEOUT"
	CodeNotSupported = "NOT_SUPPORTED"
	CodeBadParameter = "BAD_PARAMETER"
	CodeHubError     = "HUB_ERROR"
	CodeNotConnected = "NOT_CONNECTED"
)

// DeviceState values carried on device_state events.
const (
	DeviceStateConnected    = "CONNECTED"
	DeviceStateConnecting   = "CONNECTING"
	DeviceStateDisconnected = "DISCONNECTED"
	DeviceStateError        = "ERROR"
)

var knownMessages = map[string]bool{
	MsgDriverVersion: true, MsgGetDriverMetadata: true, MsgSetupDriver: true,
	MsgSetDriverUserData: true, MsgGetAvailableEntities: true, MsgSubscribeEvents: true,
	MsgUnsubscribeEvents: true, MsgGetEntityStates: true, MsgEntityCommand: true,
	MsgEntityChange: true, MsgConnect: true, MsgDisconnect: true, MsgEnterStandby: true,
	MsgExitStandby: true, MsgAbortDriverSetup: true, MsgDeviceState: true,
}

// Frame is the outer envelope every integration-protocol message is
// wrapped in.
type Frame struct {
	Kind    string          `json:"kind"`
	ReqID   *uint32         `json:"req_id,omitempty"`
	Msg     string          `json:"msg"`
	MsgData json.RawMessage `json:"msg_data,omitempty"`
}

// Decode parses one WebSocket text frame and validates the envelope
// shape: a known Kind, a known Msg, and req_id present on req/resp.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedFrame, err)
	}
	switch f.Kind {
	case KindReq, KindResp, KindEvent:
	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrSchemaMismatch)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownMessage, f.Kind)
	}
	if f.Msg == "" {
		return nil, fmt.Errorf("%w: missing msg", ErrSchemaMismatch)
	}
	if !knownMessages[f.Msg] {
		return nil, fmt.Errorf("%w: msg %q", ErrUnknownMessage, f.Msg)
	}
	if (f.Kind == KindReq || f.Kind == KindResp) && f.ReqID == nil {
		return nil, fmt.Errorf("%w: %s missing req_id", ErrSchemaMismatch, f.Kind)
	}
	return &f, nil
}

// EntityCommand is the msg_data payload of an entity_command request.
type EntityCommand struct {
	EntityID string         `json:"entity_id"`
	CmdID    string         `json:"cmd_id"`
	Params   map[string]any `json:"params,omitempty"`
}

// EntityChange is the msg_data payload of an entity_change event.
type EntityChange struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RespError is the msg_data payload of a failing resp frame.
type RespError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// DeviceStateEvent is the msg_data payload of a device_state event.
type DeviceStateEvent struct {
	State string `json:"state"`
}

// SubscribeEvents is the msg_data payload of subscribe_events/
// unsubscribe_events requests.
type SubscribeEvents struct {
	EntityIDs []string `json:"entity_ids"`
}

// DriverVersion is the msg_data payload of a driver_version response.
type DriverVersion struct {
	Version string `json:"version"`
}

// DriverMetadata is the msg_data payload of a get_driver_metadata
// response.
type DriverMetadata struct {
	DriverID  string `json:"driver_id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Developer string `json:"developer"`
}

// SetupStep is the msg_data payload of a setup_driver/
// set_driver_user_data response: either the next form step the
// caller must satisfy, or a terminal outcome.
type SetupStep struct {
	Step     string   `json:"step,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Complete bool     `json:"complete,omitempty"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// SetDriverUserData is the msg_data payload of a set_driver_user_data
// request: the form values for the current step.
type SetDriverUserData struct {
	InputValues map[string]string `json:"input_values"`
}

// DecodeSetDriverUserData unmarshals a Frame's MsgData as
// SetDriverUserData.
func DecodeSetDriverUserData(data json.RawMessage) (*SetDriverUserData, error) {
	var s SetDriverUserData
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, err)
	}
	return &s, nil
}

// EncodeReq builds a request frame with the given req_id/msg/payload.
func EncodeReq(reqID uint32, msg string, payload any) ([]byte, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Kind: KindReq, ReqID: &reqID, Msg: msg, MsgData: raw})
}

// EncodeResp builds a response frame echoing reqID.
func EncodeResp(reqID uint32, msg string, payload any) ([]byte, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Kind: KindResp, ReqID: &reqID, Msg: msg, MsgData: raw})
}

// EncodeRespOK builds the common {code: "OK"} success response.
func EncodeRespOK(reqID uint32, msg string) ([]byte, error) {
	return EncodeResp(reqID, msg, RespError{Code: CodeOK})
}

// EncodeRespError builds a failing response with the given code.
func EncodeRespError(reqID uint32, msg string, code, message string) ([]byte, error) {
	return EncodeResp(reqID, msg, RespError{Code: code, Message: message})
}

// EncodeEvent builds an unsolicited event frame (entity_change,
// device_state, ...).
func EncodeEvent(msg string, payload any) ([]byte, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Kind: KindEvent, Msg: msg, MsgData: raw})
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// DecodeEntityCommand unmarshals a Frame's MsgData as an EntityCommand.
func DecodeEntityCommand(data json.RawMessage) (*EntityCommand, error) {
	var c EntityCommand
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, err)
	}
	if c.EntityID == "" || c.CmdID == "" {
		return nil, fmt.Errorf("%w: entity_command missing entity_id/cmd_id", ErrSchemaMismatch)
	}
	return &c, nil
}

// DecodeSubscribeEvents unmarshals a Frame's MsgData as SubscribeEvents.
func DecodeSubscribeEvents(data json.RawMessage) (*SubscribeEvents, error) {
	var s SubscribeEvents
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, err)
	}
	return &s, nil
}

// DecodeEntityIDs unmarshals the optional entity_ids filter carried by
// get_entity_states; empty/missing MsgData means "every entity".
func DecodeEntityIDs(data json.RawMessage) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	s, err := DecodeSubscribeEvents(data)
	if err != nil {
		return nil, err
	}
	return s.EntityIDs, nil
}

// EntityDescriptor is the wire shape of one entity in
// get_available_entities/get_entity_states responses.
type EntityDescriptor struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Name       string         `json:"name,omitempty"`
	State      string         `json:"state,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Features   []string       `json:"features,omitempty"`
}

// EntityList is the msg_data payload of a get_available_entities/
// get_entity_states response.
type EntityList struct {
	Entities []EntityDescriptor `json:"entities"`
}
