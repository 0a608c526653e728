package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTripsEncodedRequests(t *testing.T) {
	authBytes, err := EncodeAuth("tok123")
	require.NoError(t, err)
	f, err := Decode(authBytes)
	require.NoError(t, err)
	assert.Equal(t, TypeAuth, f.Type)
	assert.Equal(t, "tok123", f.AccessToken)

	getStatesBytes, err := EncodeGetStates(7)
	require.NoError(t, err)
	f, err = Decode(getStatesBytes)
	require.NoError(t, err)
	assert.Equal(t, TypeGetStates, f.Type)
	assert.EqualValues(t, 7, f.ID)

	callSvcBytes, err := EncodeCallService(9, "light", "turn_on", map[string]any{"brightness_pct": 50})
	require.NoError(t, err)
	f, err = Decode(callSvcBytes)
	require.NoError(t, err)
	assert.Equal(t, "light", f.Domain)
	assert.Equal(t, "turn_on", f.Service)
}

func TestDecodeResultSuccessAndError(t *testing.T) {
	success := true
	raw, _ := json.Marshal(Frame{ID: 1, Type: TypeResult, Success: &success})
	f, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, *f.Success)

	failure := false
	raw, _ = json.Marshal(Frame{ID: 2, Type: TypeResult, Success: &failure, Error: &ResultError{Code: "not_found", Message: "no such entity"}})
	f, err = Decode(raw)
	require.NoError(t, err)
	assert.False(t, *f.Success)
	assert.Equal(t, "not_found", f.Error.Code)
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := Decode([]byte(`{"type": `))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeUnknownMessage(t *testing.T) {
	_, err := Decode([]byte(`{"type": "something_else"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestDecodeSchemaMismatch(t *testing.T) {
	_, err := Decode([]byte(`{"type": "result"}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Decode([]byte(`{"type": "auth"}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = Decode([]byte(`{}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeStateChangedEvent(t *testing.T) {
	eventPayload, _ := json.Marshal(StateChangedEvent{
		EntityID: "light.kitchen",
		OldState: &State{EntityID: "light.kitchen", State: "off"},
		NewState: &State{EntityID: "light.kitchen", State: "on", Attributes: map[string]any{"brightness": 128}},
	})
	frame, _ := json.Marshal(Frame{Type: TypeEvent, EventType: EventStateChanged, Event: eventPayload})

	f, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, EventStateChanged, f.EventType)

	ev, err := DecodeStateChangedEvent(f.Event)
	require.NoError(t, err)
	assert.Equal(t, "on", ev.NewState.State)
	assert.Equal(t, "off", ev.OldState.State)
}

func TestDecodeStates(t *testing.T) {
	payload, _ := json.Marshal([]State{
		{EntityID: "light.kitchen", State: "on"},
		{EntityID: "switch.pump", State: "off"},
	})
	states, err := DecodeStates(payload)
	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, "light.kitchen", states[0].EntityID)
}

func TestUnknownOptionalFieldsAreIgnored(t *testing.T) {
	raw := []byte(`{"type":"auth_ok","future_field":"ignored"}`)
	f, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeAuthOK, f.Type)
}
