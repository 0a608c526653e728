package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := EncodeReq(3, MsgEntityCommand, EntityCommand{
		EntityID: "light.kitchen",
		CmdID:    "on",
		Params:   map[string]any{"brightness": 50},
	})
	require.NoError(t, err)

	f, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindReq, f.Kind)
	require.NotNil(t, f.ReqID)
	assert.EqualValues(t, 3, *f.ReqID)

	cmd, err := DecodeEntityCommand(f.MsgData)
	require.NoError(t, err)
	assert.Equal(t, "light.kitchen", cmd.EntityID)
	assert.Equal(t, "on", cmd.CmdID)
	assert.EqualValues(t, 50, cmd.Params["brightness"])
}

func TestEncodeRespOKAndError(t *testing.T) {
	raw, err := EncodeRespOK(5, MsgEntityCommand)
	require.NoError(t, err)
	f, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindResp, f.Kind)

	raw, err = EncodeRespError(6, MsgEntityCommand, CodeNotFound, "unknown entity")
	require.NoError(t, err)
	f, err = Decode(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 6, *f.ReqID)
}

func TestEncodeEventEntityChange(t *testing.T) {
	raw, err := EncodeEvent(MsgEntityChange, EntityChange{
		EntityID: "light.kitchen",
		State:    "ON",
		Attributes: map[string]any{
			"brightness": 50,
		},
	})
	require.NoError(t, err)

	f, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindEvent, f.Kind)
	assert.Nil(t, f.ReqID)
}

func TestDecodeMissingKind(t *testing.T) {
	_, err := Decode([]byte(`{"msg":"driver_version"}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeUnknownMsg(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"req","req_id":1,"msg":"not_a_real_message"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestDecodeReqWithoutReqID(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"req","msg":"driver_version"}`))
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestUnknownOptionalFieldIgnored(t *testing.T) {
	f, err := Decode([]byte(`{"kind":"event","msg":"device_state","extra_future_field":true}`))
	require.NoError(t, err)
	assert.Equal(t, MsgDeviceState, f.Msg)
}
