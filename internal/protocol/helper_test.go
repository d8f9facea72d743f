package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/shswrite/internal/game/role"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(MsgRoleSelect, RoleSelectPayload{Role: "blind"})

	require.NoError(t, err)
	assert.Equal(t, MsgRoleSelect, msg.Type)
	assert.JSONEq(t, `{"role":"blind"}`, string(msg.Payload))
}

func TestNewMessage_NilPayload(t *testing.T) {
	msg, err := NewMessage(MsgStartGame, nil)

	require.NoError(t, err)
	assert.Nil(t, msg.Payload)

	data, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_game"}`, string(data))
}

func TestEncodeDecode(t *testing.T) {
	original := MustNewMessage(MsgKeyPress, KeyPressPayload{Key: "ş"})

	data, err := original.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, original.Type, decoded.Type)
	assert.JSONEq(t, string(original.Payload), string(decoded.Payload))
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrEmptyType)
}

func TestParsePayload(t *testing.T) {
	msg := MustNewMessage(MsgCursorMove, CursorMovePayload{X: 1.5, Y: 20})

	p, err := ParsePayload[CursorMovePayload](msg)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, p.X, 1e-9)
	assert.InDelta(t, 20.0, p.Y, 1e-9)

	_, err = ParsePayload[CursorMovePayload](&Message{Type: MsgCursorMove, Payload: []byte(`{"x":"a"}`)})
	assert.Error(t, err)

	empty, err := ParsePayload[PingPayload](&Message{Type: MsgPing})
	require.NoError(t, err)
	assert.Zero(t, empty.Timestamp)
}

func TestParsePayload_MissingRequiredFields(t *testing.T) {
	for _, tc := range []struct {
		name  string
		parse func(*Message) error
		data  string
	}{
		{"cursor without coordinates", parseErr[CursorMovePayload], `{}`},
		{"cursor without y", parseErr[CursorMovePayload], `{"x":3}`},
		{"cursor with null x", parseErr[CursorMovePayload], `{"x":null,"y":1}`},
		{"nickname absent", parseErr[ChangeNicknamePayload], `{}`},
		{"key absent", parseErr[KeyPressPayload], `{}`},
		{"key empty", parseErr[KeyPressPayload], `{"key":""}`},
		{"no payload", parseErr[KeyPressPayload], ``},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parse(&Message{Type: MsgKeyPress, Payload: []byte(tc.data)})
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}

	p, err := ParsePayload[CursorMovePayload](&Message{Type: MsgCursorMove, Payload: []byte(`{"x":0,"y":0}`)})
	require.NoError(t, err)
	assert.Zero(t, p.X)

	n, err := ParsePayload[ChangeNicknamePayload](&Message{Type: MsgChangeNickname, Payload: []byte(`{"nickname":""}`)})
	require.NoError(t, err)
	assert.Empty(t, n.Nickname)
}

func parseErr[T any](msg *Message) error {
	_, err := ParsePayload[T](msg)
	return err
}

func TestGameStatePayload_JSON(t *testing.T) {
	msg := MustNewMessage(MsgGameState, GameStatePayload{
		PlayersInfo: map[string]PlayerInfo{
			"p1": {X: 1, Y: 2, Nickname: "Player-1", Role: role.Blind},
			"p2": {Nickname: "Player-2"},
		},
		TargetText:  "merhaba",
		TypedText:   "mer",
		ElapsedTime: 1.25,
		GameStarted: true,
	})

	assert.JSONEq(t, `{
		"players_info": {
			"p1": {"x": 1, "y": 2, "nickname": "Player-1", "role": "blind"},
			"p2": {"x": 0, "y": 0, "nickname": "Player-2", "role": null}
		},
		"target_text": "merhaba",
		"typed_text": "mer",
		"elapsed_time": 1.25,
		"game_started": true
	}`, string(msg.Payload))
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage(ErrCodeRoleForbidden)
	assert.Equal(t, MsgMessageBox, msg.Type)

	p, err := ParsePayload[MessageBoxPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, TitleWarning, p.Title)
	assert.Equal(t, ErrorMessages[ErrCodeRoleForbidden], p.Content)
	assert.Equal(t, ErrCodeRoleForbidden, p.Code)
}

func TestMessageType_IsClientMessage(t *testing.T) {
	assert.True(t, MsgKeyPress.IsClientMessage())
	assert.True(t, MsgPing.IsClientMessage())
	assert.False(t, MsgGameState.IsClientMessage())
	assert.False(t, MessageType("bogus").IsClientMessage())
}
