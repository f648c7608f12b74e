package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMessage_FalseFlagsAreExplicit(t *testing.T) {
	cases := []struct {
		name string
		msg  ServerMessage
		want string
	}{
		{
			name: "ready ack for a user who is not ready",
			msg:  ServerMessage{Type: MsgReadyAck},
			want: `{"type":"ReadyAck","inProgress":false,"ready":false}`,
		},
		{
			name: "replay with no open window",
			msg:  ServerMessage{Type: MsgReplay, Version: 3},
			want: `{"type":"Replay","version":3,"inProgress":false,"ready":false}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(b))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	b, err := json.Marshal(ErrorMessage("bad json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Error","error":"bad json","inProgress":false,"ready":false}`, string(b))
}
