package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
	}
}

func countClients(t *testing.T, h *Hub) int {
	t.Helper()
	reply := make(chan int, 1)
	h.Inbox() <- CountClients{Reply: reply}
	select {
	case n := <-reply:
		return n
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for client count")
		return 0
	}
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, zap.NewNop())
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h := newTestHub(t)
	a := make(chan types.ServerMessage, 4)
	b := make(chan types.ServerMessage, 4)
	h.Subscribe("c1", "u1", a)
	h.Subscribe("c2", "u2", b)

	h.Broadcast(types.ServerMessage{Type: types.MsgReadyCheckOpened})

	require.Equal(t, types.MsgReadyCheckOpened, recvMsg(t, a, 200*time.Millisecond).Type)
	require.Equal(t, types.MsgReadyCheckOpened, recvMsg(t, b, 200*time.Millisecond).Type)
}

func TestHub_SendToUserReachesOnlyThatUser(t *testing.T) {
	h := newTestHub(t)
	tab1 := make(chan types.ServerMessage, 4)
	tab2 := make(chan types.ServerMessage, 4)
	other := make(chan types.ServerMessage, 4)
	h.Subscribe("c1", "u1", tab1)
	h.Subscribe("c2", "u1", tab2)
	h.Subscribe("c3", "u2", other)

	h.SendToUser("u1", types.ServerMessage{Type: types.MsgReadyAck, Ready: true})

	require.True(t, recvMsg(t, tab1, 200*time.Millisecond).Ready)
	require.True(t, recvMsg(t, tab2, 200*time.Millisecond).Ready)
	recvNoMsg(t, other, 50*time.Millisecond)
}

func TestHub_SendToClient(t *testing.T) {
	h := newTestHub(t)
	tab1 := make(chan types.ServerMessage, 4)
	tab2 := make(chan types.ServerMessage, 4)
	h.Subscribe("c1", "u1", tab1)
	h.Subscribe("c2", "u1", tab2)

	h.SendToClient("c2", types.ServerMessage{Type: types.MsgReplay})
	h.SendToClient("missing", types.ServerMessage{Type: types.MsgReplay})

	require.Equal(t, types.MsgReplay, recvMsg(t, tab2, 200*time.Millisecond).Type)
	recvNoMsg(t, tab1, 50*time.Millisecond)
}

func TestHub_DropSlowClient(t *testing.T) {
	h := newTestHub(t)
	out := make(chan types.ServerMessage, 1)
	h.Subscribe("c1", "u1", out)

	h.Broadcast(types.ServerMessage{Type: types.MsgLaunchStatus, Version: 1})
	h.Broadcast(types.ServerMessage{Type: types.MsgLaunchStatus, Version: 2})

	if n := countClients(t, h); n != 0 {
		t.Fatalf("expected slow client to be dropped; clients=%d", n)
	}
	first := recvMsg(t, out, 100*time.Millisecond)
	require.Equal(t, 1, first.Version)
	_, ok := <-out
	require.False(t, ok, "outbox should be closed after drop")
}

func TestHub_UnsubscribeClosesOutboxOnce(t *testing.T) {
	h := newTestHub(t)
	out := make(chan types.ServerMessage, 1)
	h.Subscribe("c1", "u1", out)

	h.Unsubscribe("c1")
	h.Unsubscribe("c1")

	require.Equal(t, 0, countClients(t, h))
	_, ok := <-out
	require.False(t, ok)
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	h := newTestHub(t)
	out := make(chan types.ServerMessage, 1)
	h.Subscribe("c1", "u1", out)
	h.Inbox() <- ShutdownHub{}

	select {
	case _, ok := <-out:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("outbox not closed on shutdown")
	}
}
