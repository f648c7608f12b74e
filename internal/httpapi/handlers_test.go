package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/hub"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/metrics"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/store"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var roles = []engine.Role{{Name: "tank", MinimumPerTeam: 1}, {Name: "healer", MinimumPerTeam: 1}}

type fakeLaunches struct {
	rows      []store.Launch
	err       error
	lastLimit int
}

func (f *fakeLaunches) RecentLaunches(_ context.Context, limit int) ([]store.Launch, error) {
	f.lastLimit = limit
	return f.rows, f.err
}

type fakeAdmin struct {
	denied map[string]engine.Restrictions
	err    error
}

func (f *fakeAdmin) Restrictions(_ context.Context, userID string) (engine.Restrictions, error) {
	return maps.Clone(f.denied[userID]), f.err
}

func (f *fakeAdmin) Deny(_ context.Context, userID string, aspect engine.Aspect, _ string) error {
	if f.err != nil {
		return f.err
	}
	if f.denied[userID] == nil {
		f.denied[userID] = engine.NewRestrictions()
	}
	f.denied[userID][aspect] = true
	return nil
}

func (f *fakeAdmin) Allow(_ context.Context, userID string, aspect engine.Aspect) error {
	if f.err != nil {
		return f.err
	}
	delete(f.denied[userID], aspect)
	return nil
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func newDeps(t *testing.T) Deps {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := metrics.New()
	lb := lobby.NewLobby(ctx, lobby.Options{
		Roles:       roles,
		ReadyPeriod: time.Second,
		Notifier:    hub.NewHub(ctx, zap.NewNop()),
		Metrics:     m,
		Logger:      zap.NewNop(),
	})
	return Deps{Lobby: lb, Roles: roles, Metrics: m, Logger: zap.NewNop()}
}

func newRouter(t *testing.T, launches LaunchLister) http.Handler {
	t.Helper()
	d := newDeps(t)
	d.Launches = launches
	return SetupRoutes(d)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	d := newDeps(t)
	d.DB = fakeDB{}
	assert.Equal(t, http.StatusOK, get(t, SetupRoutes(d), "/healthz").Code)

	d.DB = fakeDB{err: errors.New("connection refused")}
	assert.Equal(t, http.StatusServiceUnavailable, get(t, SetupRoutes(d), "/healthz").Code)
}

func TestSetRestriction_ReachesConnectedUser(t *testing.T) {
	d := newDeps(t)
	admin := &fakeAdmin{denied: map[string]engine.Restrictions{}}
	d.Admin = admin
	h := SetupRoutes(d)

	out := make(chan types.ServerMessage, 16)
	d.Lobby.Inbox() <- lobby.Connect{ClientID: "c1", User: types.User{ID: "A"}, Outbox: out}
	d.Lobby.Inbox() <- lobby.UpdateAvailability{UserID: "A", Roles: []string{"tank"}, Captain: true}
	ack := recvType(t, out, types.MsgAvailabilityAck)
	require.True(t, ack.Membership.Captain)

	rec := do(t, h, http.MethodPut, "/users/A/restrictions/captain", `{"reason":"left mid-draft"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"A","denied":["captain"]}`, rec.Body.String())

	ack = recvType(t, out, types.MsgAvailabilityAck)
	assert.False(t, ack.Membership.Captain)
	assert.True(t, ack.Membership.Roles["tank"])

	rec = do(t, h, http.MethodPut, "/users/A/restrictions/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ack = recvType(t, out, types.MsgAvailabilityAck)
	assert.False(t, ack.Membership.Roles["tank"])

	rec = do(t, h, http.MethodDelete, "/users/A/restrictions/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"A","denied":["captain"]}`, rec.Body.String())
}

func TestSetRestriction_Errors(t *testing.T) {
	d := newDeps(t)
	admin := &fakeAdmin{denied: map[string]engine.Restrictions{}}
	d.Admin = admin
	h := SetupRoutes(d)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/users/A/restrictions/draft", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/users/A/restrictions/start", "{nope").Code)

	admin.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodDelete, "/users/A/restrictions/start", "").Code)

	assert.Equal(t, http.StatusNotFound, do(t, newRouter(t, nil), http.MethodPut, "/users/A/restrictions/start", "").Code,
		"not mounted without a store")
}

func recvType(t *testing.T, ch <-chan types.ServerMessage, msgType string) types.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-ch:
			if m.Type == msgType {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", msgType)
			return types.ServerMessage{}
		}
	}
}

func TestStatus(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.InProgress)
	assert.Equal(t, []engine.Condition{engine.CondNotAvailable}, body.Status.Unmet)
	require.Len(t, body.Status.Deficits, 3)
	assert.Equal(t, []string{"tank", "healer"}, body.Status.Deficits[2].Roles)
	assert.Equal(t, 4, body.Status.Deficits[2].Shortfall)
}

func TestRoles(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/roles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"tank","min":1},{"name":"healer","min":1}]`, rec.Body.String())
}

func TestLaunches(t *testing.T) {
	id := uuid.New()
	f := &fakeLaunches{rows: []store.Launch{{
		ID: id,
		Players: []store.LaunchPlayer{
			{UserID: "a", Role: "tank"},
			{UserID: "a", Captain: true},
		},
	}}}
	h := newRouter(t, f)

	rec := get(t, h, "/launches?limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxLaunchLimit, f.lastLimit)

	var body []launchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, id.String(), body[0].ID)
	assert.Equal(t, []string{"a"}, body[0].Roster.Captains)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/launches?limit=zero").Code)

	f.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/launches").Code)
	assert.Equal(t, defaultLaunchLimit, f.lastLimit)
}

func TestLaunches_NotMountedWithoutStore(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newRouter(t, nil), "/launches").Code)
}

func TestMetrics(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "lobby_available_captains"))
}
