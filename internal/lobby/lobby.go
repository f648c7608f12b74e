package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/metrics"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("lobby stopped")

type Msg interface{ isLobbyMsg() }

// Connect registers one observer connection. Restrictions are the user's
// capability denials as known at connect time.
type Connect struct {
	ClientID     string
	User         types.User
	Restrictions engine.Restrictions
	Outbox       chan types.ServerMessage
}

func (Connect) isLobbyMsg() {}

type Disconnect struct{ ClientID string }

func (Disconnect) isLobbyMsg() {}

type UpdateAvailability struct {
	UserID  string
	Roles   []string
	Captain bool
}

func (UpdateAvailability) isLobbyMsg() {}

type UpdateReady struct {
	UserID string
	Ready  bool
}

func (UpdateReady) isLobbyMsg() {}

// RestrictionsChanged replaces a connected user's capability denials and
// re-applies their current declaration under the new denials.
type RestrictionsChanged struct {
	UserID       string
	Restrictions engine.Restrictions
}

func (RestrictionsChanged) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type readyCheckExpired struct{ gen int }

func (readyCheckExpired) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	NumUsers   int
	ReadyCount int
	InProgress bool
	Status     types.Status
}

// Notifier distributes server messages to observers.
type Notifier interface {
	Subscribe(clientID, userID string, outbox chan types.ServerMessage)
	Unsubscribe(clientID string)
	Broadcast(msg types.ServerMessage)
	SendToUser(userID string, msg types.ServerMessage)
	SendToClient(clientID string, msg types.ServerMessage)
}

// RosterSink receives every launched roster exactly once.
type RosterSink interface {
	Launch(ctx context.Context, roster engine.Roster) error
}

type Options struct {
	Roles       []engine.Role
	ReadyPeriod time.Duration
	Notifier    Notifier
	Sink        RosterSink
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

type member struct {
	user         types.User
	restrictions engine.Restrictions
	conns        int
}

// Lobby runs the launch state machine. Every message is handled to completion
// on the lobby goroutine; the ready-check timer only enqueues a message.
type Lobby struct {
	inbox       chan Msg
	state       engine.State
	version     int
	status      types.Status
	members     map[string]*member
	clients     map[string]string // clientID -> userID
	notifier    Notifier
	sink        RosterSink
	readyPeriod time.Duration
	timer       *time.Timer
	timerGen    int
	handoffs    chan engine.Roster
	handedOff   chan struct{}
	metrics     *metrics.Metrics
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

const (
	handOffTimeout = 5 * time.Second
	handOffBacklog = 16
)

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	sink := opts.Sink
	if sink == nil {
		sink = LogSink{Logger: logger}
	}

	l := &Lobby{
		inbox:       make(chan Msg, 64), // Small buffer
		state:       engine.NewState(opts.Roles),
		members:     make(map[string]*member),
		clients:     make(map[string]string),
		notifier:    opts.Notifier,
		sink:        sink,
		readyPeriod: opts.ReadyPeriod,
		handoffs:    make(chan engine.Roster, handOffBacklog),
		handedOff:   make(chan struct{}),
		metrics:     m,
		logger:      logger.With(zap.String("component", "lobby")),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go l.handOffLoop()
	go l.loop()
	return l
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send enqueues m unless the lobby has stopped.
func (l *Lobby) Send(m Msg) bool {
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Done is closed once the lobby goroutine has exited and every launched
// roster has been handed off.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// View asks the lobby goroutine for its current state.
func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !l.Send(GetState{Reply: reply}) {
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		return View{}, ErrStopped
	}
}

func (l *Lobby) loop() {
	defer func() {
		close(l.handoffs)
		<-l.handedOff
		close(l.done)
	}()

	// Conditions may already hold at startup.
	l.apply(engine.Command{Type: engine.CmdAttemptLaunch})

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Connect:
				l.connect(msg)

			case Disconnect:
				l.disconnect(msg.ClientID)

			case UpdateAvailability:
				mem, ok := l.members[msg.UserID]
				if !ok {
					l.logger.Debug("availability from unconnected user", zap.String("user_id", msg.UserID))
					break
				}
				l.apply(engine.Command{
					Type:         engine.CmdUpdateAvailability,
					UserID:       msg.UserID,
					Roles:        msg.Roles,
					Captain:      msg.Captain,
					Restrictions: mem.restrictions,
				})

			case UpdateReady:
				if _, ok := l.members[msg.UserID]; !ok {
					l.logger.Debug("readiness from unconnected user", zap.String("user_id", msg.UserID))
					break
				}
				l.apply(engine.Command{Type: engine.CmdUpdateReady, UserID: msg.UserID, Ready: msg.Ready})

			case RestrictionsChanged:
				l.restrict(msg)

			case readyCheckExpired:
				if msg.gen != l.timerGen {
					break
				}
				l.timer = nil
				l.apply(engine.Command{Type: engine.CmdResolveReadyCheck})

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					NumUsers:   len(l.members),
					ReadyCount: l.state.Ready.Len(),
					InProgress: l.state.InProgress,
					Status:     l.status,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) connect(msg Connect) {
	id := msg.User.ID
	if msg.User.Alias == "" {
		msg.User.Alias = id
	}

	mem, ok := l.members[id]
	if !ok {
		mem = &member{}
		l.members[id] = mem
	}
	mem.user = msg.User
	mem.restrictions = msg.Restrictions
	mem.conns++
	l.clients[msg.ClientID] = id

	l.notifier.Subscribe(msg.ClientID, id, msg.Outbox)

	status := l.status
	membership := l.state.Availability.Membership(id)
	l.notifier.SendToClient(msg.ClientID, types.ServerMessage{
		Type:       types.MsgReplay,
		Version:    l.version,
		Status:     &status,
		Membership: &membership,
		InProgress: l.state.InProgress,
		Ready:      l.state.Ready.Has(id),
	})

	l.logger.Info("client connected", zap.String("client_id", msg.ClientID), zap.String("user_id", id))
	l.observe()
}

func (l *Lobby) disconnect(clientID string) {
	id, ok := l.clients[clientID]
	if !ok {
		return
	}
	delete(l.clients, clientID)
	l.notifier.Unsubscribe(clientID)
	l.logger.Info("client disconnected", zap.String("client_id", clientID), zap.String("user_id", id))

	mem := l.members[id]
	mem.conns--
	if mem.conns > 0 {
		return
	}

	// Last connection gone: the user is no longer available.
	delete(l.members, id)
	l.apply(engine.Command{Type: engine.CmdClearUser, UserID: id})
}

func (l *Lobby) restrict(msg RestrictionsChanged) {
	mem, ok := l.members[msg.UserID]
	if !ok {
		// Looked up again on the next connect.
		return
	}
	mem.restrictions = msg.Restrictions
	l.logger.Info("restrictions changed", zap.String("user_id", msg.UserID), zap.Any("restrictions", msg.Restrictions))

	current := l.state.Availability.Membership(msg.UserID)
	var roles []string
	for _, role := range l.state.Roles {
		if current.Roles[role.Name] {
			roles = append(roles, role.Name)
		}
	}
	l.apply(engine.Command{
		Type:         engine.CmdUpdateAvailability,
		UserID:       msg.UserID,
		Roles:        roles,
		Captain:      current.Captain,
		Restrictions: mem.restrictions,
	})
}

func (l *Lobby) apply(cmd engine.Command) {
	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.logger.Warn("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
		return
	}
	l.state = newState
	for _, evt := range events {
		l.emit(evt)
	}
	l.observe()
}

func (l *Lobby) emit(evt engine.Event) {
	switch evt.Type {
	case engine.EvtStatusChanged:
		l.version++
		l.status = l.describe(*evt.Status)
		status := l.status
		l.notifier.Broadcast(types.ServerMessage{Type: types.MsgLaunchStatus, Version: l.version, Status: &status})

	case engine.EvtAvailabilityUpdated:
		l.notifier.SendToUser(evt.UserID, types.ServerMessage{Type: types.MsgAvailabilityAck, Membership: evt.Membership})

	case engine.EvtReadyUpdated:
		l.notifier.SendToUser(evt.UserID, types.ServerMessage{Type: types.MsgReadyAck, Ready: evt.Ready})

	case engine.EvtReadyCheckOpened:
		l.metrics.ReadyChecks.Inc()
		l.logger.Info("ready check opened", zap.Duration("ready_period", l.readyPeriod))
		l.notifier.Broadcast(types.ServerMessage{Type: types.MsgReadyCheckOpened, InProgress: true})
		// The status broadcast just before this was computed with the window
		// still closed. Replays and views report it open.
		l.status.InProgress = true
		l.scheduleReadyCheck()

	case engine.EvtReadyCheckAborted:
		l.metrics.Aborts.Inc()
		l.logger.Info("ready check aborted", zap.Strings("unmet", conditionNames(l.status.Unmet)))
		l.notifier.Broadcast(types.ServerMessage{Type: types.MsgReadyCheckAborted})

	case engine.EvtLaunched:
		l.metrics.Launches.Inc()
		l.handOff(*evt.Roster)
	}
}

// scheduleReadyCheck arms the one-shot timer for the open window. It is only
// stopped on shutdown.
func (l *Lobby) scheduleReadyCheck() {
	l.timerGen++
	gen := l.timerGen
	l.timer = time.AfterFunc(l.readyPeriod, func() {
		select {
		case l.inbox <- readyCheckExpired{gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

// handOff queues roster for the sink goroutine. The queue only backs up if
// the sink falls handOffBacklog launches behind.
func (l *Lobby) handOff(roster engine.Roster) {
	l.logger.Info("launching roster",
		zap.Any("players", roster.Players),
		zap.Strings("captains", roster.Captains),
	)
	l.handoffs <- roster
}

// handOffLoop delivers queued rosters off the lobby goroutine. Rosters still
// queued at shutdown are delivered before Done closes.
func (l *Lobby) handOffLoop() {
	defer close(l.handedOff)
	for roster := range l.handoffs {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), handOffTimeout)
		err := l.sink.Launch(ctx, roster)
		cancel()
		if err != nil {
			l.metrics.HandoffErrors.Inc()
			l.logger.Error("roster hand-off failed", zap.Error(err))
		}
	}
}

func (l *Lobby) describe(snap engine.Snapshot) types.Status {
	return types.Status{
		Availability: lo.Map(snap.Availability, func(p engine.RolePool, _ int) types.RoleStatus {
			return types.RoleStatus{Role: p.Role, Users: l.users(p.Users)}
		}),
		Captains:   l.users(snap.Captains),
		Deficits:   snap.Deficits,
		Unmet:      snap.Unmet,
		InProgress: snap.InProgress,
	}
}

func (l *Lobby) users(ids []string) []types.User {
	return lo.Map(ids, func(id string, _ int) types.User {
		if mem, ok := l.members[id]; ok {
			return mem.user
		}
		return types.User{ID: id, Alias: id}
	})
}

func (l *Lobby) observe() {
	l.metrics.ConnectedUsers.Set(float64(len(l.members)))
	for i, role := range l.state.Roles {
		l.metrics.Available.WithLabelValues(role.Name).Set(float64(l.state.Availability.Pools()[i].Len()))
	}
	l.metrics.Captains.Set(float64(l.state.Availability.Captains().Len()))
}

func (l *Lobby) shutdown() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.cancel()
}

func conditionNames(conds []engine.Condition) []string {
	return lo.Map(conds, func(c engine.Condition, _ int) string { return string(c) })
}
