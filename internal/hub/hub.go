package hub

import (
	"context"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	ClientID string
	UserID   string
	Outbox   chan types.ServerMessage // where this client wants to receive messages
}

type Unsubscribe struct {
	ClientID string
}

type Broadcast struct {
	Msg types.ServerMessage
}

// SendToUser reaches every connection of one user.
type SendToUser struct {
	UserID string
	Msg    types.ServerMessage
}

type SendToClient struct {
	ClientID string
	Msg      types.ServerMessage
}

type CountClients struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Subscribe) isHubMsg()    {}
func (Unsubscribe) isHubMsg()  {}
func (Broadcast) isHubMsg()    {}
func (SendToUser) isHubMsg()   {}
func (SendToClient) isHubMsg() {}
func (CountClients) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type subscriber struct {
	userID string
	outbox chan types.ServerMessage
}

// Hub fans server messages out to observers. A client whose outbox is full is
// dropped and its outbox closed.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]subscriber
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		clients: make(map[string]subscriber),
		logger:  logger.With(zap.String("component", "hub")),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) send(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Subscribe(clientID, userID string, outbox chan types.ServerMessage) {
	h.send(Subscribe{ClientID: clientID, UserID: userID, Outbox: outbox})
}

func (h *Hub) Unsubscribe(clientID string) { h.send(Unsubscribe{ClientID: clientID}) }

func (h *Hub) Broadcast(msg types.ServerMessage) { h.send(Broadcast{Msg: msg}) }

func (h *Hub) SendToUser(userID string, msg types.ServerMessage) {
	h.send(SendToUser{UserID: userID, Msg: msg})
}

func (h *Hub) SendToClient(clientID string, msg types.ServerMessage) {
	h.send(SendToClient{ClientID: clientID, Msg: msg})
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				if old, ok := h.clients[msg.ClientID]; ok && old.outbox != msg.Outbox {
					close(old.outbox)
				}
				h.clients[msg.ClientID] = subscriber{userID: msg.UserID, outbox: msg.Outbox}

			case Unsubscribe:
				h.drop(msg.ClientID)

			case Broadcast:
				for id := range h.clients {
					h.deliver(id, msg.Msg)
				}

			case SendToUser:
				for id, sub := range h.clients {
					if sub.userID == msg.UserID {
						h.deliver(id, msg.Msg)
					}
				}

			case SendToClient:
				if _, ok := h.clients[msg.ClientID]; ok {
					h.deliver(msg.ClientID, msg.Msg)
				}

			case CountClients:
				// test-only: reflect internal state without data races
				msg.Reply <- len(h.clients)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) deliver(clientID string, msg types.ServerMessage) {
	sub := h.clients[clientID]
	select {
	case sub.outbox <- msg:
		//ok
	default:
		// Client is slow/full - drop them.
		h.logger.Warn("dropping slow client", zap.String("client_id", clientID), zap.String("user_id", sub.userID))
		h.drop(clientID)
	}
}

func (h *Hub) drop(clientID string) {
	sub, ok := h.clients[clientID]
	if !ok {
		return
	}
	close(sub.outbox) // Tell client no more messages
	delete(h.clients, clientID)
}

func (h *Hub) shutdown() {
	for id := range h.clients {
		h.drop(id)
	}
	h.cancel()
}
