package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RestrictionSource looks up a user's capability denials.
type RestrictionSource interface {
	Restrictions(ctx context.Context, userID string) (engine.Restrictions, error)
}

// The session layer in front of this service authenticates the user and
// forwards the identity in these headers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserAlias = "X-User-Alias"
)

const writeTimeout = 3 * time.Second

func Handler(lb *lobby.Lobby, restrictions RestrictionSource, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identify(r)
		if user.ID == "" {
			http.Error(w, "missing user", http.StatusUnauthorized)
			return
		}

		var denied engine.Restrictions
		if restrictions != nil {
			var err error
			denied, err = restrictions.Restrictions(r.Context(), user.ID)
			if err != nil {
				logger.Error("restriction lookup failed", zap.String("user_id", user.ID), zap.Error(err))
				http.Error(w, "restrictions unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 32)
		clientID := uuid.NewString()
		log := logger.With(zap.String("client_id", clientID), zap.String("user_id", user.ID))

		if !lb.Send(lobby.Connect{ClientID: clientID, User: user, Restrictions: denied, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "lobby stopped")
			return
		}
		defer lb.Send(lobby.Disconnect{ClientID: clientID})

		// Writer goroutine. The hub closes out on disconnect or when this
		// client falls behind.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := wsjson.Write(ctx, conn, msg)
				cancel()
				if err != nil {
					log.Debug("write failed", zap.Error(err))
				}
			}
			conn.Close(websocket.StatusPolicyViolation, "stream closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				replyError(r.Context(), conn, "bad json")
				continue
			}

			msg, ok := toLobbyMsg(user.ID, cm)
			if !ok {
				log.Debug("unknown client message", zap.String("type", cm.Type))
				replyError(r.Context(), conn, "unknown type")
				continue
			}

			if !lb.Send(msg) {
				return
			}
		}
	}
}

func identify(r *http.Request) types.User {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		id = r.URL.Query().Get("user")
	}
	alias := r.Header.Get(HeaderUserAlias)
	if alias == "" {
		alias = r.URL.Query().Get("alias")
	}
	if alias == "" {
		alias = id
	}
	return types.User{ID: id, Alias: alias}
}

func toLobbyMsg(userID string, m types.ClientMessage) (lobby.Msg, bool) {
	switch m.Type {
	case types.MsgUpdateAvailability:
		return lobby.UpdateAvailability{UserID: userID, Roles: m.Roles, Captain: m.Captain}, true
	case types.MsgUpdateReady:
		return lobby.UpdateReady{UserID: userID, Ready: m.Ready}, true
	default:
		return nil, false
	}
}

func replyError(ctx context.Context, conn *websocket.Conn, msg string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, types.ErrorMessage(msg))
}
