package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/store"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LaunchLister lists recorded launches.
type LaunchLister interface {
	RecentLaunches(ctx context.Context, limit int) ([]store.Launch, error)
}

// RestrictionAdmin changes stored capability denials.
type RestrictionAdmin interface {
	Restrictions(ctx context.Context, userID string) (engine.Restrictions, error)
	Deny(ctx context.Context, userID string, aspect engine.Aspect, reason string) error
	Allow(ctx context.Context, userID string, aspect engine.Aspect) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type denyRequest struct {
	Reason string `json:"reason"`
}

type restrictionsResponse struct {
	UserID string          `json:"userId"`
	Denied []engine.Aspect `json:"denied"`
}

type statusResponse struct {
	Version    int          `json:"version"`
	Clients    int          `json:"clients"`
	Users      int          `json:"users"`
	ReadyCount int          `json:"readyCount"`
	InProgress bool         `json:"inProgress"`
	Status     types.Status `json:"status"`
}

type launchResponse struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Roster    engine.Roster `json:"roster"`
}

const (
	defaultLaunchLimit = 20
	maxLaunchLimit     = 200
)

func Status(lb *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		v, err := lb.View(ctx)
		if err != nil {
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Version:    v.Version,
			Clients:    v.NumClients,
			Users:      v.NumUsers,
			ReadyCount: v.ReadyCount,
			InProgress: v.InProgress,
			Status:     v.Status,
		})
	}
}

func Roles(roles []engine.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, roles)
	}
}

func Launches(launches LaunchLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLaunchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxLaunchLimit)
		}

		rows, err := launches.RecentLaunches(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to list launches", http.StatusInternalServerError)
			return
		}
		out := make([]launchResponse, 0, len(rows))
		for _, l := range rows {
			out = append(out, launchResponse{ID: l.ID.String(), CreatedAt: l.CreatedAt, Roster: l.Roster()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// SetRestriction denies (PUT) or allows (DELETE) one aspect for a user, then
// tells the lobby so a connected user is re-checked at once.
func SetRestriction(lb *lobby.Lobby, admin RestrictionAdmin, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		aspect, ok := engine.ParseAspect(chi.URLParam(r, "aspect"))
		if !ok {
			http.Error(w, "unknown aspect", http.StatusBadRequest)
			return
		}

		var err error
		switch r.Method {
		case http.MethodPut:
			var req denyRequest
			if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil && !errors.Is(derr, io.EOF) {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
			err = admin.Deny(r.Context(), userID, aspect, req.Reason)
		case http.MethodDelete:
			err = admin.Allow(r.Context(), userID, aspect)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err != nil {
			logger.Error("restriction update failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "failed to update restrictions", http.StatusInternalServerError)
			return
		}

		current, err := admin.Restrictions(r.Context(), userID)
		if err != nil {
			logger.Error("restriction lookup failed", zap.String("user_id", userID), zap.Error(err))
			http.Error(w, "failed to load restrictions", http.StatusInternalServerError)
			return
		}
		if !lb.Send(lobby.RestrictionsChanged{UserID: userID, Restrictions: current}) {
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}

		resp := restrictionsResponse{UserID: userID, Denied: []engine.Aspect{}}
		for _, a := range []engine.Aspect{engine.AspectStart, engine.AspectCaptain} {
			if current.Denies(a) {
				resp.Denied = append(resp.Denied, a)
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Healthz reports 503 when the database is configured but unreachable.
func Healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
