package lobby

import (
	"context"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"go.uber.org/zap"
)

// LogSink hands rosters to nobody; it only logs them. Used when no database is
// configured.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Launch(_ context.Context, roster engine.Roster) error {
	s.Logger.Info("roster ready for draft",
		zap.Any("players", roster.Players),
		zap.Strings("captains", roster.Captains),
		zap.Int("users", len(roster.Users())),
	)
	return nil
}
