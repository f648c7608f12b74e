package store

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/engine"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Restriction denies one aspect to one user.
type Restriction struct {
	UserID    string `gorm:"primaryKey"`
	Aspect    string `gorm:"primaryKey"`
	Reason    string
	CreatedAt time.Time
}

func (Restriction) TableName() string { return "user_restrictions" }

// Launch is a roster waiting for (or taken by) the draft service.
type Launch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	ClaimedAt *time.Time
	Players   []LaunchPlayer `gorm:"foreignKey:LaunchID;constraint:OnDelete:CASCADE"`
}

// LaunchPlayer is one roster slot. Captain rows carry an empty role.
type LaunchPlayer struct {
	ID       uint      `gorm:"primaryKey"`
	LaunchID uuid.UUID `gorm:"type:uuid;index"`
	UserID   string
	Role     string
	Captain  bool
}

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

// New wraps db and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Restriction{}, &Launch{}, &LaunchPlayer{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Restrictions returns the aspects denied to userID. A user without rows has
// no denials.
func (s *Store) Restrictions(ctx context.Context, userID string) (engine.Restrictions, error) {
	var rows []Restriction
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load restrictions for %s: %w", userID, err)
	}
	r := make(engine.Restrictions, len(rows))
	for _, row := range rows {
		r[engine.Aspect(row.Aspect)] = true
	}
	return r, nil
}

func (s *Store) Deny(ctx context.Context, userID string, aspect engine.Aspect, reason string) error {
	row := Restriction{UserID: userID, Aspect: string(aspect), Reason: reason}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "aspect"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("deny %s to %s: %w", aspect, userID, err)
	}
	return nil
}

func (s *Store) Allow(ctx context.Context, userID string, aspect engine.Aspect) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND aspect = ?", userID, string(aspect)).
		Delete(&Restriction{}).Error
	if err != nil {
		return fmt.Errorf("allow %s to %s: %w", aspect, userID, err)
	}
	return nil
}

// Launch records a roster for the draft service in one transaction.
func (s *Store) Launch(ctx context.Context, roster engine.Roster) error {
	launch := Launch{ID: uuid.New()}
	for role, ids := range roster.Players {
		for _, id := range ids {
			launch.Players = append(launch.Players, LaunchPlayer{UserID: id, Role: role})
		}
	}
	for _, id := range roster.Captains {
		launch.Players = append(launch.Players, LaunchPlayer{UserID: id, Captain: true})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&launch).Error
	})
	if err != nil {
		return fmt.Errorf("record launch: %w", err)
	}
	return nil
}

// RecentLaunches returns up to limit launches, newest first, with their players.
func (s *Store) RecentLaunches(ctx context.Context, limit int) ([]Launch, error) {
	var launches []Launch
	err := s.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&launches).Error
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	return launches, nil
}

// Roster rebuilds the engine roster from stored rows.
func (l Launch) Roster() engine.Roster {
	r := engine.Roster{Players: map[string][]string{}}
	for _, p := range l.Players {
		if p.Captain {
			r.Captains = append(r.Captains, p.UserID)
			continue
		}
		r.Players[p.Role] = append(r.Players[p.Role], p.UserID)
	}
	return r
}
