package store

import (
	"context"
	"errors"

	"github.com/fitbarca/reminders/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for slots, profiles and challenge items.
// The web client is the primary writer; the dispatcher only clears dead
// push subscriptions.
type Repo interface {
	UpsertSlot(ctx context.Context, s *domain.WeeklySlot) error
	ListSlots(ctx context.Context, userID string) ([]domain.WeeklySlot, error)
	ListSlotsByDay(ctx context.Context, day domain.Weekday) ([]domain.WeeklySlot, error)

	UpsertProfile(ctx context.Context, p *domain.Profile) error
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// ClearSubscription drops the stored push subscription and disables
	// notifications, so future dispatcher runs skip the user cleanly.
	ClearSubscription(ctx context.Context, userID string) error

	AddChallengeWorkout(ctx context.Context, userID, title string) error
	CompleteChallengeWorkout(ctx context.Context, userID, title string) error
	HasOpenChallengeWorkout(ctx context.Context, userID string) (bool, error)

	Close() error
}
