package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitbarca/reminders/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSlots_UpsertAndListByDay(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertSlot(ctx, &domain.WeeklySlot{
		UserID: "u1", Day: domain.Monday, Clock: "07:00",
		MuscleGroups: []domain.MuscleGroup{domain.Chest, domain.Arms},
	}))
	require.NoError(t, repo.UpsertSlot(ctx, &domain.WeeklySlot{
		UserID: "u2", Day: domain.Monday, Clock: "18:30",
	}))
	require.NoError(t, repo.UpsertSlot(ctx, &domain.WeeklySlot{
		UserID: "u1", Day: domain.Friday, Clock: "19:00",
	}))

	monday, err := repo.ListSlotsByDay(ctx, domain.Monday)
	require.NoError(t, err)
	assert.Len(t, monday, 2)

	// Second upsert for the same (user, day) updates in place.
	require.NoError(t, repo.UpsertSlot(ctx, &domain.WeeklySlot{
		UserID: "u1", Day: domain.Monday, Clock: "08:00",
		MuscleGroups: []domain.MuscleGroup{domain.Legs},
	}))
	mine, err := repo.ListSlots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, s := range mine {
		if s.Day == domain.Monday {
			assert.Equal(t, "08:00", s.Clock)
			assert.Equal(t, []domain.MuscleGroup{domain.Legs}, s.MuscleGroups)
		}
	}
}

func TestProfiles_RoundTripAndClearSubscription(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	chat := int64(4242)
	require.NoError(t, repo.UpsertProfile(ctx, &domain.Profile{
		UserID:               "u1",
		FirstName:            "Marta",
		Language:             "es",
		NotificationsEnabled: true,
		CalendarSyncEnabled:  true,
		TelegramChatID:       &chat,
		Subscription: &domain.PushSubscription{
			Endpoint: "https://push.example/ep1",
			Auth:     "auth-key",
			P256dh:   "p256-key",
		},
	}))

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Marta", p.FirstName)
	assert.Equal(t, "es", p.Language)
	assert.True(t, p.NotificationsEnabled)
	require.NotNil(t, p.TelegramChatID)
	assert.Equal(t, chat, *p.TelegramChatID)
	require.NotNil(t, p.Subscription)
	assert.True(t, p.Subscription.Usable())

	require.NoError(t, repo.ClearSubscription(ctx, "u1"))
	p, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.NotificationsEnabled)
	assert.False(t, p.Subscription.Usable())
}

func TestGetProfile_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChallengeWorkouts_OpenAndComplete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	open, err := repo.HasOpenChallengeWorkout(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, open)

	require.NoError(t, repo.AddChallengeWorkout(ctx, "u1", "30-day squats"))
	open, err = repo.HasOpenChallengeWorkout(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, repo.CompleteChallengeWorkout(ctx, "u1", "30-day squats"))
	open, err = repo.HasOpenChallengeWorkout(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestListSlots_KeepsDuplicateRowsForReadTimeDedupe(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	// Simulate a duplicate-insert bug upstream: two raw rows, same day.
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO slots (user_id, day, clock, muscle_groups, updated_at)
		VALUES ('u1', 'monday', '07:00', '', ?), ('u1', 'monday', '09:30', '', ?)`,
		time.Now().Unix()-100, time.Now().Unix(),
	)
	require.NoError(t, err)

	raw, err := repo.ListSlots(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, raw, 2)

	deduped := domain.DedupeSlots(raw)
	require.Len(t, deduped, 1)
	assert.Equal(t, "09:30", deduped[0].Clock)
}
