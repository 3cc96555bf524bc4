package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitbarca/reminders/internal/domain"
	"github.com/fitbarca/reminders/internal/push"
	"github.com/fitbarca/reminders/internal/store"
)

// fakeRepo is an in-memory store.Repo for dispatcher tests.
type fakeRepo struct {
	slots     []domain.WeeklySlot
	profiles  map[string]*domain.Profile
	challenge map[string]bool
	cleared   []string
	listErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles:  make(map[string]*domain.Profile),
		challenge: make(map[string]bool),
	}
}

func (f *fakeRepo) UpsertSlot(_ context.Context, s *domain.WeeklySlot) error {
	f.slots = append(f.slots, *s)
	return nil
}

func (f *fakeRepo) ListSlots(_ context.Context, userID string) ([]domain.WeeklySlot, error) {
	var out []domain.WeeklySlot
	for _, s := range f.slots {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListSlotsByDay(_ context.Context, day domain.Weekday) ([]domain.WeeklySlot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.WeeklySlot
	for _, s := range f.slots {
		if s.Day == day {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertProfile(_ context.Context, p *domain.Profile) error {
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeRepo) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	return p, nil
}

func (f *fakeRepo) ClearSubscription(_ context.Context, userID string) error {
	f.cleared = append(f.cleared, userID)
	if p, ok := f.profiles[userID]; ok {
		p.Subscription = nil
		p.NotificationsEnabled = false
	}
	return nil
}

func (f *fakeRepo) AddChallengeWorkout(_ context.Context, userID, _ string) error {
	f.challenge[userID] = true
	return nil
}

func (f *fakeRepo) CompleteChallengeWorkout(_ context.Context, userID, _ string) error {
	f.challenge[userID] = false
	return nil
}

func (f *fakeRepo) HasOpenChallengeWorkout(_ context.Context, userID string) (bool, error) {
	return f.challenge[userID], nil
}

func (f *fakeRepo) Close() error { return nil }

// fakeSender records delivered payloads and can fail on demand.
type fakeSender struct {
	sent []push.Payload
	err  error
}

func (f *fakeSender) Send(_ context.Context, _ *domain.PushSubscription, p push.Payload) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeChat struct {
	msgs map[int64][]string
}

func (f *fakeChat) SendMessage(chatID int64, text string) error {
	if f.msgs == nil {
		f.msgs = make(map[int64][]string)
	}
	f.msgs[chatID] = append(f.msgs[chatID], text)
	return nil
}

func usableProfile(userID string) *domain.Profile {
	return &domain.Profile{
		UserID:               userID,
		FirstName:            "Jordi",
		Language:             "en",
		NotificationsEnabled: true,
		Subscription: &domain.PushSubscription{
			Endpoint: "https://push.example/" + userID,
			Auth:     "a",
			P256dh:   "p",
		},
	}
}

// wednesdayAt builds a local Wednesday at the given clock time.
func wednesdayAt(t *testing.T, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return time.Date(2025, time.May, 7, hh, mm, 0, 0, loc) // a Wednesday
}

func newDispatcher(repo store.Repo, sender push.Sender, chat ChatNotifier) *Dispatcher {
	return New(repo, sender, chat, zap.NewNop(), "/icons/icon-192.png", "/icons/badge-72.png")
}

func TestRun_ExactMinuteMatchSendsOnePayload(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"}}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.True(t, sum.Success)
	assert.Equal(t, 1, sum.SchedulesFound)
	assert.Equal(t, 1, sum.NotificationsSent)
	assert.Equal(t, 0, sum.Errors)
	require.Len(t, sender.sent, 1)
	p := sender.sent[0]
	assert.Equal(t, "workout-reminder-u1-wednesday", p.Tag)
	assert.Equal(t, "Hey Jordi, workout reminder", p.Title)
	assert.NotEmpty(t, p.Body)
	assert.Equal(t, "wednesday", sum.CurrentDay)
	assert.Equal(t, "06:00", sum.CurrentTime)
}

func TestRun_MinuteMismatchSkips(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"}}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 1))

	assert.Equal(t, 0, sum.NotificationsSent)
	assert.Equal(t, 1, sum.Skipped)
	assert.Empty(t, sender.sent)
}

func TestRun_DuplicateRowsTargetUserOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{
		{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"},
		{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"},
	}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.Equal(t, 1, sum.NotificationsSent)
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, 1, sum.Skipped)
}

func TestRun_QuietHoursSuppressDaytimeWorkout(t *testing.T) {
	// Workout at 06:30 is outside quiet hours, but its 05:30 reminder is
	// inside the window: suppressed.
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "06:30"}}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 5, 30))

	assert.Equal(t, 0, sum.NotificationsSent)
	assert.Equal(t, 1, sum.Skipped)
}

func TestRun_QuietHoursAllowLateNightWorkout(t *testing.T) {
	// Workout at 00:30 is itself inside quiet hours, so its 23:30 reminder
	// still goes out.
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "00:30"}}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 23, 30))

	assert.Equal(t, 1, sum.NotificationsSent)
	require.Len(t, sender.sent, 1)
}

func TestRun_DisabledOrUnusableSubscriptionSkips(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{
		{UserID: "off", Day: domain.Wednesday, Clock: "07:00"},
		{UserID: "pending", Day: domain.Wednesday, Clock: "07:00"},
		{UserID: "ghost", Day: domain.Wednesday, Clock: "07:00"},
	}
	off := usableProfile("off")
	off.NotificationsEnabled = false
	repo.profiles["off"] = off
	pending := usableProfile("pending")
	pending.Subscription.Endpoint = domain.PlaceholderEndpoint
	repo.profiles["pending"] = pending
	// "ghost" has no profile row at all.
	sender := &fakeSender{}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.Equal(t, 0, sum.NotificationsSent)
	assert.Equal(t, 3, sum.Skipped)
	assert.Equal(t, 0, sum.Errors)
	assert.Empty(t, sender.sent)
}

func TestRun_GoneSubscriptionIsCleared(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"}}
	repo.profiles["u1"] = usableProfile("u1")
	sender := &fakeSender{err: fmt.Errorf("status 410: %w", push.ErrSubscriptionGone)}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.Equal(t, 0, sum.NotificationsSent)
	// Cleanup is not a send failure: the user counts as skipped, and the
	// error bucket stays reserved for other provider failures.
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Errors)
	assert.Equal(t, []string{"u1"}, repo.cleared)
}

func TestRun_OtherSendFailuresDoNotStopTheBatch(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{
		{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"},
		{UserID: "u2", Day: domain.Wednesday, Clock: "07:00"},
	}
	repo.profiles["u1"] = usableProfile("u1")
	repo.profiles["u2"] = usableProfile("u2")
	sender := &failFirstSender{failFor: "https://push.example/u1"}

	sum := newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.Equal(t, 1, sum.NotificationsSent)
	assert.Equal(t, 1, sum.Errors)
	assert.Empty(t, repo.cleared)
}

type failFirstSender struct {
	failFor string
	sent    []push.Payload
}

func (f *failFirstSender) Send(_ context.Context, sub *domain.PushSubscription, p push.Payload) error {
	if sub.Endpoint == f.failFor {
		return errors.New("provider 5xx")
	}
	f.sent = append(f.sent, p)
	return nil
}

func TestRun_ChallengeSuffixAppended(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"}}
	repo.profiles["u1"] = usableProfile("u1")
	repo.challenge["u1"] = true
	sender := &fakeSender{}

	newDispatcher(repo, sender, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	require.Len(t, sender.sent, 1)
	assert.True(t, strings.HasSuffix(sender.sent[0].Body, "open challenge workout waiting."))
}

func TestRun_TelegramMirrorForLinkedChat(t *testing.T) {
	repo := newFakeRepo()
	repo.slots = []domain.WeeklySlot{{UserID: "u1", Day: domain.Wednesday, Clock: "07:00"}}
	p := usableProfile("u1")
	chatID := int64(99)
	p.TelegramChatID = &chatID
	repo.profiles["u1"] = p
	sender := &fakeSender{}
	chat := &fakeChat{}

	newDispatcher(repo, sender, chat).Run(context.Background(), wednesdayAt(t, 6, 0))

	require.Len(t, chat.msgs[chatID], 1)
	assert.Contains(t, chat.msgs[chatID][0], "Hey Jordi, workout reminder")
}

func TestRun_ListFailureReportsUnsuccessfulRun(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db locked")

	sum := newDispatcher(repo, &fakeSender{}, nil).Run(context.Background(), wednesdayAt(t, 6, 0))

	assert.False(t, sum.Success)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 0, sum.SchedulesFound)
}
