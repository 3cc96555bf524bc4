// Package dispatch implements the per-minute reminder scan: it matches
// today's workout slots against the current minute and pushes reminders
// one hour before each workout.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fitbarca/reminders/internal/domain"
	"github.com/fitbarca/reminders/internal/push"
	"github.com/fitbarca/reminders/internal/store"
)

// ChatNotifier mirrors a reminder to a linked Telegram chat.
// telegram.Notifier implements this (method: SendMessage).
type ChatNotifier interface {
	SendMessage(chatID int64, text string) error
}

// Summary is the per-run report returned to the trigger for log scraping.
type Summary struct {
	Success           bool   `json:"success"`
	Timestamp         string `json:"timestamp"`
	CurrentTime       string `json:"currentTime"`
	CurrentDay        string `json:"currentDay"`
	SchedulesFound    int    `json:"schedulesFound"`
	NotificationsSent int    `json:"notificationsSent"`
	Skipped           int    `json:"skipped"`
	Errors            int    `json:"errors"`
}

// Dispatcher performs one stateless scan per invocation. There is no
// sent-reminder ledger: the design assumes runs do not overlap within a
// minute, which the in-process scheduler guarantees.
type Dispatcher struct {
	repo     store.Repo
	sender   push.Sender
	chat     ChatNotifier // nil when no bot token is configured
	log      *zap.Logger
	iconURL  string
	badgeURL string
}

// New creates a Dispatcher. chat may be nil.
func New(repo store.Repo, sender push.Sender, chat ChatNotifier, log *zap.Logger, iconURL, badgeURL string) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		sender:   sender,
		chat:     chat,
		log:      log,
		iconURL:  iconURL,
		badgeURL: badgeURL,
	}
}

// Run performs one scan at the given wall-clock time (already localized to
// the service timezone). Individual failures are counted and logged; the
// run always processes the whole batch.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) Summary {
	day := domain.WeekdayOf(now.Weekday())
	nowM := domain.MinuteOfDay(now)

	sum := Summary{
		Success:     true,
		Timestamp:   now.Format(time.RFC3339),
		CurrentTime: domain.FormatClock(now.Hour(), now.Minute()),
		CurrentDay:  string(day),
	}

	slots, err := d.repo.ListSlotsByDay(ctx, day)
	if err != nil {
		d.log.Error("list slots failed", zap.Error(err), zap.String("day", string(day)))
		sum.Success = false
		sum.Errors++
		return sum
	}
	sum.SchedulesFound = len(slots)

	// At most one reminder per (user, day, minute) within a run, even when
	// duplicate slot rows match the same minute.
	targeted := make(map[string]bool)
	phraseIdx := -1

	for _, slot := range slots {
		h, m := slot.ClockOrDefault()
		rh, rm := domain.ReminderClock(h, m)
		if rh*60+rm != nowM {
			sum.Skipped++
			continue
		}
		if targeted[slot.UserID] {
			sum.Skipped++
			continue
		}
		targeted[slot.UserID] = true

		// Quiet hours suppress reminders unless the workout itself falls in
		// the window: a 00:30 session still gets its 23:30 reminder.
		if domain.InQuietHours(nowM) && !domain.InQuietHours(h*60+m) {
			sum.Skipped++
			continue
		}

		profile, err := d.repo.GetProfile(ctx, slot.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				sum.Skipped++
				continue
			}
			d.log.Error("load profile failed", zap.Error(err), zap.String("user", slot.UserID))
			sum.Errors++
			continue
		}
		if !profile.NotificationsEnabled || !profile.Subscription.Usable() {
			sum.Skipped++
			continue
		}

		payload, nextIdx := d.buildPayload(ctx, slot, profile, phraseIdx)
		phraseIdx = nextIdx

		if err := d.sender.Send(ctx, profile.Subscription, payload); err != nil {
			// A permanently gone subscription is cleanup, not a send
			// failure: clear it and count the user as skipped.
			if errors.Is(err, push.ErrSubscriptionGone) {
				sum.Skipped++
				d.log.Info("subscription gone, clearing", zap.String("user", slot.UserID))
				if cerr := d.repo.ClearSubscription(ctx, slot.UserID); cerr != nil {
					d.log.Error("clear subscription failed", zap.Error(cerr), zap.String("user", slot.UserID))
					sum.Errors++
				}
			} else {
				sum.Errors++
				d.log.Error("push send failed", zap.Error(err), zap.String("user", slot.UserID))
			}
			continue
		}
		sum.NotificationsSent++

		if d.chat != nil && profile.TelegramChatID != nil {
			if terr := d.chat.SendMessage(*profile.TelegramChatID, payload.Title+"\n"+payload.Body); terr != nil {
				d.log.Warn("telegram mirror failed", zap.Error(terr), zap.String("user", slot.UserID))
			}
		}
	}

	d.log.Info("dispatch run finished",
		zap.String("day", sum.CurrentDay),
		zap.String("time", sum.CurrentTime),
		zap.Int("found", sum.SchedulesFound),
		zap.Int("sent", sum.NotificationsSent),
		zap.Int("skipped", sum.Skipped),
		zap.Int("errors", sum.Errors),
	)
	return sum
}

// buildPayload composes the notification for a slot. phraseIdx threads the
// phrase-picker cursor through a run so consecutive users in the same batch
// do not all get the same line.
func (d *Dispatcher) buildPayload(ctx context.Context, slot domain.WeeklySlot, profile *domain.Profile, phraseIdx int) (push.Payload, int) {
	body, idx := domain.PickPhrase(profile.Language, phraseIdx)

	hasChallenge, err := d.repo.HasOpenChallengeWorkout(ctx, slot.UserID)
	if err != nil {
		d.log.Warn("challenge lookup failed", zap.Error(err), zap.String("user", slot.UserID))
		hasChallenge = false
	}
	if hasChallenge {
		body += domain.ChallengeSuffix(profile.Language)
	}

	return push.Payload{
		Title: domain.GreetingTitle(profile.Language, profile.FirstName),
		Body:  body,
		Icon:  d.iconURL,
		Badge: d.badgeURL,
		Tag:   fmt.Sprintf("workout-reminder-%s-%s", slot.UserID, slot.Day),
	}, idx
}
