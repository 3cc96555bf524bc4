// Package ics renders a user's weekly workout slots as an iCalendar
// document suitable for calendar-app subscriptions. The output is
// deterministic for a given input: stable UIDs let subscribing clients
// update events in place across regenerations.
package ics

import (
	"bytes"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitbarca/reminders/internal/domain"
)

const (
	prodID   = "-//Fitbarca//Workout Schedule//EN"
	calName  = "Fitbarca Workouts"
	eventDur = time.Hour
	// crlf is mandated by RFC 5545; bare \n breaks several clients.
	crlf = "\r\n"
)

// uidNamespace seeds the deterministic per-(user, day) event UIDs.
var uidNamespace = uuid.MustParse("91a7f1f6-3e0b-4db3-9c48-2f6a41c7b9d4")

// EventUID derives the stable identity of a user's slot on a given day.
// Regenerating the calendar yields byte-identical UIDs, so clients update
// rather than duplicate the event.
func EventUID(userID string, day domain.Weekday) string {
	u := uuid.NewSHA1(uidNamespace, []byte(userID+":"+string(day)))
	return u.String() + "@fitbarca.app"
}

// EscapeText escapes free text per RFC 5545 §3.3.11: backslash, semicolon,
// comma and newline.
func EscapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}

func formatLocal(t time.Time) string {
	// Floating local time, deliberately without a Z suffix: events track the
	// user's wall clock.
	return t.Format("20060102T150405")
}

func formatUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// Calendar renders the slots as a complete iCalendar document. The returned
// bytes start with a UTF-8 BOM (some clients mis-render non-Latin titles
// without it) and use CRLF line endings throughout. An empty slot list
// yields a structurally valid empty calendar.
//
// updatedAt versions the document: DTSTAMP tracks when the user's schedule
// last changed, not when the feed was fetched, so unchanged data renders
// byte-identically across fetches. A zero updatedAt falls back to now.
func Calendar(userID string, slots []domain.WeeklySlot, now, updatedAt time.Time) []byte {
	if updatedAt.IsZero() {
		updatedAt = now
	}
	var b bytes.Buffer
	b.Write([]byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

	line := func(s string) {
		b.WriteString(s)
		b.WriteString(crlf)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + prodID)
	line("CALSCALE:GREGORIAN")
	line("METHOD:PUBLISH")
	line("X-WR-CALNAME:" + EscapeText(calName))

	for _, slot := range slots {
		h, m := slot.ClockOrDefault()
		start := domain.NextOccurrence(now, slot.Day, h, m)
		end := start.Add(eventDur)

		line("BEGIN:VEVENT")
		line("UID:" + EventUID(userID, slot.Day))
		line("DTSTAMP:" + formatUTC(updatedAt))
		line("DTSTART:" + formatLocal(start))
		line("DTEND:" + formatLocal(end))
		line("RRULE:FREQ=WEEKLY;BYDAY=" + slot.Day.ICSCode())
		line("SUMMARY:" + EscapeText(slot.Title()))
		line("DESCRIPTION:" + EscapeText(description(slot)))
		line("BEGIN:VALARM")
		line("ACTION:DISPLAY")
		line("DESCRIPTION:" + EscapeText(slot.Title()))
		line("TRIGGER:-PT15M")
		line("END:VALARM")
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
	return b.Bytes()
}

func description(slot domain.WeeklySlot) string {
	if len(slot.MuscleGroups) == 0 {
		return "Weekly workout session."
	}
	return "Weekly workout session. Focus: " + strings.TrimPrefix(slot.Title(), "Workout: ")
}
