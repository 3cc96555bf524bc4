package domain

import (
	"fmt"
	"time"
)

// Quiet hours: reminders are suppressed between 23:00 and 06:00 local time,
// unless the workout itself starts inside that window.
const (
	quietFromM = 23 * 60
	quietToM   = 6 * 60
)

// ReminderOffset is how long before a slot's start its reminder fires.
const ReminderOffset = 60 // minutes

// InWindow returns true if local time (minutes since midnight) is inside the
// window. Supports wrap-around windows like 23:00–06:00 (fromM > toM).
func InWindow(localM, fromM, toM int) bool {
	if fromM == toM {
		return false // zero-length window
	}
	if fromM < toM {
		return localM >= fromM && localM < toM
	}
	// wrap: [from..1440) U [0..to)
	return localM >= fromM || localM < toM
}

// InQuietHours reports whether the given minute-of-day falls in quiet hours.
func InQuietHours(localM int) bool {
	return InWindow(localM, quietFromM, quietToM)
}

// ReminderClock returns the reminder time for a slot start, ReminderOffset
// minutes earlier with the hour wrapping across midnight. The day is not
// shifted: a 00:30 slot reminds at 23:30 under the same day key.
func ReminderClock(hour, min int) (rh, rm int) {
	total := hour*60 + min - ReminderOffset
	if total < 0 {
		total += 24 * 60
	}
	return total / 60, total % 60
}

// MinuteOfDay returns minutes since midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatClock renders hour/minute as "HH:MM".
func FormatClock(hour, min int) string {
	return fmt.Sprintf("%02d:%02d", hour, min)
}

// NextOccurrence computes the next wall-clock instance of a weekly slot
// relative to now. A slot on today's weekday anchors next week; the published
// recurrence rule renders every week regardless, so only the first DTSTART
// shifts.
func NextOccurrence(now time.Time, day Weekday, hour, min int) time.Time {
	daysUntil := int(day.Time()-now.Weekday()+7) % 7
	if daysUntil == 0 {
		daysUntil = 7
	}
	d := now.AddDate(0, 0, daysUntil)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, now.Location())
}
