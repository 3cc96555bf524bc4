package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is the day key used across slots, event UIDs and push tags.
type Weekday string

const (
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
)

// weekdays in calendar order, Sunday first (matches time.Weekday numbering).
var weekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// icsCodes maps each day to its RFC 5545 two-letter BYDAY code.
var icsCodes = map[Weekday]string{
	Sunday: "SU", Monday: "MO", Tuesday: "TU", Wednesday: "WE",
	Thursday: "TH", Friday: "FR", Saturday: "SA",
}

// WeekdayOf converts a time.Weekday to its day key.
func WeekdayOf(d time.Weekday) Weekday {
	return weekdays[int(d)%7]
}

// Time returns the time.Weekday for the day key. Unknown keys map to Sunday.
func (d Weekday) Time() time.Weekday {
	for i, w := range weekdays {
		if w == d {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}

// ICSCode returns the two-letter BYDAY code ("MO", "TU", ...).
func (d Weekday) ICSCode() string {
	if c, ok := icsCodes[d]; ok {
		return c
	}
	return "SU"
}

// Valid reports whether d is one of the seven known day keys.
func (d Weekday) Valid() bool {
	_, ok := icsCodes[d]
	return ok
}

// MuscleGroup tags a slot with what the workout trains.
type MuscleGroup string

const (
	Chest     MuscleGroup = "chest"
	Back      MuscleGroup = "back"
	Legs      MuscleGroup = "legs"
	Shoulders MuscleGroup = "shoulders"
	Arms      MuscleGroup = "arms"
	Core      MuscleGroup = "core"
	Cardio    MuscleGroup = "cardio"
	FullBody  MuscleGroup = "fullbody"
)

var muscleLabels = map[MuscleGroup]string{
	Chest: "Chest", Back: "Back", Legs: "Legs", Shoulders: "Shoulders",
	Arms: "Arms", Core: "Core", Cardio: "Cardio", FullBody: "Full body",
}

// Label returns the display name for a muscle group; unknown tags pass through.
func (m MuscleGroup) Label() string {
	if l, ok := muscleLabels[m]; ok {
		return l
	}
	return string(m)
}

// WeeklySlot is a user's recurring workout assignment.
type WeeklySlot struct {
	UserID       string
	Day          Weekday
	Clock        string // "HH:MM" local wall-clock time
	MuscleGroups []MuscleGroup
	UpdatedAt    time.Time
}

// Title builds the event/notification label ("Workout: Chest, Arms").
func (s WeeklySlot) Title() string {
	if len(s.MuscleGroups) == 0 {
		return "Workout"
	}
	labels := make([]string, len(s.MuscleGroups))
	for i, m := range s.MuscleGroups {
		labels[i] = m.Label()
	}
	return "Workout: " + strings.Join(labels, ", ")
}

var errBadClock = errors.New("invalid clock")

// ParseClock parses "HH:MM" into hour and minute.
// Callers fall back to 09:00 on error rather than rejecting the slot.
func ParseClock(s string) (hour, min int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("%w: %q", errBadClock, s)
	}
	return hour, min, nil
}

// ClockOrDefault parses the slot clock, defaulting to 09:00 when malformed.
func (s WeeklySlot) ClockOrDefault() (hour, min int) {
	h, m, err := ParseClock(s.Clock)
	if err != nil {
		return 9, 0
	}
	return h, m
}

// DedupeSlots keeps one slot per weekday, most recently updated wins.
// Output is ordered Sunday through Saturday. Duplicate (user, day) rows are
// an upstream bug this read path defends against.
func DedupeSlots(slots []WeeklySlot) []WeeklySlot {
	byDay := make(map[Weekday]WeeklySlot, len(slots))
	for _, s := range slots {
		if prev, ok := byDay[s.Day]; ok && !s.UpdatedAt.After(prev.UpdatedAt) {
			continue
		}
		byDay[s.Day] = s
	}
	out := make([]WeeklySlot, 0, len(byDay))
	for _, d := range weekdays {
		if s, ok := byDay[d]; ok {
			out = append(out, s)
		}
	}
	return out
}
