// Package timezone converts between the UTC instants used for storage
// and the single fixed display timezone of the deployment, and
// generates the fixed-width slot grid offered on the booking pages.
// Comparison logic elsewhere always works on instants; this package is
// the only place local wall-clock time appears.
package timezone

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultZone is the deployment timezone used when DISPLAY_TIMEZONE is
// not set. The building runs on WIB, which has no daylight saving.
const DefaultZone = "Asia/Jakarta"

// Default slot grid: 30-minute slots from 07:00 to 21:00 local time.
const (
	DefaultStartHour   = 7
	DefaultEndHour     = 21
	DefaultStepMinutes = 30
)

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the fixed display timezone. It reads
// DISPLAY_TIMEZONE once; an unknown zone name falls back to
// DefaultZone so the service never runs with a nil location.
func Location() *time.Location {
	locOnce.Do(func() {
		name := os.Getenv("DISPLAY_TIMEZONE")
		if name == "" {
			name = DefaultZone
		}
		l, err := time.LoadLocation(name)
		if err != nil {
			l, _ = time.LoadLocation(DefaultZone)
		}
		loc = l
	})
	return loc
}

// ToLocal converts a UTC instant to wall-clock time in the display zone.
func ToLocal(t time.Time) time.Time {
	return t.In(Location())
}

// ToInstant interprets year/month/day/hour/minute as wall-clock time in
// the display zone and returns the corresponding UTC instant.
func ToInstant(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, Location()).UTC()
}

// FormatLocal renders an instant in the display zone using the given
// layout. Presentation only; never used for comparisons.
func FormatLocal(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

// StartOfDay returns the UTC instant of local midnight on the calendar
// day containing t.
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location()).UTC()
}

// EndOfDay returns the UTC instant of local midnight following the
// calendar day containing t, so a day is the half-open window
// [StartOfDay, EndOfDay).
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24 * time.Hour)
}

// Slot is one fixed-width candidate window on the booking grid. Start
// and End are UTC instants; Label is the local "HH:MM" start time shown
// to users. Slots are not stored entities.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// DaySlots generates the ordered, back-to-back, non-overlapping slot
// grid for the local calendar day containing date. The grid spans
// [startHour:00, endHour:00) local time in stepMinutes increments. It
// is a pure function of its arguments.
func DaySlots(date time.Time, startHour, endHour, stepMinutes int) []Slot {
	if stepMinutes <= 0 || endHour <= startHour {
		return nil
	}
	l := date.In(Location())
	year, month, day := l.Year(), l.Month(), l.Day()

	total := (endHour - startHour) * 60 / stepMinutes
	slots := make([]Slot, 0, total)
	for offset := 0; offset < (endHour-startHour)*60; offset += stepMinutes {
		hour := startHour + offset/60
		min := offset % 60
		start := ToInstant(year, month, day, hour, min)
		end := start.Add(time.Duration(stepMinutes) * time.Minute)
		slots = append(slots, Slot{
			Start: start,
			End:   end,
			Label: fmt.Sprintf("%02d:%02d", hour, min),
		})
	}
	return slots
}

// DefaultDaySlots generates the deployment's standard 07:00-21:00 grid
// of 30-minute slots for the given day.
func DefaultDaySlots(date time.Time) []Slot {
	return DaySlots(date, DefaultStartHour, DefaultEndHour, DefaultStepMinutes)
}
