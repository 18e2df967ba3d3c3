package booking

import (
	"sort"
	"strings"
	"time"

	"snaplink/models"
)

// DateLayout is the calendar-day format of booking dates.
const DateLayout = "2006-01-02"

// Gate turns a photographer's availability list into selectable and blocked days.
// Days are compared as calendar days in loc, never as timestamps.
type Gate struct {
	loc  *time.Location
	days map[string][]models.AvailabilityEntry
}

// NewGate indexes entries by calendar day. Entries with unparseable dates are skipped.
func NewGate(entries []models.AvailabilityEntry, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	g := &Gate{loc: loc, days: make(map[string][]models.AvailabilityEntry, len(entries))}
	for _, e := range entries {
		day, ok := g.normalize(e.AvailableDate)
		if !ok {
			continue
		}
		g.days[day] = append(g.days[day], e)
	}
	return g
}

// normalize maps a date or timestamp to its YYYY-MM-DD day in the gate's zone.
func (g *Gate) normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if t, err := time.ParseInLocation(DateLayout, raw, g.loc); err == nil {
		return t.Format(DateLayout), true
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, g.loc); err == nil {
			return t.In(g.loc).Format(DateLayout), true
		}
	}
	return "", false
}

// ParseDay validates a user-supplied date and returns it as YYYY-MM-DD.
func (g *Gate) ParseDay(raw string) (string, error) {
	day, ok := g.normalize(raw)
	if !ok {
		return "", ErrInvalidDate
	}
	return day, nil
}

// Match returns the available entry for day, if any. A day with several
// entries is selectable as soon as one of them is available.
func (g *Gate) Match(day string) (models.AvailabilityEntry, bool) {
	for _, e := range g.days[day] {
		if e.Status == models.AvailabilityAvailable {
			return e, true
		}
	}
	return models.AvailabilityEntry{}, false
}

// Select applies a date pick to the draft. Picking a booked or unknown day
// returns ErrDateUnavailable and leaves the draft as it was. A nil date clears
// the selection: the date falls back to today and the slot is dropped.
func (g *Gate) Select(d models.BookingDraft, date *string, now time.Time) (models.BookingDraft, error) {
	if date == nil {
		d.BookingDate = now.In(g.loc).Format(DateLayout)
		d.AvailabilityID = ""
		return d, nil
	}
	day, err := g.ParseDay(*date)
	if err != nil {
		return d, err
	}
	entry, ok := g.Match(day)
	if !ok {
		return d, ErrDateUnavailable
	}
	d.BookingDate = day
	d.AvailabilityID = entry.AvailabilityID
	return d, nil
}

// Allows reports whether the draft's date and slot still point at an available entry.
func (g *Gate) Allows(d models.BookingDraft) bool {
	if d.BookingDate == "" || d.AvailabilityID == "" {
		return false
	}
	for _, e := range g.days[d.BookingDate] {
		if e.AvailabilityID == d.AvailabilityID && e.Status == models.AvailabilityAvailable {
			return true
		}
	}
	return false
}

// Calendar lists every known day in order with its selectability.
func (g *Gate) Calendar() []models.CalendarDay {
	out := make([]models.CalendarDay, 0, len(g.days))
	for day := range g.days {
		cd := models.CalendarDay{Date: day}
		if e, ok := g.Match(day); ok {
			cd.AvailabilityID = e.AvailabilityID
			cd.Selectable = true
		}
		out = append(out, cd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
