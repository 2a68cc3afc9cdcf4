package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is one calendar month in a location. Membership is decided by
// year and month equality, never by a rolling duration.
type Window struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

// WindowOf returns the calendar month containing t in loc.
func WindowOf(t time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Window{Year: local.Year(), Month: local.Month(), Location: loc}
}

// ParseWindow parses a "YYYY-MM" (or "YYYY-M") selector.
func ParseWindow(raw string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	return Window{Year: year, Month: time.Month(month), Location: loc}, nil
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Contains reports whether t falls in the window's calendar month.
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.loc())
	return local.Year() == w.Year && local.Month() == w.Month
}

// Start returns the first instant of the window.
func (w Window) Start() time.Time {
	return time.Date(w.Year, w.Month, 1, 0, 0, 0, 0, w.loc())
}

// String formats the window as YYYY-MM.
func (w Window) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, int(w.Month))
}

// InWindow returns the invoices created inside w, preserving order.
func InWindow(invoices []Invoice, w Window) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if w.Contains(inv.CreatedAt) {
			out = append(out, inv)
		}
	}
	return out
}
