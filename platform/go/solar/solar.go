package solar

import (
	"context"
	"errors"
	"time"
)

// DateLayout is the calendar-date format used to key solar days.
const DateLayout = "2006-01-02"

// ErrUnavailable wraps every failure to obtain a complete, well-formed window.
var ErrUnavailable = errors.New("solar data unavailable")

// Day holds the sunrise and sunset instants (UTC) of one calendar date.
type Day struct {
	Date    string
	Sunrise time.Time
	Sunset  time.Time
}

// Window is a run of consecutive days returned by a provider.
// Its length is the coverage actually obtained and may be shorter than requested.
type Window struct {
	Days []Day
}

// Len returns the number of covered days.
func (w Window) Len() int {
	return len(w.Days)
}

// Lookup returns the day keyed by date.
func (w Window) Lookup(date string) (Day, bool) {
	for _, d := range w.Days {
		if d.Date == date {
			return d, true
		}
	}
	return Day{}, false
}

// LatestBefore returns the latest covered day dated strictly before date.
func (w Window) LatestBefore(date string) (Day, bool) {
	var latest Day
	found := false
	for _, d := range w.Days {
		if d.Date < date && (!found || d.Date > latest.Date) {
			latest, found = d, true
		}
	}
	return latest, found
}

// Provider fetches sunrise and sunset data for a coordinate and inclusive date range.
type Provider interface {
	Fetch(ctx context.Context, latitude, longitude float64, startDate, endDate time.Time) (Window, error)
}
