package service

import (
	"time"

	"github.com/zenGate-Global/studio-scheduler/platform/go/solar"
)

const (
	// HorizonDays is the number of tenant-local days, today included, that carry placeholders.
	HorizonDays = 30
	// FetchDays is the number of days requested from the solar provider.
	FetchDays = 14
	// SlotHalfWidth is the distance from the solar instant to either end of a placeholder.
	SlotHalfWidth = 30 * time.Minute
)

// Slot types and titles of generated placeholders.
const (
	SlotSunrise  = "SUNRISE"
	SlotDusk     = "DUSK"
	TitleSunrise = "SUNRISE SLOT"
	TitleDusk    = "DUSK SLOT"
)

// Rule is the number of sunrise and dusk placeholders requested for a weekday.
type Rule struct {
	Sunrise int
	Dusk    int
}

func (r Rule) empty() bool {
	return r.Sunrise <= 0 && r.Dusk <= 0
}

// Rules maps weekdays to their placeholder counts. Absent weekdays produce nothing.
type Rules map[time.Weekday]Rule

// Slot is one planned placeholder.
type Slot struct {
	Type    string
	Title   string
	Date    time.Time // tenant-local calendar date at UTC midnight
	Ordinal int
	Center  time.Time
	StartAt time.Time
	EndAt   time.Time
}

// Plan lays out the placeholders of the horizon starting at today, the tenant-local midnight.
// Days inside the window use their exact instants; later days shift the closest earlier
// fetched day by whole 24 hour periods.
func Plan(today time.Time, window solar.Window, rules Rules) []Slot {
	loc := today.Location()
	slots := make([]Slot, 0)

	for offset := 0; offset < HorizonDays; offset++ {
		day := time.Date(today.Year(), today.Month(), today.Day()+offset, 0, 0, 0, 0, loc)

		rule, ok := rules[day.Weekday()]
		if !ok || rule.empty() {
			continue
		}

		sun, ok := sunFor(window, day)
		if !ok {
			continue
		}

		date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		slots = appendSlots(slots, date, SlotSunrise, TitleSunrise, sun.Sunrise, rule.Sunrise)
		slots = appendSlots(slots, date, SlotDusk, TitleDusk, sun.Sunset, rule.Dusk)
	}

	return slots
}

// Count returns the number of placeholders rules request over the horizon starting at today.
func Count(today time.Time, rules Rules) int {
	total := 0
	for offset := 0; offset < HorizonDays; offset++ {
		day := time.Date(today.Year(), today.Month(), today.Day()+offset, 0, 0, 0, 0, today.Location())
		if rule, ok := rules[day.Weekday()]; ok && !rule.empty() {
			total += max(rule.Sunrise, 0) + max(rule.Dusk, 0)
		}
	}
	return total
}

func appendSlots(slots []Slot, date time.Time, slotType, title string, center time.Time, n int) []Slot {
	for i := 0; i < n; i++ {
		slots = append(slots, Slot{
			Type:    slotType,
			Title:   title,
			Date:    date,
			Ordinal: i,
			Center:  center,
			StartAt: center.Add(-SlotHalfWidth),
			EndAt:   center.Add(SlotHalfWidth),
		})
	}
	return slots
}

// sunFor returns the solar day of day, extrapolated from the latest earlier fetched day when absent.
func sunFor(window solar.Window, day time.Time) (solar.Day, bool) {
	key := day.Format(solar.DateLayout)
	if d, ok := window.Lookup(key); ok {
		return d, true
	}

	anchor, ok := window.LatestBefore(key)
	if !ok {
		return solar.Day{}, false
	}

	anchorDate, err := time.Parse(solar.DateLayout, anchor.Date)
	if err != nil {
		return solar.Day{}, false
	}
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	shift := time.Duration(target.Sub(anchorDate).Hours()/24) * 24 * time.Hour

	return solar.Day{
		Date:    key,
		Sunrise: anchor.Sunrise.Add(shift),
		Sunset:  anchor.Sunset.Add(shift),
	}, true
}
