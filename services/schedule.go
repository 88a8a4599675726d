package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"train-live-viewer/models"
)

const (
	queryDateLayout = "2006-01-02"
	// maxDaysAhead is how far in the future a schedule date may be
	maxDaysAhead = 14
)

// ParseHHMM turns an upstream "HH:MM" stop time into the integer HHMM
func ParseHHMM(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.Replace(s, ":", "", 1))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseClock strictly parses a user supplied "HH:MM" bound
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*100 + t.Minute(), true
}

// ParseTimeWindow builds a window from optional "HH:MM" bounds
func ParseTimeWindow(start, end string) (models.TimeWindow, error) {
	var w models.TimeWindow
	if start != "" {
		v, ok := parseClock(start)
		if !ok {
			return w, fmt.Errorf("invalid start time: %q", start)
		}
		w.Start = &v
	}
	if end != "" {
		v, ok := parseClock(end)
		if !ok {
			return w, fmt.Errorf("invalid end time: %q", end)
		}
		w.End = &v
	}
	return w, nil
}

func departureAt(trip models.Trip, stationID string) (int, bool) {
	stop, ok := trip.StopAt(stationID)
	if !ok {
		return 0, false
	}
	return ParseHHMM(stop.DepartureTime)
}

// FilterByWindow keeps the trips whose departure from the origin falls in
// the window. Trips without a departure at the origin are dropped unless
// the window is open.
func FilterByWindow(trips []models.Trip, originID string, w models.TimeWindow) []models.Trip {
	out := make([]models.Trip, 0, len(trips))
	if w.IsOpen() {
		return append(out, trips...)
	}
	for _, trip := range trips {
		dep, ok := departureAt(trip, originID)
		if !ok {
			continue
		}
		if w.Contains(dep) {
			out = append(out, trip)
		}
	}
	return out
}

// SortByDeparture returns the trips ordered by departure from the origin.
// Trips without a departure there compare equal to everything and keep
// their input position relative to each other.
func SortByDeparture(trips []models.Trip, originID string) []models.Trip {
	out := append([]models.Trip(nil), trips...)
	sort.SliceStable(out, func(i, j int) bool {
		a, okA := departureAt(out[i], originID)
		b, okB := departureAt(out[j], originID)
		if !okA || !okB {
			return false
		}
		return a < b
	})
	return out
}

// ValidateQueryDate checks that date lies between yesterday and two weeks
// from today in loc.
func ValidateQueryDate(date string, now time.Time, loc *time.Location) error {
	d, err := time.ParseInLocation(queryDateLayout, date, loc)
	if err != nil {
		return fmt.Errorf("invalid date: %q", date)
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -1)
	last := today.AddDate(0, 0, maxDaysAhead)
	if d.Before(first) || d.After(last) {
		return fmt.Errorf("%w: %s not between %s and %s", ErrDateOutOfRange, date,
			first.Format(queryDateLayout), last.Format(queryDateLayout))
	}
	return nil
}
