package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// MinuteOfDay parses a time_of_day boundary into minutes since midnight.
// Accepts "HH:MM" strings or numeric hours (e.g. 18 or 18.5).
func MinuteOfDay(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing time value")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var hour, minute int
		if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
			return 0, fmt.Errorf("unparsable time string %q", s)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return 0, fmt.Errorf("time %q out of range", s)
		}
		return hour*60 + minute, nil
	}

	var hours float64
	if err := json.Unmarshal(raw, &hours); err == nil {
		if hours < 0 || hours >= 24 {
			return 0, fmt.Errorf("hour %v out of range", hours)
		}
		return int(hours * 60), nil
	}

	return 0, fmt.Errorf("unparsable time value %s", string(raw))
}

// Weekdays parses a day_of_week day set. Accepts weekday names
// (case-insensitive) or numeric indices with the Sunday=0 convention.
func Weekdays(raw json.RawMessage) (map[time.Weekday]bool, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing days")
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("days is not a list")
	}

	days := make(map[time.Weekday]bool, len(entries))
	for _, entry := range entries {
		var name string
		if err := json.Unmarshal(entry, &name); err == nil {
			day, ok := weekdayNames[strings.ToLower(name)]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", name)
			}
			days[day] = true
			continue
		}
		var idx int
		if err := json.Unmarshal(entry, &idx); err == nil {
			if idx < 0 || idx > 6 {
				return nil, fmt.Errorf("weekday index %d out of range", idx)
			}
			days[time.Weekday(idx)] = true
			continue
		}
		return nil, fmt.Errorf("unparsable weekday entry %s", string(entry))
	}
	return days, nil
}

// Compare applies a threshold operator to a sampled value.
func Compare(actual float64, op string, expected float64) bool {
	switch op {
	case ">":
		return actual > expected
	case "<":
		return actual < expected
	case ">=":
		return actual >= expected
	case "<=":
		return actual <= expected
	case "==":
		return actual == expected
	case "!=":
		return actual != expected
	}
	return false
}
