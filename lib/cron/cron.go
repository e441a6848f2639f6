// Copyright 2026 The PM Relay Authors
// SPDX-License-Identifier: Apache-2.0

package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// searchHorizon bounds Next for schedules that can never match, such
// as 30 February.
const searchHorizon = 5 * 366 * 24 * time.Hour

var shortcuts = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

// field describes one position of an expression.
type field struct {
	name    string
	low     int
	high    int
	names   []string // names[i] is the value low+i
	sunday7 bool
}

var fields = [5]field{
	{name: "minute", low: 0, high: 59},
	{name: "hour", low: 0, high: 23},
	{name: "day of month", low: 1, high: 31},
	{name: "month", low: 1, high: 12,
		names: []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}},
	{name: "day of week", low: 0, high: 6, sunday7: true,
		names: []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}},
}

// set is a bitmask of the values a field allows.
type set uint64

func (s set) contains(value int) bool { return s&(1<<value) != 0 }

// Schedule is a parsed expression evaluated in one location.
type Schedule struct {
	minute, hour, day, month, weekday set
	location                          *time.Location
}

// Parse parses expression as UTC wall-clock times.
func Parse(expression string) (Schedule, error) {
	return ParseInLocation(expression, time.UTC)
}

// ParseInLocation parses expression as wall-clock times in location.
// A nil location is UTC.
func ParseInLocation(expression string, location *time.Location) (Schedule, error) {
	expression = strings.TrimSpace(expression)
	if expanded, ok := shortcuts[strings.ToLower(expression)]; ok {
		expression = expanded
	} else if strings.HasPrefix(expression, "@") {
		return Schedule{}, fmt.Errorf("cron: unknown shortcut %q", expression)
	}

	parts := strings.Fields(expression)
	if len(parts) != len(fields) {
		return Schedule{}, fmt.Errorf("cron: %q has %d fields, want 5", expression, len(parts))
	}

	var sets [5]set
	for index, part := range parts {
		parsed, err := fields[index].parse(part)
		if err != nil {
			return Schedule{}, fmt.Errorf("cron: %s: %w", fields[index].name, err)
		}
		sets[index] = parsed
	}

	schedule := Schedule{minute: sets[0], hour: sets[1], day: sets[2], month: sets[3], weekday: sets[4]}
	return schedule.In(location), nil
}

// In returns s evaluated in location. A nil location is UTC.
func (s Schedule) In(location *time.Location) Schedule {
	if location == nil {
		location = time.UTC
	}
	s.location = location
	return s
}

// Location is where the schedule's wall-clock times are read.
func (s Schedule) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

// Next returns the first matching minute strictly after t, in the
// schedule's location. Wall-clock times skipped by a DST transition
// never match.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	location := s.Location()
	start := t.In(location)
	candidate := start.Truncate(time.Minute).Add(time.Minute)
	deadline := start.Add(searchHorizon)

	for candidate.Before(deadline) {
		year, month, day := candidate.Date()
		switch {
		case !s.month.contains(int(month)):
			candidate = time.Date(year, month+1, 1, 0, 0, 0, 0, location)
		case !s.day.contains(day) || !s.weekday.contains(int(candidate.Weekday())):
			candidate = time.Date(year, month, day+1, 0, 0, 0, 0, location)
		case !s.hour.contains(candidate.Hour()):
			following := time.Date(year, month, day, candidate.Hour()+1, 0, 0, 0, location)
			if !following.After(candidate) {
				// Repeated hour at a DST fall-back.
				following = candidate.Truncate(time.Hour).Add(time.Hour)
			}
			candidate = following
		case !s.minute.contains(candidate.Minute()):
			candidate = candidate.Add(time.Minute)
		default:
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("cron: schedule never matches after %s", t.Format(time.RFC3339))
}

func (f field) parse(text string) (set, error) {
	var result set
	for _, term := range strings.Split(text, ",") {
		termSet, err := f.parseTerm(term)
		if err != nil {
			return 0, err
		}
		result |= termSet
	}
	return result, nil
}

func (f field) parseTerm(term string) (set, error) {
	rangeText, stepText, hasStep := strings.Cut(term, "/")
	step := 1
	if hasStep {
		var err error
		step, err = strconv.Atoi(stepText)
		if err != nil || step < 1 {
			return 0, fmt.Errorf("bad step %q in %q", stepText, term)
		}
	}

	high := f.high
	if f.sunday7 {
		high = 7
	}

	first, last := f.low, high
	switch lowText, highText, isRange := strings.Cut(rangeText, "-"); {
	case rangeText == "*":
	case isRange:
		var err error
		if first, err = f.value(lowText); err != nil {
			return 0, err
		}
		if last, err = f.value(highText); err != nil {
			return 0, err
		}
		if first > last {
			return 0, fmt.Errorf("range %q runs backwards", rangeText)
		}
	default:
		value, err := f.value(rangeText)
		if err != nil {
			return 0, err
		}
		first = value
		if hasStep {
			last = high
		} else {
			last = value
		}
	}

	var result set
	for value := first; value <= last; value += step {
		if f.sunday7 && value == 7 {
			result |= 1
			break
		}
		result |= 1 << value
	}
	return result, nil
}

// value parses a number or name and range-checks it.
func (f field) value(text string) (int, error) {
	lower := strings.ToLower(text)
	for index, name := range f.names {
		if lower == name {
			return f.low + index, nil
		}
	}

	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	high := f.high
	if f.sunday7 {
		high = 7
	}
	if value < f.low || value > high {
		return 0, fmt.Errorf("%d is outside %d-%d", value, f.low, high)
	}
	return value, nil
}
