package game

import (
	"fmt"
	"strconv"
	"strings"
)

const MinutesPerDay = 1440

// TimeConfig drives the minute-accurate clock: named slot windows, named
// time-cost categories, and per-action-kind defaults.
type TimeConfig struct {
	// StartWeekday is the weekday of day 1 (must appear in WeekDays).
	StartWeekday string   `yaml:"start_weekday"`
	WeekDays     []string `yaml:"week_days"`

	Slots []SlotWindow `yaml:"slots"`

	// Categories map a named cost ("brief", "short", "scene") to minutes.
	Categories map[string]int `yaml:"categories"`

	// Defaults resolve an action kind to minutes when neither the action
	// nor the node specifies a cost. Special keys: "default" (final
	// fallback) and "cap_per_visit" (conversation cap per node visit).
	Defaults map[string]int `yaml:"defaults"`
}

// SlotWindow names the slot that covers [Start, End) minutes of day. A
// window may wrap midnight (start > end), e.g. night 22:00-06:00.
type SlotWindow struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"` // "HH:MM"
	End   string `yaml:"end"`   // "HH:MM" exclusive
}

// ParseHHMM converts "HH:MM" to minutes of day.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes of day as "HH:MM".
func FormatHHMM(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlotFor returns the slot window containing the given minutes of day, or
// "" when no windows are configured or none match.
func (tc *TimeConfig) SlotFor(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	for _, w := range tc.Slots {
		start, err1 := ParseHHMM(w.Start)
		end, err2 := ParseHHMM(w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start <= end {
			if minutes >= start && minutes < end {
				return w.Name
			}
		} else if minutes >= start || minutes < end { // wraps midnight
			return w.Name
		}
	}
	return ""
}

// SlotEnd returns the end minute (exclusive) of the slot containing the
// given minutes of day, accounting for windows that wrap midnight. The
// second return is false when no window matches.
func (tc *TimeConfig) SlotEnd(minutes int) (int, bool) {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	for _, w := range tc.Slots {
		start, err1 := ParseHHMM(w.Start)
		end, err2 := ParseHHMM(w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start <= end {
			if minutes >= start && minutes < end {
				return end, true
			}
		} else if minutes >= start || minutes < end {
			return end, true
		}
	}
	return 0, false
}

// SlotLength returns the length in minutes of the named slot, or 0.
func (tc *TimeConfig) SlotLength(name string) int {
	for _, w := range tc.Slots {
		if w.Name != name {
			continue
		}
		start, err1 := ParseHHMM(w.Start)
		end, err2 := ParseHHMM(w.End)
		if err1 != nil || err2 != nil {
			return 0
		}
		if start <= end {
			return end - start
		}
		return MinutesPerDay - start + end
	}
	return 0
}

// Weekday derives the weekday name for a day number (day 1 falls on
// StartWeekday). Empty when no week is configured.
func (tc *TimeConfig) Weekday(day int) string {
	if len(tc.WeekDays) == 0 {
		return ""
	}
	offset := 0
	for i, w := range tc.WeekDays {
		if w == tc.StartWeekday {
			offset = i
			break
		}
	}
	idx := (offset + day - 1) % len(tc.WeekDays)
	if idx < 0 {
		idx += len(tc.WeekDays)
	}
	return tc.WeekDays[idx]
}

// DefaultMinutes resolves time.defaults for an action kind, falling back to
// the "default" key.
func (tc *TimeConfig) DefaultMinutes(kind string) int {
	if m, ok := tc.Defaults[kind]; ok {
		return m
	}
	return tc.Defaults["default"]
}

// CapPerVisit returns the conversation cap from time.defaults, 0 = none.
func (tc *TimeConfig) CapPerVisit() int {
	return tc.Defaults["cap_per_visit"]
}
