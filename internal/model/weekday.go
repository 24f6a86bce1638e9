package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a 7-bit mask, bit 0 = Monday
// through bit 6 = Sunday. The zero value is the empty set.
type WeekdaySet uint8

const allWeekdaysMask = 0x7f

var weekdayNames = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// ErrInvalidWeekday is returned for day indices outside time.Sunday..time.Saturday.
var ErrInvalidWeekday = errors.New("invalid weekday")

func weekdayBit(day time.Weekday) (WeekdaySet, error) {
	if day < time.Sunday || day > time.Saturday {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day))
	}
	// time.Weekday counts from Sunday; shift so Monday is bit 0.
	return WeekdaySet(1) << ((int(day) + 6) % 7), nil
}

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range days {
		if err := s.Add(d); err != nil {
			return 0, err
		}
	}
	return s, nil
}

// Contains reports whether day is in the set. Out-of-range days are never contained.
func (s WeekdaySet) Contains(day time.Weekday) bool {
	bit, err := weekdayBit(day)
	if err != nil {
		return false
	}
	return s&bit != 0
}

func (s *WeekdaySet) Add(day time.Weekday) error {
	bit, err := weekdayBit(day)
	if err != nil {
		return err
	}
	*s |= bit
	return nil
}

func (s *WeekdaySet) Remove(day time.Weekday) error {
	bit, err := weekdayBit(day)
	if err != nil {
		return err
	}
	*s &^= bit
	return nil
}

func (s WeekdaySet) IsEmpty() bool {
	return s&allWeekdaysMask == 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for m := s & allWeekdaysMask; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// Days lists the members in week order beginning at weekStart.
func (s WeekdaySet) Days(weekStart time.Weekday) []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for i := 0; i < 7; i++ {
		d := time.Weekday((int(weekStart) + i) % 7)
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// Bitmask encodes the set with bit 0 = weekStart. With weekStart Monday the
// result equals the canonical storage layout.
func (s WeekdaySet) Bitmask(weekStart time.Weekday) uint8 {
	var mask uint8
	for i := 0; i < 7; i++ {
		if s.Contains(time.Weekday((int(weekStart) + i) % 7)) {
			mask |= 1 << i
		}
	}
	return mask
}

// WeekdaySetFromBitmask decodes a mask produced by Bitmask with the same weekStart.
func WeekdaySetFromBitmask(mask uint8, weekStart time.Weekday) (WeekdaySet, error) {
	if mask&^allWeekdaysMask != 0 {
		return 0, fmt.Errorf("%w: bitmask %#x exceeds 7 bits", ErrInvalidWeekday, mask)
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return 0, fmt.Errorf("%w: week start %d", ErrInvalidWeekday, int(weekStart))
	}
	var s WeekdaySet
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			_ = s.Add(time.Weekday((int(weekStart) + i) % 7))
		}
	}
	return s, nil
}

// ParseWeekday accepts three-letter or full English day names, case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		day := time.Weekday((i + 1) % 7)
		if key == n || key == strings.ToLower(day.String()) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// ParseWeekStart accepts the days a week may start on: Monday, Sunday or
// Saturday. Empty means Monday.
func ParseWeekStart(name string) (time.Weekday, error) {
	if strings.TrimSpace(name) == "" {
		return time.Monday, nil
	}
	day, err := ParseWeekday(name)
	if err != nil {
		return 0, err
	}
	switch day {
	case time.Monday, time.Sunday, time.Saturday:
		return day, nil
	}
	return 0, fmt.Errorf("%w: week cannot start on %s", ErrInvalidWeekday, day)
}

// Names lists the members' short names in week order beginning at weekStart.
func (s WeekdaySet) Names(weekStart time.Weekday) []string {
	days := s.Days(weekStart)
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, weekdayNames[(int(d)+6)%7])
	}
	return names
}

func (s WeekdaySet) String() string {
	return strings.Join(s.Names(time.Monday), ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names(time.Monday))
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("weekdays must be a list of day names: %w", err)
	}
	var set WeekdaySet
	for _, name := range names {
		d, err := ParseWeekday(name)
		if err != nil {
			return err
		}
		_ = set.Add(d)
	}
	*s = set
	return nil
}
