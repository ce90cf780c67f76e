package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a comma-separated list of
// time.Weekday values (0=Sunday).
type WeekdaySet []time.Weekday

func (s WeekdaySet) Contains(d time.Weekday) bool {
	for _, wd := range s {
		if wd == d {
			return true
		}
	}
	return false
}

func (s WeekdaySet) Value() (driver.Value, error) {
	parts := make([]string, 0, len(s))
	for _, wd := range s {
		parts = append(parts, strconv.Itoa(int(wd)))
	}
	return strings.Join(parts, ","), nil
}

func (s *WeekdaySet) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into WeekdaySet", src)
	}

	if raw == "" {
		*s = nil
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("invalid weekday %q: %w", p, err)
		}
		if n < 0 || n > 6 {
			return fmt.Errorf("weekday %d out of range", n)
		}
		out = append(out, time.Weekday(n))
	}
	*s = out
	return nil
}
