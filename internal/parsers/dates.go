package parsers

import (
	"strconv"
	"strings"
	"time"
)

// OFX dates use the form YYYYMMDD[HHMMSS[.sss]][TZ] where TZ is a bracketed
// suffix like [-3:BRT]. Fractional seconds and the timezone suffix carry no
// information the pipeline needs, so both are stripped before parsing.

// ParseOFXDate parses an OFX date string. It returns the zero time and false
// when the value violates any range check; callers skip the record in that
// case rather than guessing.
func ParseOFXDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	// Strip bracketed timezone suffix
	if idx := strings.Index(s, "["); idx >= 0 {
		s = s[:idx]
	}

	// Strip fractional seconds
	if idx := strings.Index(s, "."); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	if len(s) < 8 || !isDigits(s[:8]) {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])

	if year < 1900 || year > 2100 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	if day < 1 || day > daysInMonth(year, month) {
		return time.Time{}, false
	}

	hour, minute, second := 0, 0, 0
	if len(s) >= 14 && isDigits(s[8:14]) {
		hour, _ = strconv.Atoi(s[8:10])
		minute, _ = strconv.Atoi(s[10:12])
		second, _ = strconv.Atoi(s[12:14])

		if hour > 23 || minute > 59 || second > 59 {
			return time.Time{}, false
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func daysInMonth(year, month int) int {
	switch month {
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
