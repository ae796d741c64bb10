package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ParseCountdown converts MM:SS into total seconds. Minutes may exceed 59.
func ParseCountdown(s string) (int, error) {
	minutes, seconds, ok := splitPair(s)
	if !ok || seconds > 59 {
		return 0, ErrInvalidTime
	}
	return minutes*60 + seconds, nil
}

// FormatCountdown renders total seconds as zero-padded MM:SS.
func FormatCountdown(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// NormalizeCountdown validates s and returns its canonical MM:SS form.
func NormalizeCountdown(s string) (string, error) {
	secs, err := ParseCountdown(s)
	if err != nil {
		return "", err
	}
	return FormatCountdown(secs), nil
}

// NormalizeAlarm validates an HH:MM alarm time and an optional YYYY-MM-DD
// date, returning both in canonical form.
func NormalizeAlarm(at, date string) (string, string, error) {
	hours, minutes, ok := splitPair(at)
	if !ok || hours > 23 || minutes > 59 {
		return "", "", ErrInvalidAlarm
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return "", "", ErrInvalidAlarm
		}
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes), date, nil
}

func splitPair(s string) (int, int, bool) {
	left, right, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	a, ok := digits(left)
	if !ok {
		return 0, 0, false
	}
	b, ok := digits(right)
	if !ok {
		return 0, 0, false
	}
	return a, b, true
}

func digits(s string) (int, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
