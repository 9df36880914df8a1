// Package delay parses wait-node configurations into durations.
package delay

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDuration applies when a wait node carries no recognizable value.
const DefaultDuration = 5 * time.Minute

var (
	isoPattern       = regexp.MustCompile(`(?i)^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
	shorthandPattern = regexp.MustCompile(`^(\d+)\s*([smhd])$`)
)

// Parse accepts either an ISO-8601-style duration (P1DT2H30M, any component
// optional) or a shorthand token (5m, 2h, 30s, 1d). The boolean reports
// whether the input was recognized.
func Parse(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if m := isoPattern.FindStringSubmatch(value); m != nil {
		days := atoi(m[1])
		hours := atoi(m[2])
		minutes := atoi(m[3])
		seconds := atoi(m[4])

		total := time.Duration(days)*24*time.Hour +
			time.Duration(hours)*time.Hour +
			time.Duration(minutes)*time.Minute +
			time.Duration(seconds)*time.Second
		if total > 0 {
			return total, true
		}

		return 0, false
	}

	if m := shorthandPattern.FindStringSubmatch(strings.ToLower(value)); m != nil {
		n := atoi(m[1])
		if n == 0 {
			return 0, false
		}

		switch m[2] {
		case "s":
			return time.Duration(n) * time.Second, true
		case "m":
			return time.Duration(n) * time.Minute, true
		case "h":
			return time.Duration(n) * time.Hour, true
		case "d":
			return time.Duration(n) * 24 * time.Hour, true
		}
	}

	return 0, false
}

// FromConfig extracts the wait duration from a node config, checking the
// keys wait nodes are written with. Numeric values are minutes. Anything
// unrecognizable falls back to DefaultDuration.
func FromConfig(config map[string]any) time.Duration {
	for _, key := range []string{"duration", "delay", "wait"} {
		switch v := config[key].(type) {
		case string:
			if d, ok := Parse(v); ok {
				return d
			}
		case float64:
			if v > 0 {
				return time.Duration(v) * time.Minute
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Minute
			}
		}
	}

	return DefaultDuration
}

func atoi(s string) int {
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}
