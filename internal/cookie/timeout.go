package cookie

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var timeoutPattern = regexp.MustCompile(`^([0-9]+)([YMwdhms])$`)

var timeoutUnits = map[string]int64{
	"Y": 365 * 24 * 60 * 60,
	"M": 30 * 24 * 60 * 60,
	"w": 7 * 24 * 60 * 60,
	"d": 24 * 60 * 60,
	"h": 60 * 60,
	"m": 60,
	"s": 1,
}

// ParseTimeout converts a timeout such as "5d" or "90s" into seconds.
// Units are Y (365 days), M (30 days), w, d, h, m and s.
func ParseTimeout(timeout string) (int64, error) {
	m := timeoutPattern.FindStringSubmatch(timeout)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, timeout)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, timeout)
	}
	unit := timeoutUnits[m[2]]
	if n > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTimeout, timeout)
	}
	return n * unit, nil
}

// ParseDuration is ParseTimeout expressed as a time.Duration. Timeouts
// beyond the range of time.Duration (about 292 years) are rejected.
func ParseDuration(timeout string) (time.Duration, error) {
	secs, err := ParseTimeout(timeout)
	if err != nil {
		return 0, err
	}
	if secs > math.MaxInt64/int64(time.Second) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidTimeout, timeout)
	}
	return time.Duration(secs) * time.Second, nil
}
