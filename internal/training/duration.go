package training

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDuration is returned for strings that are not "H:MM:SS"
var ErrMalformedDuration = errors.New("malformed duration")

// Rounding selects how fractional minutes are reported by Minutes
type Rounding int

const (
	// Exact keeps sub-minute precision
	Exact Rounding = iota
	// Truncate drops the seconds component, used for chart bucketing
	Truncate
)

// ParseDuration parses "H:MM:SS" or "HH:MM:SS"
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
	}
	var fields [3]int
	for i, p := range parts {
		if p == "" || p[0] < '0' || p[0] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
		}
		fields[i] = n
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if m > 59 || sec > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// Minutes converts a duration string to minutes using the given rounding
func Minutes(s string, r Rounding) (float64, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if r == Truncate {
		return math.Floor(d.Minutes()), nil
	}
	return d.Minutes(), nil
}

// TimeToMinutes returns hours*60 + minutes; seconds are discarded.
func TimeToMinutes(s string) (int, error) {
	m, err := Minutes(s, Truncate)
	if err != nil {
		return 0, err
	}
	return int(m), nil
}

// TimeStringToMinutes returns minutes including the seconds fraction
func TimeStringToMinutes(s string) (float64, error) {
	return Minutes(s, Exact)
}

// FormatMinutes renders minutes as "Nh Mm", or "Mm" below an hour
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatDuration renders d as "H:MM:SS"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int64(d.Round(time.Second) / time.Second)
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
