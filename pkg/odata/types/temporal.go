package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Date holds an Edm.Date, a calendar day without time or offset
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the calendar day of t in its own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay holds an Edm.TimeOfDay with nanosecond precision
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

func NewTimeOfDay(hour, minute, second, nanosecond int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 ||
		nanosecond < 0 || nanosecond >= int(time.Second) {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %02d:%02d:%02d.%09d", hour, minute, second, nanosecond)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second, Nanosecond: nanosecond}, nil
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	clock, fraction, hasFraction := strings.Cut(s, ".")

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}

	fields := [3]int{}
	for i, p := range parts {
		n, ok := parseDigits(p)
		if !ok || len(p) != 2 {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		fields[i] = int(n)
	}

	nanos := 0
	if hasFraction {
		if len(parts) != 3 || fraction == "" || len(fraction) > 9 {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		n, ok := parseDigits(fraction + strings.Repeat("0", 9-len(fraction)))
		if !ok {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		nanos = int(n)
	}

	return NewTimeOfDay(fields[0], fields[1], fields[2], nanos)
}

func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond != 0 {
		s += "." + strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond), "0")
	}
	return s
}

const (
	day         = 24 * time.Hour
	maxDuration = time.Duration(math.MaxInt64)
)

// parseDigits accepts unsigned decimal digits only, unlike strconv which allows a sign
func parseDigits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// FormatDuration renders d as an xsd:dayTimeDuration, e.g. P1DT2H30M or -PT0.5S
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	var sb strings.Builder

	u := uint64(d)
	if d < 0 {
		sb.WriteByte('-')
		u = -u
	}
	sb.WriteByte('P')

	days := u / uint64(day)
	u %= uint64(day)
	if days > 0 {
		sb.WriteString(strconv.FormatUint(days, 10))
		sb.WriteByte('D')
	}
	if u == 0 {
		return sb.String()
	}

	sb.WriteByte('T')

	hours := u / uint64(time.Hour)
	u %= uint64(time.Hour)
	minutes := u / uint64(time.Minute)
	u %= uint64(time.Minute)
	seconds := u / uint64(time.Second)
	nanos := u % uint64(time.Second)

	if hours > 0 {
		sb.WriteString(strconv.FormatUint(hours, 10))
		sb.WriteByte('H')
	}
	if minutes > 0 {
		sb.WriteString(strconv.FormatUint(minutes, 10))
		sb.WriteByte('M')
	}
	if seconds > 0 || nanos > 0 {
		sb.WriteString(strconv.FormatUint(seconds, 10))
		if nanos > 0 {
			sb.WriteByte('.')
			sb.WriteString(strings.TrimRight(fmt.Sprintf("%09d", nanos), "0"))
		}
		sb.WriteByte('S')
	}

	return sb.String()
}

// ParseDuration is the inverse of FormatDuration. Year and month designators are
// rejected since they have no fixed length.
func ParseDuration(s string) (time.Duration, error) {
	invalid := func(reason string) (time.Duration, error) {
		return 0, fmt.Errorf("invalid duration %q: %s", s, reason)
	}

	rest := s
	negative := strings.HasPrefix(rest, "-")
	if negative {
		rest = rest[1:]
	}

	if !strings.HasPrefix(rest, "P") {
		return invalid("missing P designator")
	}
	rest = rest[1:]

	datePart, timePart, hasTime := strings.Cut(rest, "T")
	if datePart == "" && timePart == "" {
		return invalid("no components")
	}

	var total time.Duration

	if datePart != "" {
		if !strings.HasSuffix(datePart, "D") {
			return invalid("only the D designator is allowed before T")
		}
		days, ok := parseDigits(datePart[:len(datePart)-1])
		if !ok {
			return invalid("bad day count")
		}
		if days > int64(maxDuration/day) {
			return invalid("out of range")
		}
		total = time.Duration(days) * day
	}

	if hasTime {
		if timePart == "" {
			return invalid("empty time component")
		}

		rank := 0
		for timePart != "" {
			idx := strings.IndexAny(timePart, "HMS")
			if idx <= 0 {
				return invalid("malformed time component")
			}

			number, designator := timePart[:idx], timePart[idx]
			timePart = timePart[idx+1:]

			var unit time.Duration
			var next int

			switch designator {
			case 'H':
				unit, next = time.Hour, 1
			case 'M':
				unit, next = time.Minute, 2
			case 'S':
				unit, next = time.Second, 3
			}

			if next <= rank {
				return invalid("designators out of order")
			}
			rank = next

			whole, fraction, hasFraction := strings.Cut(number, ".")
			if hasFraction && designator != 'S' {
				return invalid("fractions are only allowed for seconds")
			}

			n, ok := parseDigits(whole)
			if !ok {
				return invalid("bad number")
			}
			if n > int64(maxDuration/unit) || total > maxDuration-time.Duration(n)*unit {
				return invalid("out of range")
			}
			total += time.Duration(n) * unit

			if hasFraction {
				if len(fraction) > 9 {
					return invalid("bad fraction")
				}
				f, ok := parseDigits(fraction + strings.Repeat("0", 9-len(fraction)))
				if !ok || fraction == "" {
					return invalid("bad fraction")
				}
				if total > maxDuration-time.Duration(f) {
					return invalid("out of range")
				}
				total += time.Duration(f)
			}
		}
	}

	if negative {
		total = -total
	}

	return total, nil
}
