// internal/awsops/describe.go
package awsops

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// ErrInvalidSchedule is returned for a malformed rate(...) or cron(...)
// expression.
var ErrInvalidSchedule = errors.New("invalid schedule expression")

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var weekdayAbbrev = map[string]int{"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6}

var rateUnits = map[string]time.Duration{
	"minute": time.Minute, "minutes": time.Minute,
	"hour": time.Hour, "hours": time.Hour,
	"day": 24 * time.Hour, "days": 24 * time.Hour,
}

// ValidateSchedule checks an EventBridge schedule expression.
func ValidateSchedule(expr string) error {
	_, err := DescribeSchedule(expr)
	return err
}

// NextRun returns the first time after from that expr fires, in UTC. A
// rate(...) expression fires one interval after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	from = from.UTC()
	if body, ok := unwrap(expr, "rate"); ok {
		n, every, err := parseRate(body)
		if err != nil {
			return time.Time{}, err
		}
		return from.Add(time.Duration(n) * every), nil
	}
	if body, ok := unwrap(expr, "cron"); ok {
		c, err := parseCron(body)
		if err != nil {
			return time.Time{}, err
		}
		next := c.Next(from)
		if next.IsZero() {
			return time.Time{}, fmt.Errorf("cron(%s): never fires after %s: %w", body, from.Format(time.RFC3339), ErrInvalidSchedule)
		}
		return next, nil
	}
	return time.Time{}, fmt.Errorf("%q: %w", expr, ErrInvalidSchedule)
}

// DescribeSchedule renders an EventBridge schedule expression as text, for
// example "Every Friday at 11:59 PM UTC". Expressions it cannot summarize
// but that are well formed are echoed back.
func DescribeSchedule(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if body, ok := unwrap(expr, "rate"); ok {
		return describeRate(body)
	}
	if body, ok := unwrap(expr, "cron"); ok {
		return describeCron(body)
	}
	return "", fmt.Errorf("%q: %w", expr, ErrInvalidSchedule)
}

func unwrap(expr, kind string) (string, bool) {
	if !strings.HasPrefix(expr, kind+"(") || !strings.HasSuffix(expr, ")") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(expr, kind+"("), ")"), true
}

func parseRate(body string) (int, time.Duration, error) {
	parts := strings.Fields(body)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("rate(%s): %w", body, ErrInvalidSchedule)
	}
	n, err := strconv.Atoi(parts[0])
	every, ok := rateUnits[parts[1]]
	if err != nil || n < 1 || !ok {
		return 0, 0, fmt.Errorf("rate(%s): %w", body, ErrInvalidSchedule)
	}
	if (n == 1) == strings.HasSuffix(parts[1], "s") {
		return 0, 0, fmt.Errorf("rate(%s): unit must agree with value: %w", body, ErrInvalidSchedule)
	}
	return n, every, nil
}

func describeRate(body string) (string, error) {
	n, _, err := parseRate(body)
	if err != nil {
		return "", err
	}
	unit := strings.Fields(body)[1]
	if n == 1 {
		return "Every " + unit, nil
	}
	return fmt.Sprintf("Every %d %s", n, unit), nil
}

// parseCron checks the six EventBridge fields (minute hour day-of-month
// month day-of-week year) and parses them with cronexpr.
func parseCron(body string) (*cronexpr.Expression, error) {
	f := strings.Fields(body)
	if len(f) != 6 {
		return nil, fmt.Errorf("cron(%s): expected 6 fields: %w", body, ErrInvalidSchedule)
	}
	if (f[2] == "?") == (f[4] == "?") {
		return nil, fmt.Errorf("cron(%s): exactly one of day-of-month and day-of-week must be ?: %w", body, ErrInvalidSchedule)
	}

	// cronexpr numbers weekdays 0-6 from Sunday, EventBridge 1-7.
	f[3] = mapValues(f[3], strings.ToLower)
	f[4] = mapValues(f[4], func(v string) string {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 7 {
			return strconv.Itoa(n - 1)
		}
		return strings.ToLower(v)
	})
	c, err := cronexpr.Parse(strings.Join(f, " "))
	if err != nil {
		return nil, fmt.Errorf("cron(%s): %v: %w", body, err, ErrInvalidSchedule)
	}
	return c, nil
}

// mapValues applies fn to every value in a cron field, leaving wildcards
// and the step (/), nth (#) and last (L) modifiers as they are.
func mapValues(field string, fn func(string) string) string {
	items := strings.Split(field, ",")
	for i, it := range items {
		base, mod := it, ""
		if j := strings.IndexAny(it, "/#"); j >= 0 {
			base, mod = it[:j], it[j:]
		}
		if len(base) > 1 && strings.HasSuffix(base, "L") {
			base, mod = strings.TrimSuffix(base, "L"), "L"+mod
		}
		ends := strings.Split(base, "-")
		for k, e := range ends {
			switch e {
			case "", "*", "?", "L":
			default:
				ends[k] = fn(e)
			}
		}
		items[i] = strings.Join(ends, "-") + mod
	}
	return strings.Join(items, ",")
}

func describeCron(body string) (string, error) {
	if _, err := parseCron(body); err != nil {
		return "", err
	}
	f := strings.Fields(body)
	minute, hour, dom, month, dow := f[0], f[1], f[2], f[3], f[4]

	m, errM := strconv.Atoi(minute)
	h, errH := strconv.Atoi(hour)
	if errM != nil || errH != nil || m < 0 || m > 59 || h < 0 || h > 23 || month != "*" {
		return "cron(" + body + ")", nil
	}
	at := " at " + clock(h, m) + " UTC"

	switch {
	case dow == "?" && dom == "*", dom == "?" && dow == "*":
		return "Every day" + at, nil
	case dom == "?":
		days, ok := weekdayList(dow)
		if !ok {
			return "cron(" + body + ")", nil
		}
		return "Every " + days + at, nil
	default:
		d, err := strconv.Atoi(dom)
		if err != nil || d < 1 || d > 31 {
			return "cron(" + body + ")", nil
		}
		return fmt.Sprintf("Day %d of every month%s", d, at), nil
	}
}

func clock(h, m int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}

func weekdayList(field string) (string, bool) {
	if from, to, ok := strings.Cut(field, "-"); ok {
		a, okA := weekday(from)
		b, okB := weekday(to)
		if !okA || !okB {
			return "", false
		}
		return weekdays[a] + " through " + weekdays[b], true
	}

	var names []string
	for _, p := range strings.Split(field, ",") {
		d, ok := weekday(p)
		if !ok {
			return "", false
		}
		names = append(names, weekdays[d])
	}
	return strings.Join(names, ", "), true
}

// weekday accepts 1-7 (Sunday first) or a three letter abbreviation.
func weekday(s string) (int, bool) {
	if d, ok := weekdayAbbrev[strings.ToUpper(s)]; ok {
		return d, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 7 {
		return 0, false
	}
	return n - 1, true
}
