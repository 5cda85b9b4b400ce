package fetchcore

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	bareTimePattern  = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	monthDayPattern  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
	relativePattern  = regexp.MustCompile(`(?i)^(\d+)\s*(分钟前|minutes?\s+ago|hours?\s+ago|小时前|days?\s+ago|天前|weeks?\s+ago|周前|months?\s+ago|个?月前|years?\s+ago|年前)$`)
	yesterdayPattern = regexp.MustCompile(`(?i)^(昨天|yesterday)\s*(\d{1,2}:\d{2})?$`)
	todayPattern     = regexp.MustCompile(`(?i)^(今天|today)\s*(\d{1,2}:\d{2})?$`)
)

// ExtractDate parses a heterogeneous date string into a timestamp, following
// the fallback chain strategies rely on: ISO-like forms, bare times, partial
// month-day forms, relative phrases, and yesterday/today phrases. Unparseable
// input yields now() and is logged at warn level.
func ExtractDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}

	now := time.Now()

	if m := relativePattern.FindStringSubmatch(raw); m != nil {
		if d, ok := relativeDelta(m[1], m[2]); ok {
			return now.Add(-d)
		}
	}

	if m := yesterdayPattern.FindStringSubmatch(raw); m != nil {
		return combineDay(now.AddDate(0, 0, -1), m[2])
	}

	if m := todayPattern.FindStringSubmatch(raw); m != nil {
		return combineDay(now, m[2])
	}

	if bareTimePattern.MatchString(raw) {
		return combineDay(now, raw)
	}

	if m := monthDayPattern.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		hour, _ := strconv.Atoi(m[3])
		minute, _ := strconv.Atoi(m[4])
		candidate := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, now.Location())
		if candidate.After(now.Add(24 * time.Hour)) {
			candidate = candidate.AddDate(-1, 0, 0)
		}
		return candidate
	}

	if t, err := dateparse.ParseLocal(raw); err == nil {
		return t
	}

	slog.Warn("unparseable date, falling back to now", slog.String("raw", raw))
	unparseableDateFallbacks.Add(1)
	return now
}

func combineDay(day time.Time, clock string) time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day
	}
	parts := strings.Split(clock, ":")
	hour, minute, second := 0, 0, 0
	if len(parts) >= 1 {
		hour, _ = strconv.Atoi(parts[0])
	}
	if len(parts) >= 2 {
		minute, _ = strconv.Atoi(parts[1])
	}
	if len(parts) >= 3 {
		second, _ = strconv.Atoi(parts[2])
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, day.Location())
}

func relativeDelta(amount, unit string) (time.Duration, bool) {
	n, err := strconv.Atoi(amount)
	if err != nil {
		return 0, false
	}
	unit = strings.ToLower(unit)

	switch {
	case strings.Contains(unit, "分钟") || strings.Contains(unit, "minute"):
		return time.Duration(n) * time.Minute, true
	case strings.Contains(unit, "小时") || strings.Contains(unit, "hour"):
		return time.Duration(n) * time.Hour, true
	case strings.Contains(unit, "周") || strings.Contains(unit, "week"):
		return time.Duration(n) * 7 * 24 * time.Hour, true
	case strings.Contains(unit, "天") || strings.Contains(unit, "day"):
		return time.Duration(n) * 24 * time.Hour, true
	case strings.Contains(unit, "月") || strings.Contains(unit, "month"):
		return time.Duration(n) * 30 * 24 * time.Hour, true
	case strings.Contains(unit, "年") || strings.Contains(unit, "year"):
		return time.Duration(n) * 365 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
