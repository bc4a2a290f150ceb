package dispatch

import (
	"time"

	"github.com/gorhill/cronexpr"
)

// buildDue reports whether the plan for date may be built at now.
// Supports "@daily" (any time of day), "@hourly" (same), and standard
// 5-field cron expressions, where the plan becomes buildable once the
// first firing of the expression within the day has passed. An
// unparseable expression falls back to @daily.
func buildDue(cronSpec, date string, now time.Time) bool {
	switch cronSpec {
	case "", "@daily", "@hourly":
		return true
	}
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return true
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return true
	}
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	first := expr.Next(startOfDay)
	if first.IsZero() {
		return true
	}
	return !first.After(now)
}
