package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
)

// cronParser accepts six fields, seconds first, plus descriptors such as
// "@hourly" and "@every 5m".
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron parses a cron expression with a leading seconds field:
//
//	"*/10 * * * * *"  - every 10 seconds
//	"0 30 14 * * 1-5" - 2:30 PM on weekdays
//	"0 0 9 1 * *"     - 9:00 AM on the 1st of every month
//	"@hourly"         - every hour
func ParseCron(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, gferrors.NewValidationError(module, "cron", expr, "cannot be empty")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// NextRuns returns the next n activation times of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = schedule.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs, nil
}

// inLocation pins expr to loc unless it already names a time zone.
func inLocation(expr string, loc *time.Location) string {
	if expr == "" || loc == nil || loc == time.Local {
		return expr
	}
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return expr
	}
	return "CRON_TZ=" + loc.String() + " " + expr
}
