package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// LoopSchedule returns the cron expression's schedule when expr is set
// (standard five fields or descriptors such as "@hourly" and "@every 90s"),
// otherwise a fixed delay of interval.
func LoopSchedule(expr string, interval time.Duration) (cron.Schedule, error) {
	if expr = strings.TrimSpace(expr); expr != "" {
		s, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("parse loop schedule %q: %w", expr, err)
		}
		return s, nil
	}
	return cron.Every(interval), nil
}
