// Package metrics implements the portfolio metrics core (C5):
// time-aligned returns, performance, risk, drawdown, and
// position/activity/exposure analytics.
package metrics

import "time"

// dateRange generates the inclusive [from, to] calendar used to align
// the ledger. Business-day mode skips Saturdays and Sundays.
func dateRange(from, to time.Time, businessDaysOnly bool) []time.Time {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return nil
	}
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if businessDaysOnly {
			wd := d.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

func dayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
