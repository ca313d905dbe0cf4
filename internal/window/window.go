// Package window computes the calendar date ranges the exporter queries,
// expressed in a fixed civil timezone so runs produce identical windows
// regardless of where the process executes.
package window

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Range is an inclusive calendar-date span.
type Range struct {
	From string
	To   string
}

// Label returns the human-readable window name used in report subjects
// and the AI prompt.
func (r Range) Label() string {
	return fmt.Sprintf("Week %s to %s", r.From, r.To)
}

// LastNDays returns [today-(n-1), today] inclusive, where "today" is the
// calendar date of now in loc.
func LastNDays(now time.Time, n int, loc *time.Location) (Range, error) {
	if n < 1 {
		return Range{}, fmt.Errorf("window: days must be >= 1, got %d", n)
	}
	today := now.In(loc)
	from := today.AddDate(0, 0, -(n - 1))
	return Range{From: from.Format(dateLayout), To: today.Format(dateLayout)}, nil
}

// LastCompleteWeek returns the Monday-Sunday span of the week before the
// one containing now. If now falls on e.g. Wednesday 2025-09-10 the
// result is 2025-09-01 to 2025-09-07.
func LastCompleteWeek(now time.Time, loc *time.Location) Range {
	today := now.In(loc)
	// time.Weekday counts Sunday as 0; the vendor week starts on Monday.
	weekday := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -(weekday + 7))
	end := start.AddDate(0, 0, 6)
	return Range{From: start.Format(dateLayout), To: end.Format(dateLayout)}
}
