package tasks

import (
	"time"

	"taskflow/internal/models"
)

// Date helpers compare calendar days only. A due date is a date, so its own
// year, month and day are read and placed in now's location.

func IsOverdue(due, now time.Time) bool {
	return dayOf(due, now).Before(models.NormalizeDate(now))
}

func IsDueToday(due, now time.Time) bool {
	return dayOf(due, now).Equal(models.NormalizeDate(now))
}

// DaysUntilDue is positive for future dates and negative for past ones.
func DaysUntilDue(due, now time.Time) int {
	d := utcDay(dayOf(due, now))
	today := utcDay(now)
	return int(d.Sub(today) / (24 * time.Hour))
}

// utcDay maps a calendar date onto UTC midnight so day differences are
// exact multiples of 24h regardless of DST.
func utcDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayOf(t, now time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
