package domain

import "time"

// Progress estimates completion from the planned dates, 0..100.
func Progress(start, end *time.Time, today time.Time) int {
	if start == nil || end == nil {
		return 0
	}
	totalDays := daysBetween(*start, *end)
	if totalDays <= 0 {
		return 100
	}
	elapsed := daysBetween(*start, today)
	switch {
	case elapsed < 0:
		return 0
	case elapsed > totalDays:
		return 100
	}
	return elapsed * 100 / totalDays
}

func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
