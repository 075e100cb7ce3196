// Package agenda resolves when appointments happen.
package agenda

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// OccursOn reports whether appointment a has an occurrence on target.
//
// Nothing occurs before the anchor date or after an inclusive repeatEndDate.
// A monthly appointment anchored on a day the target month lacks (the 31st
// in April, say) has no occurrence that month.
func OccursOn(a domain.Appointment, target civil.Date) bool {
	anchor, err := civil.ParseDate(a.Date)
	if err != nil {
		return false
	}
	if target.Before(anchor) {
		return false
	}
	if a.RepeatEndDate != "" {
		if end, err := civil.ParseDate(a.RepeatEndDate); err == nil && target.After(end) {
			return false
		}
	}

	switch a.Repeat {
	case domain.RepeatDaily:
		return true
	case domain.RepeatWeekly:
		return target.Weekday() == anchor.Weekday()
	case domain.RepeatMonthly:
		return target.Day == anchor.Day
	default:
		return target == anchor
	}
}

// AppointmentsOn returns the appointments occurring on target ordered by time of day.
func AppointmentsOn(appts []domain.Appointment, target civil.Date) []domain.Appointment {
	out := make([]domain.Appointment, 0)
	for _, a := range appts {
		if OccursOn(a, target) {
			out = append(out, a)
		}
	}
	// HH:mm is zero padded, so string order is chronological.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// Upcoming returns up to n appointments whose anchor date is today or later,
// soonest first. Recurrences are not expanded.
func Upcoming(appts []domain.Appointment, today civil.Date, n int) []domain.Appointment {
	from := today.String()
	out := make([]domain.Appointment, 0)
	for _, a := range appts {
		if a.Date >= from {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
