package agenda

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// Day is one cell of a month calendar.
type Day struct {
	Date         civil.Date           `json:"date"`
	Appointments []domain.Appointment `json:"appointments"`
}

// MonthView is the occurrence grid of a single calendar month.
type MonthView struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []Day      `json:"days"`
}

// Clone returns a copy that shares no slices with v.
func (v MonthView) Clone() MonthView {
	days := make([]Day, len(v.Days))
	for i, d := range v.Days {
		days[i] = Day{Date: d.Date, Appointments: append(make([]domain.Appointment, 0, len(d.Appointments)), d.Appointments...)}
	}
	v.Days = days
	return v
}

// Month resolves every day of the given month.
func Month(appts []domain.Appointment, year int, month time.Month) MonthView {
	first := civil.Date{Year: year, Month: month, Day: 1}
	next := first.AddMonths(1)

	mv := MonthView{Year: year, Month: month}
	for d := first; d.Before(next); d = d.AddDays(1) {
		mv.Days = append(mv.Days, Day{Date: d, Appointments: AppointmentsOn(appts, d)})
	}
	return mv
}

// Busy returns only the days that have at least one appointment.
func (m MonthView) Busy() []Day {
	out := make([]Day, 0, len(m.Days))
	for _, d := range m.Days {
		if len(d.Appointments) > 0 {
			out = append(out, d)
		}
	}
	return out
}
