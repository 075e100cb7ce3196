package agenda

import (
	"testing"
	"time"

	"github.com/dvloznov/financas-voz/internal/domain"
)

func TestMonth(t *testing.T) {
	appts := []domain.Appointment{
		{ID: "gym", Date: "2024-01-01", Time: "07:00", Repeat: domain.RepeatWeekly},
		{ID: "rent", Date: "2023-12-31", Time: "09:00", Repeat: domain.RepeatMonthly},
	}

	mv := Month(appts, 2024, time.February)
	if len(mv.Days) != 29 {
		t.Fatalf("February 2024 has %d days, want 29", len(mv.Days))
	}
	if mv.Days[0].Date.Day != 1 || mv.Days[28].Date.Day != 29 {
		t.Errorf("unexpected day range %s..%s", mv.Days[0].Date, mv.Days[28].Date)
	}

	busy := mv.Busy()
	// Mondays in February 2024: 5, 12, 19, 26. Rent on the 31st never lands.
	if len(busy) != 4 {
		t.Fatalf("Busy() = %d days, want 4", len(busy))
	}
	for _, d := range busy {
		if d.Date.Weekday() != time.Monday {
			t.Errorf("%s is not a Monday", d.Date)
		}
		if len(d.Appointments) != 1 || d.Appointments[0].ID != "gym" {
			t.Errorf("%s appointments = %+v, want only gym", d.Date, d.Appointments)
		}
	}
}

func TestMonthCache(t *testing.T) {
	c, err := NewMonthCache(8)
	if err != nil {
		t.Fatalf("NewMonthCache() error = %v", err)
	}
	defer c.Close()

	appts := []domain.Appointment{{ID: "a", Date: "2024-05-02", Time: "10:00"}}
	first := c.Month(1, appts, 2024, time.May)
	c.Wait()

	// Same revision: the cached view is served even if the slice changed.
	second := c.Month(1, nil, 2024, time.May)
	if len(second.Busy()) != len(first.Busy()) {
		t.Errorf("cached month has %d busy days, want %d", len(second.Busy()), len(first.Busy()))
	}

	// New revision: resolved again.
	third := c.Month(2, nil, 2024, time.May)
	if len(third.Busy()) != 0 {
		t.Errorf("new revision busy days = %d, want 0", len(third.Busy()))
	}
}

func TestMonthCache_ReturnsCopies(t *testing.T) {
	c, err := NewMonthCache(8)
	if err != nil {
		t.Fatalf("NewMonthCache() error = %v", err)
	}
	defer c.Close()

	appts := []domain.Appointment{{ID: "a", Title: "Dentista", Date: "2024-05-02", Time: "10:00"}}
	first := c.Month(1, appts, 2024, time.May)
	c.Wait()

	first.Days[1].Appointments[0].Title = "mudado"
	first.Days = first.Days[:3]

	again := c.Month(1, appts, 2024, time.May)
	if len(again.Days) != 31 {
		t.Fatalf("cached month has %d days, want 31", len(again.Days))
	}
	if got := again.Days[1].Appointments[0].Title; got != "Dentista" {
		t.Errorf("cached title = %q, want Dentista", got)
	}
	again.Days[1].Appointments[0].Title = "outra"
	if got := c.Month(1, appts, 2024, time.May).Days[1].Appointments[0].Title; got != "Dentista" {
		t.Errorf("cached title after editing a hit = %q, want Dentista", got)
	}
}
