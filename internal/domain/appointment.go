package domain

// Repeat is the recurrence rule of an appointment.
type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// Appointment is an agenda entry. Date is the first occurrence and the
// anchor every recurrence is evaluated against.
type Appointment struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:mm, 24h
	Repeat        Repeat `json:"repeat"`
	RepeatEndDate string `json:"repeatEndDate,omitempty"` // inclusive
	IsCompleted   bool   `json:"isCompleted"`
}
