package handlers

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/agenda"
	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/state"
)

// AgendaHandler handles appointment and calendar endpoints.
type AgendaHandler struct {
	store  *state.Store
	months *agenda.MonthCache
	loc    *time.Location
	log    zerolog.Logger

	Now func() time.Time
}

// NewAgendaHandler creates a new agenda handler. months may be nil.
func NewAgendaHandler(store *state.Store, months *agenda.MonthCache, loc *time.Location, log zerolog.Logger) *AgendaHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AgendaHandler{store: store, months: months, loc: loc, log: log, Now: time.Now}
}

func (h *AgendaHandler) today() civil.Date {
	return civil.DateOf(h.Now().In(h.loc))
}

// ListAppointments handles GET /api/appointments
func (h *AgendaHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts := h.store.Snapshot().Appointments
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appts,
		"count":        len(appts),
	})
}

// ToggleCompleted handles POST /api/appointments/{id}/complete
func (h *AgendaHandler) ToggleCompleted(w http.ResponseWriter, r *http.Request) {
	appt, err := h.store.ToggleCompleted(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, h.log, err, "Appointment not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, appt)
}

// DeleteAppointment handles DELETE /api/appointments/{id}
func (h *AgendaHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveAppointment(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, h.log, err, "Appointment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Day handles GET /api/agenda?date=YYYY-MM-DD, defaulting to today.
func (h *AgendaHandler) Day(w http.ResponseWriter, r *http.Request) {
	date := h.today()
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		date = d
	}

	appts := agenda.AppointmentsOn(h.store.Snapshot().Appointments, date)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date":         date,
		"appointments": appts,
		"count":        len(appts),
	})
}

// Month handles GET /api/agenda/month?month=YYYY-MM, defaulting to the
// current month. busy=true leaves out empty days.
func (h *AgendaHandler) Month(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	year, month := today.Year, today.Month
	if s := r.URL.Query().Get("month"); s != "" {
		t, err := time.Parse("2006-01", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month format")
			return
		}
		year, month = t.Year(), t.Month()
	}

	st := h.store.Snapshot()
	var mv agenda.MonthView
	if h.months != nil {
		mv = h.months.Month(st.Revision, st.Appointments, year, month)
	} else {
		mv = agenda.Month(st.Appointments, year, month)
	}
	if r.URL.Query().Get("busy") == "true" {
		mv.Days = mv.Busy()
	}

	middleware.WriteJSON(w, http.StatusOK, mv)
}
