// Package api assembles the HTTP server's routes and middleware.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/agenda"
	"github.com/dvloznov/financas-voz/internal/api/handlers"
	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/jobs"
	"github.com/dvloznov/financas-voz/internal/state"
)

// Deps are the collaborators the routes are served by.
type Deps struct {
	// BaseContext outlives individual requests; voice sessions run under it.
	BaseContext context.Context
	Log         zerolog.Logger
	Location    *time.Location
	APIToken    string

	Store      *state.Store
	MonthCache *agenda.MonthCache
	Commands   handlers.CommandRunner
	Session    handlers.VoiceSession
	Events     handlers.EventSink

	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Backups   handlers.BackupTargets
	Snapshots handlers.SnapshotLister // optional
}

// NewRouter builds the API router.
func NewRouter(d Deps) *chi.Mux {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}

	commands := handlers.NewCommandsHandler(d.Commands, d.Session, d.Log)
	voiceH := handlers.NewVoiceHandler(d.BaseContext, d.Session, d.Events, d.Log)
	transactions := handlers.NewTransactionsHandler(d.Store, d.Location, d.Log)
	categories := handlers.NewCategoriesHandler(d.Store, d.Log)
	agendaH := handlers.NewAgendaHandler(d.Store, d.MonthCache, d.Location, d.Log)
	setup := handlers.NewSetupHandler(d.Store, d.Log)
	backups := handlers.NewBackupsHandler(d.Publisher, d.Backups, d.Snapshots, d.Log)
	jobsH := handlers.NewJobsHandler(d.JobStore, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(d.APIToken))

		r.Post("/commands", commands.Submit)

		r.Route("/voice", func(r chi.Router) {
			r.Post("/start", voiceH.Start)
			r.Post("/stop", voiceH.Stop)
			r.Post("/sleep", voiceH.Sleep)
			r.Post("/events", voiceH.Events)
			r.Get("/status", voiceH.Status)
		})

		r.Get("/transactions", transactions.ListTransactions)
		r.Post("/transactions/{id}/deleted", transactions.ToggleDeleted)
		r.Post("/transactions/{id}/chargeback", transactions.ToggleChargeback)
		r.Get("/filter", transactions.GetFilter)
		r.Delete("/filter", transactions.ClearFilter)
		r.Get("/summary", transactions.Summary)

		r.Get("/categories", categories.ListCategories)
		r.Delete("/categories/{id}", categories.DeleteCategory)

		r.Get("/appointments", agendaH.ListAppointments)
		r.Post("/appointments/{id}/complete", agendaH.ToggleCompleted)
		r.Delete("/appointments/{id}", agendaH.DeleteAppointment)
		r.Get("/agenda", agendaH.Day)
		r.Get("/agenda/month", agendaH.Month)

		r.Get("/setup", setup.GetSetup)
		r.Post("/setup", setup.UpdateSetup)

		r.Post("/backups", backups.EnqueueBackup)
		r.Get("/backups", backups.ListBackups)
		r.Get("/jobs", jobsH.ListJobs)
		r.Get("/jobs/{id}", jobsH.GetJob)
	})

	return r
}
