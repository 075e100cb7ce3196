package dispatch

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/agenda"
	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/intent"
	"github.com/dvloznov/financas-voz/internal/state"
)

const (
	// RecentTransactionsLimit caps the transactions sent as context.
	RecentTransactionsLimit = 20
	// UpcomingAppointmentsLimit caps the appointments sent as context.
	UpcomingAppointmentsLimit = 10
)

// Result is the outcome of one command.
type Result struct {
	Action  intent.Action `json:"action"`
	Message string        `json:"message,omitempty"`
	View    domain.View   `json:"view"`
}

// Dispatcher classifies commands and applies them to the store.
type Dispatcher struct {
	classifier intent.Classifier
	store      *state.Store
	log        zerolog.Logger

	// Now and NewID may be replaced in tests.
	Now      func() time.Time
	NewID    func() string
	Location *time.Location
}

// New creates a Dispatcher.
func New(classifier intent.Classifier, store *state.Store, loc *time.Location, log zerolog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		classifier: classifier,
		store:      store,
		log:        log,
		Now:        time.Now,
		Location:   loc,
	}
}

// BuildRequest assembles the classifier input for text from a snapshot.
func BuildRequest(text string, st state.State, now time.Time) intent.Request {
	return intent.Request{
		Text:                 text,
		RecentTransactions:   st.RecentActive(RecentTransactionsLimit),
		Categories:           domain.CategoryNames(st.Categories),
		UpcomingAppointments: agenda.Upcoming(st.Appointments, civil.DateOf(now), UpcomingAppointmentsLimit),
		Now:                  now,
	}
}

// HandleCommand classifies text and applies the result. Classifier failures
// become an error response; they are never returned to the caller.
func (d *Dispatcher) HandleCommand(ctx context.Context, text string) (Result, error) {
	now := d.Now().In(d.Location)
	d.store.SetLastMessage("")

	req := BuildRequest(text, d.store.Snapshot(), now)

	resp, err := d.classifier.Classify(ctx, req)
	if err != nil {
		d.log.Error().Err(err).Str("text", text).Msg("Failed to classify command")
		resp = intent.Response{Action: intent.ActionError, Message: MsgClassifierFailure}
	}

	env := Env{Now: now, Location: d.Location, NewID: d.NewID}
	var msg string
	st, err := d.store.Update(func(st state.State) state.State {
		var next state.State
		next, msg = Apply(resp, st, env)
		next.LastMessage = msg
		return next
	})
	if err != nil {
		d.log.Error().Err(err).Str("action", string(resp.Action)).Msg("Command applied but not persisted")
	}

	d.log.Info().
		Str("action", string(resp.Action)).
		Str("view", string(st.View)).
		Msg("Command handled")

	return Result{Action: resp.Action, Message: msg, View: st.View}, err
}

// HandleText is HandleCommand for callers that only need the message.
func (d *Dispatcher) HandleText(ctx context.Context, text string) error {
	_, err := d.HandleCommand(ctx, text)
	return err
}
