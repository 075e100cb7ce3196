package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/voice"
)

// VoiceSession is the part of voice.Session the API drives.
type VoiceSession interface {
	Start(ctx context.Context) error
	Stop() error
	Sleep()
	Status() voice.Status
	SubmitFunc(text string, fn func(ctx context.Context, text string) error) error
}

// EventSink receives recognizer events posted by a speech client.
type EventSink interface {
	Push(ev voice.Event) error
}

// VoiceHandler handles /api/voice endpoints.
type VoiceHandler struct {
	session VoiceSession
	sink    EventSink
	// baseCtx outlives requests; commands started by speech run under it.
	baseCtx context.Context
	log     zerolog.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(baseCtx context.Context, session VoiceSession, sink EventSink, log zerolog.Logger) *VoiceHandler {
	return &VoiceHandler{session: session, sink: sink, baseCtx: baseCtx, log: log}
}

// Start handles POST /api/voice/start
func (h *VoiceHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(h.baseCtx); err != nil {
		if errors.Is(err, voice.ErrPermissionDenied) {
			middleware.WriteJSON(w, http.StatusForbidden, h.session.Status())
			return
		}
		h.log.Error().Err(err).Msg("Failed to start voice session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to start listening")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.session.Status())
}

// Stop handles POST /api/voice/stop
func (h *VoiceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(); err != nil {
		h.log.Warn().Err(err).Msg("Recognizer did not stop cleanly")
	}
	middleware.WriteJSON(w, http.StatusOK, h.session.Status())
}

// Sleep handles POST /api/voice/sleep
func (h *VoiceHandler) Sleep(w http.ResponseWriter, r *http.Request) {
	h.session.Sleep()
	middleware.WriteJSON(w, http.StatusOK, h.session.Status())
}

// Status handles GET /api/voice/status
func (h *VoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.session.Status())
}

// Events handles POST /api/voice/events. The body is one event or
// {"events": [...]}.
func (h *VoiceHandler) Events(w http.ResponseWriter, r *http.Request) {
	var req struct {
		voice.Event
		Events []voice.Event `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	events := req.Events
	if req.Kind != "" {
		events = append([]voice.Event{req.Event}, events...)
	}
	if len(events) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "at least one event is required")
		return
	}

	for _, ev := range events {
		switch ev.Kind {
		case voice.EventResult, voice.EventEnd, voice.EventError:
		default:
			middleware.WriteError(w, http.StatusBadRequest, "unknown event kind: "+string(ev.Kind))
			return
		}
	}

	for _, ev := range events {
		if err := h.sink.Push(ev); err != nil {
			h.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Dropping voice event")
			middleware.WriteError(w, http.StatusServiceUnavailable, "Voice session is busy")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusAccepted, h.session.Status())
}
