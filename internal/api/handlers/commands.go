// Package handlers implements the HTTP endpoints over the state store, the
// command dispatcher, the voice session and the backup jobs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/dispatch"
	"github.com/dvloznov/financas-voz/internal/voice"
)

// CommandRunner executes a typed or spoken command.
type CommandRunner interface {
	HandleCommand(ctx context.Context, text string) (dispatch.Result, error)
}

// CommandsHandler handles POST /api/commands. Typed commands go through the
// voice session, so they share its single in-flight command.
type CommandsHandler struct {
	runner  CommandRunner
	session VoiceSession
	log     zerolog.Logger
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(runner CommandRunner, session VoiceSession, log zerolog.Logger) *CommandsHandler {
	return &CommandsHandler{runner: runner, session: session, log: log}
}

// Submit handles POST /api/commands. The session must be awake.
func (h *CommandsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	var result dispatch.Result
	err := h.session.SubmitFunc(text, func(ctx context.Context, text string) error {
		var err error
		result, err = h.runner.HandleCommand(ctx, text)
		return err
	})
	switch {
	case errors.Is(err, voice.ErrBusy):
		middleware.WriteError(w, http.StatusConflict, "Another command is being processed")
		return
	case errors.Is(err, voice.ErrNotActive):
		middleware.WriteError(w, http.StatusConflict, "Voice session is not awake")
		return
	case err != nil:
		h.log.Error().Err(err).Str("action", string(result.Action)).Msg("Command applied but not saved")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save state")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
