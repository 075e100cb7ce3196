package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/state"
)

// SetupHandler handles the first-run flag.
type SetupHandler struct {
	store *state.Store
	log   zerolog.Logger
}

// NewSetupHandler creates a new setup handler.
func NewSetupHandler(store *state.Store, log zerolog.Logger) *SetupHandler {
	return &SetupHandler{store: store, log: log}
}

// GetSetup handles GET /api/setup
func (h *SetupHandler) GetSetup(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{
		"setupComplete": h.store.Snapshot().SetupComplete,
	})
}

// UpdateSetup handles POST /api/setup. An empty body marks setup complete.
func (h *SetupHandler) UpdateSetup(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Complete *bool `json:"complete"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	done := true
	if req.Complete != nil {
		done = *req.Complete
	}

	if err := h.store.SetSetupComplete(done); err != nil {
		h.log.Error().Err(err).Msg("Failed to save setup flag")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save setup flag")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"setupComplete": done})
}
