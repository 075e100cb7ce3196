package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/api/middleware"
	"github.com/dvloznov/financas-voz/internal/state"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	store *state.Store
	log   zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(store *state.Store, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{store: store, log: log}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.store.Snapshot().Categories
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveCategory(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, h.log, err, "Category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
