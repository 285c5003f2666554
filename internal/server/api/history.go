package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/store"
)

// MaxHistoryLimit caps the limit query parameter.
const MaxHistoryLimit = 500

// HistoryHandler serves /api/history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler returns a handler over s.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

// Routes registers the history routes on r.
func (h *HistoryHandler) Routes(r chi.Router) {
	r.Get("/", h.recent)
}

type historyResponse struct {
	Commands []store.CommandRecord `json:"commands"`
}

// recent handles GET /api/history?limit=N.
func (h *HistoryHandler) recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	records, err := h.store.History().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	if records == nil {
		records = []store.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Commands: records})
}
