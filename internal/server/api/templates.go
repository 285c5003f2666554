package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// TemplateListener is told about template changes so the running
// classifier stays in sync with the store.
type TemplateListener interface {
	AddTemplate(t *store.Template)
	RemoveTemplate(id string)
}

// TemplateHandler serves /api/templates.
type TemplateHandler struct {
	store     *store.Store
	listener  TemplateListener
	tolerance float64
}

// NewTemplateHandler returns a handler over s. listener may be nil.
func NewTemplateHandler(s *store.Store, listener TemplateListener) *TemplateHandler {
	return &TemplateHandler{store: s, listener: listener}
}

// WithDefaultTolerance sets the tolerance given to templates created without
// one. Zero leaves the store default.
func (h *TemplateHandler) WithDefaultTolerance(tol float64) *TemplateHandler {
	h.tolerance = tol
	return h
}

// Routes registers the template routes on r.
func (h *TemplateHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

type createTemplateRequest struct {
	Name      string           `json:"name"`
	Symbol    gesture.Symbol   `json:"symbol"`
	Tolerance float64          `json:"tolerance"`
	Landmarks []store.Landmark `json:"landmarks"`
}

type listTemplatesResponse struct {
	Templates []*store.Template `json:"templates"`
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	if templates == nil {
		templates = []*store.Template{}
	}
	writeJSON(w, http.StatusOK, listTemplatesResponse{Templates: templates})
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Templates().GetByID(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	switch {
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	case req.Symbol.IsNone():
		writeError(w, http.StatusBadRequest, "Symbol is required")
		return
	case req.Tolerance < 0:
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	case len(req.Landmarks) != detector.NumLandmarks:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Expected %d landmarks, got %d", detector.NumLandmarks, len(req.Landmarks)))
		return
	}

	if req.Tolerance == 0 {
		req.Tolerance = h.tolerance
	}

	if _, err := h.store.Templates().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Template "+req.Name+" already exists")
		return
	}

	t := &store.Template{
		Name:      req.Name,
		Symbol:    req.Symbol,
		Tolerance: req.Tolerance,
		Landmarks: req.Landmarks,
	}
	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	if h.listener != nil {
		h.listener.AddTemplate(t)
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.store.Templates().Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Template not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	if h.listener != nil {
		h.listener.RemoveTemplate(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
