package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/store"
)

// BindingHandler serves /api/bindings.
type BindingHandler struct {
	store    *store.Store
	onChange func()
}

// NewBindingHandler returns a handler over s. onChange, if set, runs after
// every successful write so the running table can be rebuilt.
func NewBindingHandler(s *store.Store, onChange func()) *BindingHandler {
	return &BindingHandler{store: s, onChange: onChange}
}

// Routes registers the binding routes on r.
func (h *BindingHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type bindingRequest struct {
	Spec    action.BindingSpec `json:"spec"`
	Enabled *bool              `json:"enabled,omitempty"`
}

type listBindingsResponse struct {
	Bindings []*store.Binding `json:"bindings"`
}

func (h *BindingHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

func (h *BindingHandler) list(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}
	if bindings == nil {
		bindings = []*store.Binding{}
	}
	writeJSON(w, http.StatusOK, listBindingsResponse{Bindings: bindings})
}

func (h *BindingHandler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Bindings().GetByID(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Binding not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.Spec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.store.Bindings().GetBySymbol(req.Spec.Symbol)
	if err == nil {
		writeError(w, http.StatusConflict, "Symbol "+req.Spec.Symbol.String()+" is already bound")
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}

	b := &store.Binding{Spec: req.Spec, Enabled: req.Enabled == nil || *req.Enabled}
	if err := h.store.Bindings().Create(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}

	h.changed()
	writeJSON(w, http.StatusCreated, b)
}

func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b, err := h.store.Bindings().GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Binding not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}

	var req bindingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.Spec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Spec.Symbol != b.Spec.Symbol {
		if other, err := h.store.Bindings().GetBySymbol(req.Spec.Symbol); err == nil && other.ID != id {
			writeError(w, http.StatusConflict, "Symbol "+req.Spec.Symbol.String()+" is already bound")
			return
		}
	}

	b.Spec = req.Spec
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}
	if err := h.store.Bindings().Update(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}

	h.changed()
	writeJSON(w, http.StatusOK, b)
}

func (h *BindingHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Bindings().Delete(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Binding not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}
