package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a Store with a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mount serves routes under prefix.
func mount(prefix string, routes func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Route(prefix, routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestBindingHandler_List(t *testing.T) {
	s := newTestStore(t)
	h := mount("/api/bindings", NewBindingHandler(s, nil).Routes)

	rec := do(t, h, http.MethodGet, "/api/bindings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"bindings":[]`) {
		t.Errorf("empty list body = %s", rec.Body.String())
	}

	if _, err := s.Bindings().Seed(action.DefaultBindings()); err != nil {
		t.Fatal(err)
	}
	rec = do(t, h, http.MethodGet, "/api/bindings", "")

	var resp listBindingsResponse
	decodeBody(t, rec, &resp)
	if len(resp.Bindings) != len(action.DefaultBindings()) {
		t.Errorf("got %d bindings, want %d", len(resp.Bindings), len(action.DefaultBindings()))
	}
}

func TestBindingHandler_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	changes := 0
	h := mount("/api/bindings", NewBindingHandler(s, func() { changes++ }).Routes)

	body := `{"spec":{"symbol":"fist","kind":"threshold","steps":[{"after":"500ms","command":"key:space","label":"Play"}]}}`
	rec := do(t, h, http.MethodPost, "/api/bindings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var created store.Binding
	decodeBody(t, rec, &created)
	if created.ID == "" || !created.Enabled || created.Spec.Symbol != gesture.SymbolFist {
		t.Errorf("created = %+v", created)
	}
	if got := time.Duration(created.Spec.Steps[0].After); got != 500*time.Millisecond {
		t.Errorf("step after = %v, want 500ms", got)
	}
	if changes != 1 {
		t.Errorf("onChange called %d times, want 1", changes)
	}

	rec = do(t, h, http.MethodGet, "/api/bindings/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/bindings", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate symbol: status %d, want 409", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/bindings/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/bindings/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", rec.Code)
	}
	if changes != 2 {
		t.Errorf("onChange called %d times, want 2", changes)
	}
}

func TestBindingHandler_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	h := mount("/api/bindings", NewBindingHandler(s, nil).Routes)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"unknown symbol", `{"spec":{"symbol":"wave","kind":"idle"}}`},
		{"unknown field", `{"spec":{"symbol":"fist","kind":"idle"},"extra":1}`},
		{"missing steps", `{"spec":{"symbol":"fist","kind":"threshold"}}`},
		{"bad command", `{"spec":{"symbol":"fist","kind":"repeat","after":"1s","command":"beep","count":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/bindings", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBindingHandler_Update(t *testing.T) {
	s := newTestStore(t)
	h := mount("/api/bindings", NewBindingHandler(s, nil).Routes)

	b := &store.Binding{Spec: action.BindingSpec{Symbol: gesture.SymbolOpenPalm, Kind: action.KindIdle}, Enabled: true}
	if err := s.Bindings().Create(b); err != nil {
		t.Fatal(err)
	}

	rec := do(t, h, http.MethodPut, "/api/bindings/"+b.ID,
		`{"spec":{"symbol":"open_palm","kind":"idle","label":"Resting"},"enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}

	got, err := s.Bindings().GetByID(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled || got.Spec.Label != "Resting" {
		t.Errorf("stored binding = %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/api/bindings/missing", `{"spec":{"symbol":"fist","kind":"idle"}}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing: status %d, want 404", rec.Code)
	}
}

func TestBindingHandler_RequiresJSONContentType(t *testing.T) {
	s := newTestStore(t)
	h := mount("/api/bindings", NewBindingHandler(s, nil).Routes)

	req := httptest.NewRequest(http.MethodPost, "/api/bindings", strings.NewReader(`{"spec":{"symbol":"fist","kind":"idle"}}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("text/plain body: status %d, want 400", rec.Code)
	}
	if n, _ := s.Bindings().Count(); n != 0 {
		t.Errorf("binding created from a text/plain body")
	}
}

func TestBindingHandler_MethodNotAllowed(t *testing.T) {
	h := mount("/api/bindings", NewBindingHandler(newTestStore(t), nil).Routes)

	rec := do(t, h, http.MethodPatch, "/api/bindings", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH: status %d, want 405", rec.Code)
	}
}

type recordingListener struct {
	added   []string
	removed []string
}

func (l *recordingListener) AddTemplate(t *store.Template) { l.added = append(l.added, t.ID) }
func (l *recordingListener) RemoveTemplate(id string)      { l.removed = append(l.removed, id) }

func landmarksJSON(t *testing.T, n int) string {
	t.Helper()
	hand := detector.FistLandmarks()
	lm := make([]store.Landmark, n)
	for i := range lm {
		p := hand.Points[i%detector.NumLandmarks]
		lm[i] = store.Landmark{X: p.X, Y: p.Y, Z: p.Z}
	}
	data, err := json.Marshal(lm)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestTemplateHandler_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	l := &recordingListener{}
	h := mount("/api/templates", NewTemplateHandler(s, l).Routes)

	body := `{"name":"my fist","symbol":"fist","tolerance":0.2,"landmarks":` + landmarksJSON(t, detector.NumLandmarks) + `}`
	rec := do(t, h, http.MethodPost, "/api/templates", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var created store.Template
	decodeBody(t, rec, &created)
	if created.ID == "" || created.Symbol != gesture.SymbolFist || created.Tolerance != 0.2 {
		t.Errorf("created = %+v", created)
	}
	if len(l.added) != 1 || l.added[0] != created.ID {
		t.Errorf("listener added = %v", l.added)
	}

	rec = do(t, h, http.MethodGet, "/api/templates/"+created.ID, "")
	var got store.Template
	decodeBody(t, rec, &got)
	if len(got.Landmarks) != detector.NumLandmarks {
		t.Errorf("get returned %d landmarks", len(got.Landmarks))
	}

	rec = do(t, h, http.MethodGet, "/api/templates", "")
	var list listTemplatesResponse
	decodeBody(t, rec, &list)
	if len(list.Templates) != 1 {
		t.Errorf("list returned %d templates", len(list.Templates))
	}

	rec = do(t, h, http.MethodPost, "/api/templates", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate name: status %d, want 409", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/templates/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", rec.Code)
	}
	if len(l.removed) != 1 || l.removed[0] != created.ID {
		t.Errorf("listener removed = %v", l.removed)
	}

	rec = do(t, h, http.MethodDelete, "/api/templates/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete again: status %d, want 404", rec.Code)
	}
}

func TestTemplateHandler_DefaultTolerance(t *testing.T) {
	h := mount("/api/templates", NewTemplateHandler(newTestStore(t), nil).WithDefaultTolerance(0.4).Routes)

	body := `{"name":"loose","symbol":"fist","landmarks":` + landmarksJSON(t, detector.NumLandmarks) + `}`
	rec := do(t, h, http.MethodPost, "/api/templates", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}

	var created store.Template
	decodeBody(t, rec, &created)
	if created.Tolerance != 0.4 {
		t.Errorf("tolerance = %v, want 0.4", created.Tolerance)
	}
}

func TestTemplateHandler_Create_Invalid(t *testing.T) {
	h := mount("/api/templates", NewTemplateHandler(newTestStore(t), nil).Routes)
	full := landmarksJSON(t, detector.NumLandmarks)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"symbol":"fist","landmarks":` + full + `}`},
		{"missing symbol", `{"name":"x","landmarks":` + full + `}`},
		{"negative tolerance", `{"name":"x","symbol":"fist","tolerance":-1,"landmarks":` + full + `}`},
		{"too few landmarks", `{"name":"x","symbol":"fist","landmarks":` + landmarksJSON(t, 5) + `}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/templates", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHistoryHandler_Recent(t *testing.T) {
	s := newTestStore(t)
	h := mount("/api/history", NewHistoryHandler(s).Routes)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"key:space", "key:left", "key:right"} {
		err := s.History().Append(&store.CommandRecord{
			Symbol:    gesture.SymbolFist,
			Command:   cmd,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	rec := do(t, h, http.MethodGet, "/api/history?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp historyResponse
	decodeBody(t, rec, &resp)
	if len(resp.Commands) != 2 || resp.Commands[0].Command != "key:right" {
		t.Errorf("commands = %+v", resp.Commands)
	}

	for _, bad := range []string{"0", "-3", "many"} {
		rec = do(t, h, http.MethodGet, "/api/history?limit="+bad, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status %d, want 400", bad, rec.Code)
		}
	}
}
