package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/activation"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/log"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

type harness struct {
	t      *testing.T
	app    *app.App
	det    *detector.MockDetector
	rec    *action.Recorder
	server *httptest.Server
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Bindings().Seed(action.DefaultBindings()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	h := &harness{
		t:   t,
		det: detector.NewMockDetector(),
		rec: &action.Recorder{},
		now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	camera := capture.NewBlankCamera(640, 480)
	if err := camera.Open(); err != nil {
		t.Fatal(err)
	}

	cfg := dispatch.DefaultConfig()
	cfg.Logger = log.Discard()

	h.app, err = app.New(app.Config{
		Camera:     camera,
		Classifier: classify.NewLandmarkClassifier(h.det, nil),
		Dispatcher: dispatch.New(cfg, h.rec),
		Store:      s,
		Logger:     log.Discard(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := h.app.ReloadBindings(); err != nil {
		t.Fatalf("ReloadBindings() error = %v", err)
	}

	hub := server.NewStatusHub()
	h.app.OnStatus(hub.Publish)
	h.server = httptest.NewServer(server.New(server.Config{
		Store:  s,
		App:    h.app,
		Hub:    hub,
		Logger: log.Discard(),
	}))
	t.Cleanup(h.server.Close)

	return h
}

func (h *harness) request(method, path, body string, out any) int {
	h.t.Helper()

	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	if err != nil {
		h.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.server.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			h.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

// show runs n frames 100ms apart with hand in view.
func (h *harness) show(hand detector.HandLandmarks, n int) dispatch.Status {
	h.t.Helper()
	h.det.SetHands(hand)

	var st dispatch.Status
	for i := 0; i < n; i++ {
		h.now = h.now.Add(100 * time.Millisecond)
		var err error
		if st, err = h.app.Step(h.now); err != nil {
			h.t.Fatalf("Step() error = %v", err)
		}
	}
	return st
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)

	t.Run("RebindThumbUp", func(t *testing.T) {
		var list struct {
			Bindings []store.Binding `json:"bindings"`
		}
		if code := h.request(http.MethodGet, "/api/bindings", "", &list); code != http.StatusOK {
			t.Fatalf("list bindings: status %d", code)
		}

		var id string
		for _, b := range list.Bindings {
			if b.Spec.Symbol == "thumb_up" {
				id = b.ID
			}
		}
		if id == "" {
			t.Fatal("seeded thumb_up binding missing")
		}

		body := `{"spec":{"symbol":"thumb_up","kind":"threshold","steps":[{"after":"300ms","command":"key:u","label":"Undo"}]}}`
		if code := h.request(http.MethodPut, "/api/bindings/"+id, body, nil); code != http.StatusOK {
			t.Fatalf("update binding: status %d", code)
		}
	})

	t.Run("AddTwoFingerTemplate", func(t *testing.T) {
		victory := detector.VictoryLandmarks()
		norm := victory.Normalize()
		landmarks := make([]store.Landmark, 0, detector.NumLandmarks)
		for _, p := range norm.Points {
			landmarks = append(landmarks, store.Landmark{X: p.X, Y: p.Y, Z: p.Z})
		}
		data, _ := json.Marshal(landmarks)

		body := fmt.Sprintf(`{"name":"my two","symbol":"two_finger","tolerance":0.3,"landmarks":%s}`, data)
		if code := h.request(http.MethodPost, "/api/templates", body, nil); code != http.StatusCreated {
			t.Fatalf("create template: status %d", code)
		}
	})

	t.Run("ActivateAndFire", func(t *testing.T) {
		if st := h.show(detector.OpenPalmLandmarks(), 20); st.State != activation.StateActiveLocked {
			t.Fatalf("state after palm hold = %s, want %s", st.State, activation.StateActiveLocked)
		}

		h.show(detector.ThumbsUpLandmarks(), 8)
		if got := h.rec.Count("key:u"); got != 1 {
			t.Errorf("key:u injected %d times, want 1", got)
		}
		if got := h.rec.Count("system:volume-up"); got != 0 {
			t.Errorf("old thumb_up binding fired %d times", got)
		}

		// No recognizer category: the stored template classifies the pose.
		unlabeled := detector.VictoryLandmarks()
		unlabeled.Gesture = ""
		h.show(unlabeled, 10)
		if got := h.rec.Count("key:left"); got != 4 {
			t.Errorf("key:left injected %d times, want 4", got)
		}
	})

	t.Run("StatusAndHistory", func(t *testing.T) {
		var status struct {
			Enabled bool            `json:"enabled"`
			Status  dispatch.Status `json:"status"`
		}
		if code := h.request(http.MethodGet, "/api/status", "", &status); code != http.StatusOK {
			t.Fatalf("status: %d", code)
		}
		if !status.Enabled || status.Status.State != activation.StateActiveReady {
			t.Errorf("status = %+v", status)
		}

		var history struct {
			Commands []store.CommandRecord `json:"commands"`
		}
		if code := h.request(http.MethodGet, "/api/history?limit=10", "", &history); code != http.StatusOK {
			t.Fatalf("history: %d", code)
		}
		if len(history.Commands) != 5 {
			t.Fatalf("history has %d commands, want 5", len(history.Commands))
		}
		if last := history.Commands[len(history.Commands)-1]; last.Command != "key:u" {
			t.Errorf("oldest command = %s, want key:u", last.Command)
		}
	})

	t.Run("PauseResetsToStandby", func(t *testing.T) {
		if code := h.request(http.MethodPut, "/api/enabled", `{"enabled":false}`, nil); code != http.StatusOK {
			t.Fatalf("disable: %d", code)
		}
		if h.app.IsEnabled() {
			t.Error("app still enabled")
		}
		if st := h.show(detector.ThumbsUpLandmarks(), 1); st.State != activation.StateStandby {
			t.Errorf("state after pause = %s, want standby", st.State)
		}
	})
}
