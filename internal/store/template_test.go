package store

import (
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
)

func palmLandmarks() []Landmark {
	landmarks := make([]Landmark, 21)
	for i := range landmarks {
		landmarks[i] = Landmark{X: float64(i) * 0.1, Y: float64(i) * -0.05, Z: 0.01}
	}
	return landmarks
}

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	repo := newTestStore(t).Templates()

	tmpl := &Template{Name: "my palm", Symbol: gesture.SymbolOpenPalm, Landmarks: palmLandmarks()}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tmpl.ID == "" {
		t.Fatal("expected generated ID")
	}
	if tmpl.Tolerance != gesture.DefaultTolerance {
		t.Errorf("expected default tolerance, got %f", tmpl.Tolerance)
	}

	got, err := repo.GetByID(tmpl.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "my palm" || got.Symbol != gesture.SymbolOpenPalm {
		t.Errorf("unexpected template %+v", got)
	}
	if len(got.Landmarks) != 21 {
		t.Fatalf("expected 21 landmarks, got %d", len(got.Landmarks))
	}
	if got.Landmarks[20].X != 2.0 {
		t.Errorf("landmarks out of order: %+v", got.Landmarks[20])
	}

	byName, err := repo.GetByName("my palm")
	if err != nil || byName.ID != tmpl.ID {
		t.Errorf("GetByName = %v, %v", byName, err)
	}
}

func TestTemplateRepository_DuplicateName(t *testing.T) {
	repo := newTestStore(t).Templates()

	if err := repo.Create(&Template{Name: "fist", Symbol: gesture.SymbolFist}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(&Template{Name: "fist", Symbol: gesture.SymbolFist}); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestTemplateRepository_List(t *testing.T) {
	repo := newTestStore(t).Templates()

	for _, name := range []string{"a", "b", "c"} {
		if err := repo.Create(&Template{Name: name, Symbol: gesture.SymbolFist, Landmarks: palmLandmarks()}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 templates, got %d", len(list))
	}
	for _, tmpl := range list {
		if len(tmpl.Landmarks) != 21 {
			t.Errorf("template %s has %d landmarks", tmpl.Name, len(tmpl.Landmarks))
		}
	}
}

func TestTemplateRepository_Update(t *testing.T) {
	repo := newTestStore(t).Templates()

	tmpl := &Template{Name: "point", Symbol: gesture.SymbolPointingUp, Landmarks: palmLandmarks()}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tmpl.Tolerance = 0.3
	tmpl.Landmarks = tmpl.Landmarks[:5]
	if err := repo.Update(tmpl); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(tmpl.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Tolerance != 0.3 || len(got.Landmarks) != 5 {
		t.Errorf("update not applied: tolerance %f, %d landmarks", got.Tolerance, len(got.Landmarks))
	}

	if err := repo.Update(&Template{ID: "missing", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	tmpl := &Template{Name: "gone", Symbol: gesture.SymbolFist, Landmarks: palmLandmarks()}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(tmpl.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM template_landmarks`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected landmarks to be deleted, %d remain", n)
	}

	if _, err := repo.GetByID(tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(tmpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
