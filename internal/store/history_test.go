package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

func TestHistoryRepository(t *testing.T) {
	repo := newTestStore(t).History()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		rec := &CommandRecord{
			Symbol:    gesture.SymbolFist,
			Command:   fmt.Sprintf("key:%d", i),
			Label:     "Play/Pause",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recent, err := repo.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].Command != "key:4" || recent[2].Command != "key:2" {
		t.Errorf("expected newest first, got %s .. %s", recent[0].Command, recent[2].Command)
	}

	removed, err := repo.Prune(2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 pruned, got %d", removed)
	}

	all, _ := repo.Recent(0)
	if len(all) != 2 {
		t.Errorf("expected 2 records after prune, got %d", len(all))
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if v, err := repo.GetDefault("missing", "fallback"); err != nil || v != "fallback" {
		t.Errorf("GetDefault = %q, %v", v, err)
	}

	if err := repo.Set("dry_run", "true"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set("dry_run", "false"); err != nil {
		t.Fatal(err)
	}
	if v, _ := repo.Get("dry_run"); v != "false" {
		t.Errorf("expected overwritten value false, got %q", v)
	}

	all, err := repo.All()
	if err != nil || len(all) != 1 {
		t.Errorf("All = %v, %v", all, err)
	}
}
