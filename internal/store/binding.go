package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
)

// Binding is a stored symbol to action binding.
type Binding struct {
	ID        string             `json:"id"`
	Spec      action.BindingSpec `json:"spec"`
	Enabled   bool               `json:"enabled"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// BindingRepository provides CRUD operations for bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

const bindingColumns = `id, spec, enabled, created_at, updated_at`

// Create inserts a binding. An empty ID is generated. A symbol can only be
// bound once.
func (r *BindingRepository) Create(b *Binding) error {
	return insertBinding(r.db, b)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertBinding(db execer, b *Binding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	spec, err := json.Marshal(b.Spec)
	if err != nil {
		return fmt.Errorf("encode binding: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO bindings (id, symbol, kind, spec, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.Spec.Symbol), string(b.Spec.Kind), string(spec), b.Enabled, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBinding(row scanner) (*Binding, error) {
	b := &Binding{}
	var spec string
	var enabled int

	if err := row.Scan(&b.ID, &spec, &enabled, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(spec), &b.Spec); err != nil {
		return nil, fmt.Errorf("decode binding %s: %w", b.ID, err)
	}
	b.Enabled = enabled != 0
	return b, nil
}

// GetByID retrieves a binding by its ID.
func (r *BindingRepository) GetByID(id string) (*Binding, error) {
	b, err := scanBinding(r.db.QueryRow(`SELECT `+bindingColumns+` FROM bindings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// GetBySymbol retrieves the binding for a symbol.
func (r *BindingRepository) GetBySymbol(sym gesture.Symbol) (*Binding, error) {
	b, err := scanBinding(r.db.QueryRow(`SELECT `+bindingColumns+` FROM bindings WHERE symbol = ?`, string(sym)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// List retrieves all bindings ordered by symbol.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(`SELECT ` + bindingColumns + ` FROM bindings ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bindings, nil
}

// Specs returns the specs of all enabled bindings.
func (r *BindingRepository) Specs() ([]action.BindingSpec, error) {
	bindings, err := r.List()
	if err != nil {
		return nil, err
	}

	specs := make([]action.BindingSpec, 0, len(bindings))
	for _, b := range bindings {
		if b.Enabled {
			specs = append(specs, b.Spec)
		}
	}
	return specs, nil
}

// Count returns the number of stored bindings.
func (r *BindingRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bindings`).Scan(&n)
	return n, err
}

// SettingBindingsSeeded records that the default bindings were written once.
const SettingBindingsSeeded = "bindings_seeded"

// Seed stores specs on first run. It writes nothing once the seeded setting
// is recorded or the table already holds bindings, so bindings the user
// deleted stay deleted. All specs and the setting are written in one
// transaction. It reports whether it wrote any bindings.
func (r *BindingRepository) Seed(specs []action.BindingSpec) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var flagged, n int
	err = tx.QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, SettingBindingsSeeded).Scan(&flagged)
	if err != nil {
		return false, err
	}
	if flagged > 0 {
		return false, nil
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM bindings`).Scan(&n); err != nil {
		return false, err
	}

	if n == 0 {
		for _, spec := range specs {
			if err := insertBinding(tx, &Binding{Spec: spec, Enabled: true}); err != nil {
				return false, fmt.Errorf("seed %s: %w", spec.Symbol, err)
			}
		}
	}

	_, err = tx.Exec(
		`INSERT INTO settings (key, value) VALUES (?, 'true')
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		SettingBindingsSeeded,
	)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n == 0 && len(specs) > 0, nil
}

// Update updates an existing binding.
func (r *BindingRepository) Update(b *Binding) error {
	b.UpdatedAt = time.Now()

	spec, err := json.Marshal(b.Spec)
	if err != nil {
		return fmt.Errorf("encode binding: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE bindings SET symbol = ?, kind = ?, spec = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		string(b.Spec.Symbol), string(b.Spec.Kind), string(spec), b.Enabled, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a binding by its ID.
func (r *BindingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
