package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
)

// Landmark is one normalized landmark of a template.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Template is a stored reference pose for the fallback classifier.
type Template struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Symbol    gesture.Symbol `json:"symbol"`
	Tolerance float64        `json:"tolerance"`
	Landmarks []Landmark     `json:"landmarks,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TemplateRepository provides CRUD operations for templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a template and its landmarks. An empty ID is generated.
func (r *TemplateRepository) Create(t *Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Tolerance <= 0 {
		t.Tolerance = gesture.DefaultTolerance
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO templates (id, name, symbol, tolerance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, string(t.Symbol), t.Tolerance, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	if err := insertLandmarks(tx, t.ID, t.Landmarks); err != nil {
		return err
	}

	return tx.Commit()
}

func insertLandmarks(tx *sql.Tx, templateID string, landmarks []Landmark) error {
	stmt, err := tx.Prepare(
		`INSERT INTO template_landmarks (template_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range landmarks {
		if _, err := stmt.Exec(templateID, i, l.X, l.Y, l.Z); err != nil {
			return fmt.Errorf("insert landmark %d: %w", i, err)
		}
	}
	return nil
}

// GetByID retrieves a template and its landmarks.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	return r.get(`SELECT id, name, symbol, tolerance, created_at, updated_at FROM templates WHERE id = ?`, id)
}

// GetByName retrieves a template and its landmarks by name.
func (r *TemplateRepository) GetByName(name string) (*Template, error) {
	return r.get(`SELECT id, name, symbol, tolerance, created_at, updated_at FROM templates WHERE name = ?`, name)
}

func (r *TemplateRepository) get(query string, arg string) (*Template, error) {
	t := &Template{}
	var symbol string

	err := r.db.QueryRow(query, arg).Scan(&t.ID, &t.Name, &symbol, &t.Tolerance, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Symbol = gesture.Symbol(symbol)

	if t.Landmarks, err = r.Landmarks(t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Landmarks returns the landmarks of a template in index order.
func (r *TemplateRepository) Landmarks(id string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM template_landmarks WHERE template_id = ? ORDER BY landmark_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}
	return landmarks, rows.Err()
}

// List retrieves all templates with their landmarks, newest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT id, name, symbol, tolerance, created_at, updated_at
		 FROM templates ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		var symbol string
		if err := rows.Scan(&t.ID, &t.Name, &symbol, &t.Tolerance, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		t.Symbol = gesture.Symbol(symbol)
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Landmarks are read after the cursor is closed; the pool has one connection.
	for _, t := range templates {
		if t.Landmarks, err = r.Landmarks(t.ID); err != nil {
			return nil, err
		}
	}

	return templates, nil
}

// Update replaces a template's fields and landmarks.
func (r *TemplateRepository) Update(t *Template) error {
	t.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE templates SET name = ?, symbol = ?, tolerance = ?, updated_at = ? WHERE id = ?`,
		t.Name, string(t.Symbol), t.Tolerance, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	if err := affected(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM template_landmarks WHERE template_id = ?`, t.ID); err != nil {
		return err
	}
	if err := insertLandmarks(tx, t.ID, t.Landmarks); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a template and, by cascade, its landmarks.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
