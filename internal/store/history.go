package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
)

// CommandRecord is one fired command.
type CommandRecord struct {
	ID        string         `json:"id"`
	Symbol    gesture.Symbol `json:"symbol"`
	Command   string         `json:"command"`
	Label     string         `json:"label"`
	DryRun    bool           `json:"dry_run"`
	CreatedAt time.Time      `json:"created_at"`
}

// HistoryRepository records fired commands.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the command history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Append records a command. Zero CreatedAt is set to now.
func (r *HistoryRepository) Append(rec *CommandRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO command_log (id, symbol, command, label, dry_run, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Symbol), rec.Command, rec.Label, rec.DryRun, rec.CreatedAt,
	)
	return err
}

// Recent returns up to limit records, newest first.
func (r *HistoryRepository) Recent(limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, symbol, command, label, dry_run, created_at
		 FROM command_log ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var symbol string
		var dryRun int
		if err := rows.Scan(&rec.ID, &symbol, &rec.Command, &rec.Label, &dryRun, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Symbol = gesture.Symbol(symbol)
		rec.DryRun = dryRun != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep records and returns how many were removed.
func (r *HistoryRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM command_log WHERE id NOT IN (
			SELECT id FROM command_log ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
