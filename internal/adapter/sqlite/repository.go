package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cwygoda/coursedl/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id       TEXT PRIMARY KEY,
    state    TEXT NOT NULL,
    position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_state ON entries(state, position);
`

const (
	statePending = "pending"
	stateDone    = "done"
)

// Repository implements domain.ProgressStore using SQLite.
type Repository struct {
	db *sql.DB
}

// New opens the SQLite database, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Load reads all entries. An empty table is a first run.
func (r *Repository) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, state FROM entries ORDER BY position ASC`,
	)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	defer rows.Close()

	snap := domain.Snapshot{Done: []string{}, Pending: []string{}}
	found := false
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return domain.Snapshot{}, false, err
		}
		found = true
		if state == stateDone {
			snap.Done = append(snap.Done, id)
		} else {
			snap.Pending = append(snap.Pending, id)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, false, err
	}
	return snap, found, nil
}

// Save replaces all entries in one transaction.
func (r *Repository) Save(ctx context.Context, snap domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO entries (id, state, position) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pos := 0
	for _, id := range snap.Done {
		if _, err := stmt.ExecContext(ctx, id, stateDone, pos); err != nil {
			return err
		}
		pos++
	}
	for _, id := range snap.Pending {
		if _, err := stmt.ExecContext(ctx, id, statePending, pos); err != nil {
			return err
		}
		pos++
	}

	return tx.Commit()
}
