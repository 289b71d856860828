// Package catalog exports query results into a SQLite database so other
// tools can look records up without walking the tree.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one indexed path.
type Entry struct {
	Path      string
	Template  string
	Fields    map[string]string
	IndexedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path TEXT PRIMARY KEY,
	template TEXT NOT NULL,
	fields JSON NOT NULL,
	indexed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entry_fields (
	name TEXT,
	value TEXT,
	path TEXT,
	PRIMARY KEY (name, value, path)
) WITHOUT ROWID;
`

// Writer inserts entries in batched transactions.
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	stmtEntry  *sql.Stmt
	stmtField  *sql.Stmt
	stmtDelete *sql.Stmt
	batchSize  int
	count      int
	total      int
	mu         sync.Mutex
}

// NewWriter opens (or creates) the database at dbPath.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Bulk insert tuning.
	for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &Writer{db: db, batchSize: 5000}
	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) beginTx() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmtEntry, err = w.tx.Prepare(`
		INSERT OR REPLACE INTO entries (path, template, fields, indexed_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	w.stmtDelete, err = w.tx.Prepare(`DELETE FROM entry_fields WHERE path = ?`)
	if err != nil {
		return err
	}
	w.stmtField, err = w.tx.Prepare(`INSERT OR IGNORE INTO entry_fields (name, value, path) VALUES (?, ?, ?)`)
	return err
}

func (w *Writer) commitTx() error {
	for _, stmt := range []*sql.Stmt{w.stmtEntry, w.stmtDelete, w.stmtField} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return w.tx.Commit()
}

// Add writes e, replacing any earlier entry for the same path.
func (w *Writer) Add(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode fields for %s: %w", e.Path, err)
	}
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now()
	}
	if _, err := w.stmtEntry.Exec(e.Path, e.Template, string(fields), e.IndexedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert %s: %w", e.Path, err)
	}
	if _, err := w.stmtDelete.Exec(e.Path); err != nil {
		return fmt.Errorf("clear fields for %s: %w", e.Path, err)
	}
	for _, name := range slices.Sorted(maps.Keys(e.Fields)) {
		if _, err := w.stmtField.Exec(name, e.Fields[name], e.Path); err != nil {
			return fmt.Errorf("insert field %s for %s: %w", name, e.Path, err)
		}
	}

	w.count++
	w.total++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		if err := w.beginTx(); err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		w.count = 0
	}
	return nil
}

// Count reports how many entries were added through this writer.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Close commits the pending batch and closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	// Built after the bulk load.
	if _, err := w.db.Exec(`CREATE INDEX IF NOT EXISTS idx_entry_fields_path ON entry_fields(path)`); err != nil {
		_ = w.db.Close()
		return fmt.Errorf("create index: %w", err)
	}
	return w.db.Close()
}

// Find returns the entries of the catalog at dbPath whose fields satisfy
// every filter, ordered by path.
func Find(dbPath string, filters map[string]string) ([]Entry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	var (
		where []string
		args  []any
	)
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		where = append(where, `EXISTS (SELECT 1 FROM entry_fields f WHERE f.path = e.path AND f.name = ? AND f.value = ?)`)
		args = append(args, name, filters[name])
	}
	q := `SELECT e.path, e.template, e.fields, e.indexed_at FROM entries e`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.path"

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			fields string
			nanos  int64
		)
		if err := rows.Scan(&e.Path, &e.Template, &fields, &nanos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for %s: %w", e.Path, err)
		}
		e.IndexedAt = time.Unix(0, nanos)
		out = append(out, e)
	}
	return out, rows.Err()
}
