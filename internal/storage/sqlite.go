package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/linkvault/internal/model"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path
// and migrates it to CurrentSchemaVersion.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return s, nil
}

// dsn builds the connection string. Write transactions start IMMEDIATE so a
// second writer process waits on busy_timeout instead of racing.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the version recorded in the database.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate runs database migrations. A database written by a newer build
// (version above CurrentSchemaVersion) is left untouched.
func (s *SQLiteStorage) migrate() error {
	// Check current schema version
	version, err := s.SchemaVersion()
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	steps := []func() error{s.migrateV1, s.migrateV2, s.migrateV3}
	for i, step := range steps {
		if version < i+1 {
			if err := step(); err != nil {
				return fmt.Errorf("v%d: %w", i+1, err)
			}
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			importance INTEGER NOT NULL DEFAULT 3,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (category, url)
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_category ON bookmarks(category);

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the nullable notes column.
func (s *SQLiteStorage) migrateV2() error {
	return s.addColumn("notes", "TEXT", 2)
}

// migrateV3 adds visited_at for last-opened tracking.
func (s *SQLiteStorage) migrateV3() error {
	return s.addColumn("visited_at", "TEXT", 3)
}

// addColumn adds a nullable column unless it is already present, then
// records version. Existing columns are never dropped or renamed.
func (s *SQLiteStorage) addColumn(name, typ string, version int) error {
	exists, err := s.columnExists("bookmarks", name)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !exists {
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE bookmarks ADD COLUMN %s %s", name, typ)); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("UPDATE schema_version SET version = ?", version); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load reads the store from the SQLite database.
func (s *SQLiteStorage) Load(ctx context.Context) (*model.Store, error) {
	return loadStore(ctx, s.db)
}

func loadStore(ctx context.Context, q queryer) (*model.Store, error) {
	store := model.NewStore()

	rows, err := q.QueryContext(ctx, `
		SELECT id, url, title, category, tags, description, importance,
		       notes, created_at, updated_at, visited_at
		FROM bookmarks
		ORDER BY category, created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Bookmark
		var tagsJSON string
		var notes sql.NullString
		var createdAtStr, updatedAtStr string
		var visitedAtStr sql.NullString

		if err := rows.Scan(
			&b.ID, &b.URL, &b.Title, &b.Category, &tagsJSON, &b.Description,
			&b.Importance, &notes, &createdAtStr, &updatedAtStr, &visitedAtStr,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(tagsJSON), &b.Tags); err != nil || b.Tags == nil {
			b.Tags = []string{}
		}
		if notes.Valid {
			n := notes.String
			b.Notes = &n
		}

		b.CreatedAt, _ = parseTime(createdAtStr)
		b.UpdatedAt, _ = parseTime(updatedAtStr)

		if visitedAtStr.Valid {
			if t, ok := parseTime(visitedAtStr.String); ok {
				b.VisitedAt = &t
			}
		}

		store.Bookmarks = append(store.Bookmarks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store, nil
}

// Update runs load, fn and write inside one transaction - all or nothing.
// Rows are upserted by id rather than rewritten so columns added by a newer
// schema survive.
func (s *SQLiteStorage) Update(ctx context.Context, fn func(*model.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	store, err := loadStore(ctx, tx)
	if err != nil {
		return err
	}

	before := make(map[string]bool, len(store.Bookmarks))
	for _, b := range store.Bookmarks {
		before[b.ID] = true
	}

	if err := fn(store); err != nil {
		return err
	}

	after := make(map[string]bool, len(store.Bookmarks))
	for _, b := range store.Bookmarks {
		after[b.ID] = true
	}

	// Deletes go first so a re-created (category, url) pair cannot trip
	// the unique constraint.
	for id := range before {
		if after[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bookmarks (id, url, title, category, tags, description,
		                       importance, notes, created_at, updated_at, visited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			category = excluded.category,
			tags = excluded.tags,
			description = excluded.description,
			importance = excluded.importance,
			notes = excluded.notes,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			visited_at = excluded.visited_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range store.Bookmarks {
		tagsJSON, _ := json.Marshal(b.Tags)
		if b.Tags == nil {
			tagsJSON = []byte("[]")
		}

		var visitedAt *string
		if b.VisitedAt != nil {
			v := formatTime(*b.VisitedAt)
			visitedAt = &v
		}

		if _, err := stmt.ExecContext(ctx,
			b.ID, b.URL, b.Title, b.Category, string(tagsJSON), b.Description,
			b.Importance, b.Notes, formatTime(b.CreatedAt), formatTime(b.UpdatedAt), visitedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
