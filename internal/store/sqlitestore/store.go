// Package sqlitestore is an embedded document store on SQLite. Documents of
// every collection live in one table as JSON bodies; uniqueness key-sets are
// enforced by partial expression indexes.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JonMunkholm/catalog/internal/core"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0,
	body       TEXT    NOT NULL,
	UNIQUE (collection, id)
)`

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a core.Store backed by a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is allowed.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "catalog.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

// Model returns the collection named collection.
func (s *Store) Model(collection string) core.Model {
	return &model{db: s.db, collection: collection}
}

// EnsureUnique creates a partial unique index over the JSON fields of
// collection. Documents lacking any of the fields are not constrained.
func (s *Store) EnsureUnique(ctx context.Context, collection string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if !identRe.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}

	exprs := make([]string, len(fields))
	for i, f := range fields {
		if !identRe.MatchString(f) {
			return fmt.Errorf("invalid field name %q", f)
		}
		exprs[i] = fmt.Sprintf("json_extract(body, '$.%s')", f)
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_%s ON documents (%s) WHERE collection = '%s'",
		collection, strings.Join(fields, "_"), strings.Join(exprs, ", "), collection,
	)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create unique index on %s: %w", collection, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

type model struct {
	db         *sql.DB
	collection string
}

func (m *model) FindByID(ctx context.Context, id string) (core.Record, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT id, version, body FROM documents WHERE collection = ? AND id = ?`,
		m.collection, id)
	return scanOne(row)
}

func (m *model) FindOne(ctx context.Context, filter core.Record) (core.Record, error) {
	docs, err := m.Find(ctx, filter, core.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (m *model) Find(ctx context.Context, filter core.Record, opts core.FindOptions) ([]core.Record, error) {
	where, args, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	query := `SELECT id, version, body FROM documents WHERE collection = ?` + where +
		` ORDER BY seq LIMIT ? OFFSET ?`
	args = append([]any{m.collection}, args...)
	args = append(args, limit, opts.Skip)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.collection, err)
	}
	defer func() { _ = rows.Close() }()

	docs := []core.Record{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", m.collection, err)
	}
	return docs, nil
}

func (m *model) Create(ctx context.Context, doc core.Record) (core.Record, error) {
	id, body := splitDoc(doc)
	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		id = v7.String()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, core.Validation(fmt.Sprintf("encode document: %v", err))
	}

	if _, err := m.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, version, body) VALUES (?, ?, 0, ?)`,
		m.collection, id, string(payload)); err != nil {
		return nil, m.translate("insert", err)
	}

	return decode(id, 0, payload)
}

func (m *model) FindByIDAndUpdate(ctx context.Context, id string, set core.Record, opts core.UpdateOptions) (result core.Record, retErr error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	before, err := scanOne(tx.QueryRowContext(ctx,
		`SELECT id, version, body FROM documents WHERE collection = ? AND id = ?`,
		m.collection, id))
	if err != nil {
		return nil, err
	}
	if before == nil {
		_ = tx.Rollback()
		return nil, nil
	}

	version := before[core.VersionField]
	_, body := splitDoc(before)
	_, changes := splitDoc(set)
	for k, v := range changes {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, core.Validation(fmt.Sprintf("encode document: %v", err))
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(payload), m.collection, id); err != nil {
		return nil, m.translate("update", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, m.translate("commit", err)
	}

	if !opts.New {
		return before, nil
	}
	after, err := decode(id, 0, payload)
	if err != nil {
		return nil, err
	}
	after[core.VersionField] = version
	return after, nil
}

func (m *model) FindByIDAndDelete(ctx context.Context, id string) (core.Record, error) {
	row := m.db.QueryRowContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ? RETURNING id, version, body`,
		m.collection, id)
	return scanOne(row)
}

// translate maps unique-index violations onto 409 conflicts.
func (m *model) translate(op string, err error) error {
	if isUniqueViolation(err) {
		return core.ConflictWrap(fmt.Sprintf("duplicate key in %s", m.collection), err)
	}
	return fmt.Errorf("%s %s: %w", op, m.collection, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (core.Record, error) {
	doc, err := scanDoc(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

func scanDoc(row scanner) (core.Record, error) {
	var (
		id      string
		version int64
		body    string
	)
	if err := row.Scan(&id, &version, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return decode(id, version, []byte(body))
}

func decode(id string, version int64, body []byte) (core.Record, error) {
	doc := core.Record{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc[core.IDField] = id
	doc[core.VersionField] = version
	return doc, nil
}

// splitDoc separates the storage identifier from the body fields.
func splitDoc(doc core.Record) (string, core.Record) {
	body := make(core.Record, len(doc))
	for k, v := range doc {
		if k == core.IDField || k == core.VersionField {
			continue
		}
		body[k] = v
	}
	id, _ := doc[core.IDField].(string)
	return id, body
}
