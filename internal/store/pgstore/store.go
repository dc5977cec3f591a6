// Package pgstore is a document store on PostgreSQL. Every collection shares
// one JSONB table; uniqueness key-sets become partial expression indexes.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalog/internal/core"
)

// DBTX is the query surface shared by pgxpool.Pool, pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `CREATE TABLE IF NOT EXISTS documents (
	seq        bigserial PRIMARY KEY,
	collection text      NOT NULL,
	id         text      NOT NULL,
	version    integer   NOT NULL DEFAULT 0,
	body       jsonb     NOT NULL,
	UNIQUE (collection, id)
)`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a core.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

// Connect opens a pool to url, verifies it and creates the documents table.
func Connect(ctx context.Context, url string, pc PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if pc.MaxConns > 0 {
		poolConfig.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		poolConfig.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := New(pool)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection or transaction. Ping and Close are no-ops
// unless the store owns a pool.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Model returns the collection named collection.
func (s *Store) Model(collection string) core.Model {
	return &model{db: s.db, collection: collection}
}

// EnsureUnique creates a partial unique index over the JSONB fields of
// collection. Documents lacking any of the fields are not constrained.
func (s *Store) EnsureUnique(ctx context.Context, collection string, fields []string) error {
	stmt, err := uniqueIndexSQL(collection, fields)
	if err != nil || stmt == "" {
		return err
	}
	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create unique index on %s: %w", collection, err)
	}
	return nil
}

func uniqueIndexSQL(collection string, fields []string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	if !identRe.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	exprs := make([]string, len(fields))
	for i, f := range fields {
		if !identRe.MatchString(f) {
			return "", fmt.Errorf("invalid field name %q", f)
		}
		exprs[i] = fmt.Sprintf("(body->>'%s')", f)
	}
	name := pgx.Identifier{"ux_" + collection + "_" + strings.Join(fields, "_")}.Sanitize()
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON documents (%s) WHERE collection = '%s'",
		name, strings.Join(exprs, ", "), collection), nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

type model struct {
	db         DBTX
	collection string
}

func (m *model) FindByID(ctx context.Context, id string) (core.Record, error) {
	row := m.db.QueryRow(ctx,
		`SELECT id, version, body FROM documents WHERE collection = $1 AND id = $2`,
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
	where, args, err := buildFilter(filter, 2)
	if err != nil {
		return nil, err
	}

	args = append([]any{m.collection}, args...)
	query := `SELECT id, version, body FROM documents WHERE collection = $1` + where + ` ORDER BY seq`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := m.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.collection, err)
	}
	defer rows.Close()

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

	row := m.db.QueryRow(ctx,
		`INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)
		 RETURNING id, version, body`,
		m.collection, id, string(payload))
	created, err := scanDoc(row)
	if err != nil {
		return nil, m.translate("insert", err)
	}
	return created, nil
}

func (m *model) FindByIDAndUpdate(ctx context.Context, id string, set core.Record, opts core.UpdateOptions) (core.Record, error) {
	_, changes := splitDoc(set)
	payload, err := json.Marshal(changes)
	if err != nil {
		return nil, core.Validation(fmt.Sprintf("encode update: %v", err))
	}

	returning := "d.id, d.version, d.body"
	if !opts.New {
		returning = "prev.id, prev.version, prev.body"
	}
	query := `WITH prev AS (
		SELECT id, version, body FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE
	)
	UPDATE documents d SET body = d.body || $3::jsonb
	FROM prev
	WHERE d.collection = $1 AND d.id = prev.id
	RETURNING ` + returning

	doc, err := scanOne(m.db.QueryRow(ctx, query, m.collection, id, string(payload)))
	if err != nil {
		return nil, m.translate("update", err)
	}
	return doc, nil
}

func (m *model) FindByIDAndDelete(ctx context.Context, id string) (core.Record, error) {
	row := m.db.QueryRow(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2 RETURNING id, version, body`,
		m.collection, id)
	return scanOne(row)
}

// translate maps unique-index violations onto 409 conflicts.
func (m *model) translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return core.ConflictWrap(fmt.Sprintf("duplicate key in %s", m.collection), err)
	}
	return fmt.Errorf("%s %s: %w", op, m.collection, err)
}

func scanOne(row pgx.Row) (core.Record, error) {
	doc, err := scanDoc(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

func scanDoc(row pgx.Row) (core.Record, error) {
	var (
		id      string
		version int32
		body    []byte
	)
	if err := row.Scan(&id, &version, &body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc := core.Record{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc[core.IDField] = id
	doc[core.VersionField] = int(version)
	return doc, nil
}

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
