// Package sqlite stores gateway documents in SQLite: one table per
// collection, each row holding the document body as JSON.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/isdelr/notes-be/internal/database"
	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a database.Gateway backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens the database at dataSourceName and bootstraps the schema.
func New(ctx context.Context, dataSourceName string) (*Store, error) {
	const op = "sqlite.New"

	db, err := sql.Open("sqlite", withPragmas(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// One connection serializes writers inside the process; busy_timeout
	// covers other processes sharing the file. For :memory: it also keeps
	// every query on the same database.
	db.SetMaxOpenConns(1)
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	if err = Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db}, nil
}

// busyTimeoutMillis is how long a statement waits on a locked database
// before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// withPragmas appends modernc connection pragmas to dsn: a busy timeout
// always, and WAL journaling for file databases.
func withPragmas(dsn string) string {
	pragmas := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis)}
	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// Migrate creates the collection tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		doc TEXT NOT NULL CHECK (json_valid(doc))
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT NOT NULL PRIMARY KEY,
		doc TEXT NOT NULL CHECK (json_valid(doc))
	);

	CREATE INDEX IF NOT EXISTS users_email ON users (json_extract(doc, '$.email'));
	`
	_, err := db.ExecContext(ctx, sqlStmt)
	return err
}

func (s *Store) Insert(ctx context.Context, collection string, doc database.Document) (database.Document, error) {
	const op = "sqlite.Store.Insert"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}

	id := database.NewID()
	body, err := marshalBody(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (?, ?)", collection)
	if _, err := s.db.ExecContext(ctx, query, id, body); err != nil {
		return nil, database.StorageError(op, err)
	}
	return unmarshalBody(id, body)
}

func (s *Store) FindOne(ctx context.Context, collection string, filter database.Filter) (database.Document, error) {
	docs, err := s.find(ctx, "sqlite.Store.FindOne", collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, database.ErrNotFound
	}
	return docs[0], nil
}

func (s *Store) FindMany(ctx context.Context, collection string, filter database.Filter) ([]database.Document, error) {
	return s.find(ctx, "sqlite.Store.FindMany", collection, filter, 0)
}

func (s *Store) find(ctx context.Context, op, collection string, filter database.Filter, limit int) ([]database.Document, error) {
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	clause, args, err := where(filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id, doc FROM %s%s ORDER BY rowid", collection, clause)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	defer rows.Close()

	docs := []database.Document{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, database.StorageError(op, err)
		}
		doc, err := unmarshalBody(id, body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageError(op, err)
	}
	return docs, nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (database.Document, error) {
	const op = "sqlite.Store.FindByID"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.ValidateID(id); err != nil {
		return nil, err
	}

	var body string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", collection)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	return unmarshalBody(id, body)
}

func (s *Store) UpdateByID(ctx context.Context, collection, id string, fields database.Document) (database.Document, error) {
	const op = "sqlite.Store.UpdateByID"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.ValidateID(id); err != nil {
		return nil, err
	}
	for k := range fields {
		if err := database.CheckField(k); err != nil {
			return nil, err
		}
	}

	patch, err := marshalBody(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var body string
	query := fmt.Sprintf("UPDATE %s SET doc = json_patch(doc, ?) WHERE id = ? RETURNING doc", collection)
	err = s.db.QueryRowContext(ctx, query, patch, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	return unmarshalBody(id, body)
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) (database.Document, error) {
	const op = "sqlite.Store.DeleteByID"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.ValidateID(id); err != nil {
		return nil, err
	}

	var body string
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? RETURNING doc", collection)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	return unmarshalBody(id, body)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return database.StorageError("sqlite.Store.Ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// where builds a WHERE clause for filter. Field paths are bound as
// parameters, never spliced into the query text.
func where(filter database.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	if err := database.CheckFilter(filter); err != nil {
		return "", nil, err
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	var args []any
	for _, k := range keys {
		v := filter[k]
		switch {
		case k == database.IDField:
			conds = append(conds, "id = ?")
			args = append(args, v)
		case v == nil:
			conds = append(conds, "json_extract(doc, ?) IS NULL")
			args = append(args, "$."+k)
		default:
			conds = append(conds, "json_extract(doc, ?) = ?")
			args = append(args, "$."+k, v)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func marshalBody(doc database.Document) (string, error) {
	body := make(database.Document, len(doc))
	for k, v := range doc {
		if k != database.IDField {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalBody(id, body string) (database.Document, error) {
	doc := database.Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, err
	}
	doc[database.IDField] = id
	return doc, nil
}
