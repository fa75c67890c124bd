// Package surreal stores gateway documents in SurrealDB. Each collection is
// a table and each document a record keyed by its uuid.
package surreal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/isdelr/notes-be/internal/database"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// Options configures the connection.
type Options struct {
	URL       string // e.g. ws://localhost:8000/rpc
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Store is a database.Gateway backed by SurrealDB.
type Store struct {
	db *surrealdb.DB
}

// New connects, signs in when credentials are given, and selects the
// namespace and database.
func New(ctx context.Context, opts Options) (*Store, error) {
	const op = "surreal.New"

	db, err := surrealdb.FromEndpointURLString(ctx, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if opts.Username != "" && opts.Password != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: opts.Username,
			Password: opts.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("%s: sign in: %w", op, err)
		}
	}

	if err := db.Use(ctx, opts.Namespace, opts.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("%s: use %s/%s: %w", op, opts.Namespace, opts.Database, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc database.Document) (database.Document, error) {
	const op = "surreal.Store.Insert"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}

	id := database.NewID()
	created, err := surrealdb.Create[map[string]any](ctx, s.db, models.NewRecordID(collection, id), body(doc))
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	if created == nil {
		return nil, database.StorageError(op, fmt.Errorf("create returned no record"))
	}
	return toDocument(*created), nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter database.Filter) (database.Document, error) {
	docs, err := s.find(ctx, "surreal.Store.FindOne", collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, database.ErrNotFound
	}
	return docs[0], nil
}

func (s *Store) FindMany(ctx context.Context, collection string, filter database.Filter) ([]database.Document, error) {
	return s.find(ctx, "surreal.Store.FindMany", collection, filter, 0)
}

func (s *Store) find(ctx context.Context, op, collection string, filter database.Filter, limit int) ([]database.Document, error) {
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.CheckFilter(filter); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Field names are validated identifiers; values are always bound.
	vars := map[string]any{"tb": collection}
	conds := make([]string, 0, len(keys))
	for i, k := range keys {
		param := fmt.Sprintf("p%d", i)
		v := filter[k]
		if k == database.IDField {
			id, _ := v.(string)
			conds = append(conds, "id = $"+param)
			vars[param] = models.NewRecordID(collection, id)
			continue
		}
		conds = append(conds, k+" = $"+param)
		vars[param] = v
	}

	query := "SELECT * FROM type::table($tb)"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, query, vars)
	if err != nil {
		return nil, database.StorageError(op, err)
	}

	docs := []database.Document{}
	if results == nil || len(*results) == 0 {
		return docs, nil
	}
	for _, rec := range (*results)[0].Result {
		docs = append(docs, toDocument(rec))
	}
	sortByCreation(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// sortByCreation orders documents by createdAt, oldest first. Documents
// without a parsable time sort first.
func sortByCreation(docs []database.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return createdAt(docs[i]).Before(createdAt(docs[j]))
	})
}

func createdAt(doc database.Document) time.Time {
	switch v := doc[database.CreatedAtField].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (database.Document, error) {
	const op = "surreal.Store.FindByID"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.ValidateID(id); err != nil {
		return nil, err
	}
	return s.selectRecord(ctx, op, models.NewRecordID(collection, id))
}

func (s *Store) UpdateByID(ctx context.Context, collection, id string, fields database.Document) (database.Document, error) {
	const op = "surreal.Store.UpdateByID"
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

	rid := models.NewRecordID(collection, id)
	// Older servers create missing records on UPDATE.
	if _, err := s.selectRecord(ctx, op, rid); err != nil {
		return nil, err
	}
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db,
		"UPDATE $rid MERGE $data RETURN AFTER",
		map[string]any{"rid": rid, "data": body(fields)},
	)
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, database.ErrNotFound
	}
	return toDocument((*results)[0].Result[0]), nil
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) (database.Document, error) {
	const op = "surreal.Store.DeleteByID"
	if err := database.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := database.ValidateID(id); err != nil {
		return nil, err
	}

	rid := models.NewRecordID(collection, id)
	doc, err := s.selectRecord(ctx, op, rid)
	if err != nil {
		return nil, err
	}
	if _, err := surrealdb.Delete[map[string]any](ctx, s.db, rid); err != nil {
		return nil, database.StorageError(op, err)
	}
	return doc, nil
}

func (s *Store) selectRecord(ctx context.Context, op string, rid models.RecordID) (database.Document, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, "SELECT * FROM $rid", map[string]any{"rid": rid})
	if err != nil {
		return nil, database.StorageError(op, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, database.ErrNotFound
	}
	return toDocument((*results)[0].Result[0]), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil); err != nil {
		return database.StorageError("surreal.Store.Ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

func body(doc database.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != database.IDField {
			out[k] = v
		}
	}
	return out
}

// toDocument replaces SurrealDB's record id with the bare uuid under _id.
func toDocument(rec map[string]any) database.Document {
	doc := make(database.Document, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		doc[k] = v
	}
	switch rid := rec["id"].(type) {
	case models.RecordID:
		doc[database.IDField] = fmt.Sprint(rid.ID)
	case *models.RecordID:
		if rid != nil {
			doc[database.IDField] = fmt.Sprint(rid.ID)
		}
	case string:
		doc[database.IDField] = strings.Trim(rid[strings.IndexByte(rid, ':')+1:], "⟨⟩`")
	}
	return doc
}
