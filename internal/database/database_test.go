package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memGateway is an in-memory Gateway used by package tests.
type memGateway struct {
	mu      sync.Mutex
	docs    map[string]map[string]Document
	pingErr error
	closed  bool
}

func newMemGateway() *memGateway {
	return &memGateway{docs: map[string]map[string]Document{Users: {}, Notes: {}}}
}

func (g *memGateway) Insert(_ context.Context, collection string, doc Document) (Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := Document{}
	for k, v := range doc {
		out[k] = v
	}
	out[IDField] = NewID()
	g.docs[collection][out.ID()] = out
	return out, nil
}

func (g *memGateway) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	docs, _ := g.FindMany(ctx, collection, filter)
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (g *memGateway) FindMany(_ context.Context, collection string, filter Filter) ([]Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := []Document{}
next:
	for _, d := range g.docs[collection] {
		for k, v := range filter {
			if d[k] != v {
				continue next
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (g *memGateway) FindByID(_ context.Context, collection, id string) (Document, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (g *memGateway) UpdateByID(ctx context.Context, collection, id string, fields Document) (Document, error) {
	d, err := g.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, v := range fields {
		if k != IDField {
			d[k] = v
		}
	}
	return d, nil
}

func (g *memGateway) DeleteByID(ctx context.Context, collection, id string) (Document, error) {
	d, err := g.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.docs[collection], id)
	return d, nil
}

func (g *memGateway) Ping(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pingErr
}

func (g *memGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(NewID()))
	assert.ErrorIs(t, ValidateID("123"), ErrInvalidID)
	assert.ErrorIs(t, ValidateID(""), ErrInvalidID)
}

func TestCheckCollection(t *testing.T) {
	assert.NoError(t, CheckCollection(Users))
	assert.NoError(t, CheckCollection(Notes))
	assert.ErrorIs(t, CheckCollection("users; DROP TABLE users"), ErrInvalidQuery)
}

func TestCheckFilter(t *testing.T) {
	assert.NoError(t, CheckFilter(nil))
	assert.NoError(t, CheckFilter(Filter{"email": "a@b.c", IDField: "x", "user_id2": 1}))

	for _, bad := range []string{"", "1abc", "a.b", "a b", "$where", "doc')"} {
		assert.ErrorIs(t, CheckFilter(Filter{bad: 1}), ErrInvalidQuery, "field %q", bad)
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := StorageError("op", cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "op")
}

func TestEncodeDecode(t *testing.T) {
	type rec struct {
		ID        string    `json:"_id,omitempty"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	doc, err := Encode(rec{Title: "t", CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "t", doc["title"])
	assert.NotContains(t, doc, IDField)

	doc[IDField] = "abc"
	var got rec
	require.NoError(t, Decode(doc, &got))
	assert.Equal(t, rec{ID: "abc", Title: "t", CreatedAt: at}, got)
}

func TestResolveReference(t *testing.T) {
	ctx := context.Background()
	gw := newMemGateway()
	user, err := gw.Insert(ctx, Users, Document{"username": "ann", "email": "ann@x.io", "passwordHash": "h"})
	require.NoError(t, err)

	t.Run("existing", func(t *testing.T) {
		doc := Document{"title": "n", "userId": user.ID()}
		require.NoError(t, ResolveReference(ctx, gw, doc, "userId", Users, "username", "email"))
		assert.Equal(t, Document{IDField: user.ID(), "username": "ann", "email": "ann@x.io"}, doc["userId"])
	})

	for name, ref := range map[string]any{
		"dangling":  NewID(),
		"malformed": "not-an-id",
		"empty":     "",
		"missing":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			doc := Document{"userId": ref}
			require.NoError(t, ResolveReference(ctx, gw, doc, "userId", Users, "username"))
			assert.Nil(t, doc["userId"])
		})
	}
}
