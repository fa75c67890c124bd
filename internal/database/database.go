// Package database is the persistence gateway: a small document-store
// contract over the "users" and "notes" collections, implemented by the
// sqlite and surreal subpackages.
package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

const (
	Users = "users"
	Notes = "notes"

	// IDField is the key holding a document's identifier.
	IDField = "_id"

	// CreatedAtField holds a document's creation time as an RFC 3339 string.
	CreatedAtField = "createdAt"
)

var (
	ErrStorage      = errors.New("storage unavailable")
	ErrNotFound     = errors.New("document not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidQuery = errors.New("invalid query")
)

// Document is a stored record. Values are JSON-compatible.
type Document map[string]any

// ID returns the document identifier or "" when absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Filter matches documents whose top-level fields equal the given values.
// An empty filter matches every document.
type Filter map[string]any

// Gateway is implemented by every storage backend. FindOne and FindMany
// return matches in creation order, so FindOne yields the earliest match.
type Gateway interface {
	Insert(ctx context.Context, collection string, doc Document) (Document, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	FindMany(ctx context.Context, collection string, filter Filter) ([]Document, error)
	FindByID(ctx context.Context, collection, id string) (Document, error)
	UpdateByID(ctx context.Context, collection, id string, fields Document) (Document, error)
	DeleteByID(ctx context.Context, collection, id string) (Document, error)
	Ping(ctx context.Context) error
	Close() error
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// NewID generates a fresh document identifier.
func NewID() string {
	return uuid.New().String()
}

// ValidateID checks that id has the identifier format produced by NewID.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// CheckCollection rejects collection names outside the known set.
func CheckCollection(collection string) error {
	switch collection {
	case Users, Notes:
		return nil
	}
	return fmt.Errorf("%w: unknown collection %q", ErrInvalidQuery, collection)
}

// CheckField rejects field names that are not plain identifiers. Backends
// interpolate field names into queries, so this must run first.
func CheckField(name string) error {
	if name == IDField || fieldName.MatchString(name) {
		return nil
	}
	return fmt.Errorf("%w: bad field name %q", ErrInvalidQuery, name)
}

// CheckFilter validates every key of f.
func CheckFilter(f Filter) error {
	for k := range f {
		if err := CheckField(k); err != nil {
			return err
		}
	}
	return nil
}

// StorageError marks err as a driver or connectivity failure.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
