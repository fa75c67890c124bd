package database

import (
	"context"
	"errors"
	"fmt"
)

// ResolveReference replaces doc[field], which holds the id of a document in
// collection, with a projection of that document containing its id and the
// requested fields. The field becomes nil when the reference is empty,
// malformed or dangling. Storage failures are returned.
func ResolveReference(ctx context.Context, gw Gateway, doc Document, field, collection string, projection ...string) error {
	const op = "database.ResolveReference"

	ref, _ := doc[field].(string)
	if ref == "" {
		doc[field] = nil
		return nil
	}

	target, err := gw.FindByID(ctx, collection, ref)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
		doc[field] = nil
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	projected := Document{IDField: target.ID()}
	for _, name := range projection {
		if v, ok := target[name]; ok {
			projected[name] = v
		}
	}
	doc[field] = projected
	return nil
}
