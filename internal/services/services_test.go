package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/notes-be/internal/auth"
	"github.com/isdelr/notes-be/internal/database"
	"github.com/isdelr/notes-be/internal/database/sqlite"
	"github.com/isdelr/notes-be/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupStore(t *testing.T) database.Gateway {
	t.Helper()
	s, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUserService(t *testing.T, store database.Gateway) *UserService {
	t.Helper()
	svc := NewUserService(store, auth.NewTokenManager("test-secret", time.Hour))
	svc.cost = bcrypt.MinCost
	return svc
}

// recorder collects published note events.
type recorder struct {
	mu     sync.Mutex
	events []models.NoteEvent
}

func (r *recorder) Publish(e models.NoteEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []models.NoteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NoteEvent(nil), r.events...)
}
