package database

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Connector opens a backend connection.
type Connector func(ctx context.Context) (Gateway, error)

// Status is the last observed health of the store connection.
type Status struct {
	Driver    string    `json:"driver"`
	Connected bool      `json:"connected"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// Manager owns the process-wide store connection. It implements Gateway by
// delegating to the current backend; while no backend is connected every
// operation fails with ErrStorage. Check re-establishes a lost connection.
type Manager struct {
	driver  string
	connect Connector

	mu     sync.RWMutex
	gw     Gateway
	status Status
	closed bool
}

// NewManager creates a Manager. Nothing is dialed until Open or Check.
func NewManager(driver string, connect Connector) *Manager {
	return &Manager{
		driver:  driver,
		connect: connect,
		status:  Status{Driver: driver},
	}
}

// Open makes the initial connection attempt. A failure is recorded and
// returned, but the Manager stays usable and Check will retry.
func (m *Manager) Open(ctx context.Context) error {
	return m.dial(ctx)
}

// Check pings the current backend, reconnecting when there is none or the
// ping fails. Requests never wait on a reconnect; they fail with ErrStorage
// until it completes.
func (m *Manager) Check(ctx context.Context) error {
	const op = "database.Manager.Check"

	m.mu.RLock()
	gw, closed := m.gw, m.closed
	m.mu.RUnlock()
	if closed {
		return fmt.Errorf("%s: %w: manager closed", op, ErrStorage)
	}

	if gw != nil {
		err := gw.Ping(ctx)
		if err == nil {
			m.mu.Lock()
			m.status.Connected = true
			m.status.CheckedAt = time.Now().UTC()
			m.status.Error = ""
			m.mu.Unlock()
			return nil
		}

		m.mu.Lock()
		if m.gw != gw {
			// Another caller already replaced it.
			m.mu.Unlock()
			return nil
		}
		m.gw = nil
		m.status.Connected = false
		m.status.Error = err.Error()
		m.mu.Unlock()
		_ = gw.Close()
	}
	return m.dial(ctx)
}

// dial connects without holding the lock, then installs the new backend
// unless the Manager was closed or another caller connected first.
func (m *Manager) dial(ctx context.Context) error {
	const op = "database.Manager.connect"

	gw, err := m.connect(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.CheckedAt = time.Now().UTC()
	if err != nil {
		if m.gw == nil {
			m.status.Connected = false
			m.status.Error = err.Error()
		}
		return StorageError(op, err)
	}
	if m.closed {
		_ = gw.Close()
		return fmt.Errorf("%s: %w: manager closed", op, ErrStorage)
	}
	if m.gw != nil {
		_ = gw.Close()
		return nil
	}
	m.gw = gw
	m.status.Connected = true
	m.status.Error = ""
	return nil
}

// Status returns the last observed health.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Close tears the connection down. The Manager cannot be reopened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.status.Connected = false
	if m.gw == nil {
		return nil
	}
	err := m.gw.Close()
	m.gw = nil
	return err
}

func (m *Manager) current(op string) (Gateway, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gw == nil {
		return nil, fmt.Errorf("%s: %w: not connected", op, ErrStorage)
	}
	return m.gw, nil
}

func (m *Manager) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	gw, err := m.current("database.Manager.Insert")
	if err != nil {
		return nil, err
	}
	return gw.Insert(ctx, collection, doc)
}

func (m *Manager) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	gw, err := m.current("database.Manager.FindOne")
	if err != nil {
		return nil, err
	}
	return gw.FindOne(ctx, collection, filter)
}

func (m *Manager) FindMany(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	gw, err := m.current("database.Manager.FindMany")
	if err != nil {
		return nil, err
	}
	return gw.FindMany(ctx, collection, filter)
}

func (m *Manager) FindByID(ctx context.Context, collection, id string) (Document, error) {
	gw, err := m.current("database.Manager.FindByID")
	if err != nil {
		return nil, err
	}
	return gw.FindByID(ctx, collection, id)
}

func (m *Manager) UpdateByID(ctx context.Context, collection, id string, fields Document) (Document, error) {
	gw, err := m.current("database.Manager.UpdateByID")
	if err != nil {
		return nil, err
	}
	return gw.UpdateByID(ctx, collection, id, fields)
}

func (m *Manager) DeleteByID(ctx context.Context, collection, id string) (Document, error) {
	gw, err := m.current("database.Manager.DeleteByID")
	if err != nil {
		return nil, err
	}
	return gw.DeleteByID(ctx, collection, id)
}

func (m *Manager) Ping(ctx context.Context) error {
	gw, err := m.current("database.Manager.Ping")
	if err != nil {
		return err
	}
	return gw.Ping(ctx)
}
