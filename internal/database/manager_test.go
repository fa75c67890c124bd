package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dialer struct {
	gw    *memGateway
	err   error
	dials int
}

func (d *dialer) connect(context.Context) (Gateway, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	d.gw = newMemGateway()
	return d.gw, nil
}

func TestManager_FailedOpenDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	d := &dialer{err: errors.New("connection refused")}
	m := NewManager("test", d.connect)

	err := m.Open(ctx)
	require.ErrorIs(t, err, ErrStorage)
	assert.False(t, m.Status().Connected)
	assert.Contains(t, m.Status().Error, "connection refused")

	_, err = m.FindMany(ctx, Notes, nil)
	assert.ErrorIs(t, err, ErrStorage)
	_, err = m.Insert(ctx, Users, Document{"email": "x"})
	assert.ErrorIs(t, err, ErrStorage)

	// The store comes back; the next check connects.
	d.err = nil
	require.NoError(t, m.Check(ctx))
	assert.True(t, m.Status().Connected)
	assert.Empty(t, m.Status().Error)

	_, err = m.Insert(ctx, Users, Document{"email": "x"})
	assert.NoError(t, err)
}

func TestManager_CheckReconnectsAfterPingFailure(t *testing.T) {
	ctx := context.Background()
	d := &dialer{}
	m := NewManager("test", d.connect)
	require.NoError(t, m.Open(ctx))
	first := d.gw

	require.NoError(t, m.Check(ctx))
	assert.Equal(t, 1, d.dials, "healthy ping must not redial")

	first.pingErr = errors.New("broken pipe")
	require.NoError(t, m.Check(ctx))
	assert.Equal(t, 2, d.dials)
	assert.True(t, first.closed)
	assert.NotSame(t, first, d.gw)
}

func TestManager_Close(t *testing.T) {
	ctx := context.Background()
	d := &dialer{}
	m := NewManager("test", d.connect)
	require.NoError(t, m.Open(ctx))
	gw := d.gw

	require.NoError(t, m.Close())
	assert.True(t, gw.closed)
	assert.False(t, m.Status().Connected)

	assert.ErrorIs(t, m.Check(ctx), ErrStorage)
	assert.Equal(t, 1, d.dials)
	_, err := m.FindOne(ctx, Users, nil)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestManager_SlowDialDoesNotBlockRequests(t *testing.T) {
	ctx := context.Background()
	dialing := make(chan struct{})
	release := make(chan struct{})
	m := NewManager("test", func(ctx context.Context) (Gateway, error) {
		close(dialing)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, errors.New("connection timed out")
	})

	checked := make(chan error, 1)
	go func() { checked <- m.Check(ctx) }()
	<-dialing

	start := time.Now()
	_, err := m.FindMany(ctx, Notes, nil)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)
	assert.ErrorIs(t, <-checked, ErrStorage)
}

func TestManager_BrokenBackendFailsFastDuringReconnect(t *testing.T) {
	ctx := context.Background()
	d := &dialer{}
	m := NewManager("test", d.connect)
	require.NoError(t, m.Open(ctx))
	first := d.gw
	first.pingErr = errors.New("broken pipe")

	dialing := make(chan struct{})
	release := make(chan struct{})
	m.connect = func(ctx context.Context) (Gateway, error) {
		close(dialing)
		<-release
		return d.connect(ctx)
	}

	checked := make(chan error, 1)
	go func() { checked <- m.Check(ctx) }()
	<-dialing

	assert.True(t, first.closed)
	assert.False(t, m.Status().Connected)
	_, err := m.FindOne(ctx, Users, nil)
	assert.ErrorIs(t, err, ErrStorage)

	close(release)
	require.NoError(t, <-checked)
	assert.True(t, m.Status().Connected)
	assert.NotSame(t, first, d.gw)
}

func TestManager_CloseDuringDial(t *testing.T) {
	ctx := context.Background()
	dialing := make(chan struct{})
	release := make(chan struct{})
	gw := newMemGateway()
	m := NewManager("test", func(context.Context) (Gateway, error) {
		close(dialing)
		<-release
		return gw, nil
	})

	opened := make(chan error, 1)
	go func() { opened <- m.Open(ctx) }()
	<-dialing
	require.NoError(t, m.Close())
	close(release)

	assert.ErrorIs(t, <-opened, ErrStorage)
	assert.True(t, gw.closed)
}
