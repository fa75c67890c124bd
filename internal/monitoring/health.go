package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// checkTimeout bounds a single store check.
const checkTimeout = 5 * time.Second

// Checker is a store connection that can verify and restore itself.
type Checker interface {
	Check(ctx context.Context) error
}

// HealthMonitor periodically checks the store connection, reconnecting it
// when it has been lost.
type HealthMonitor struct {
	checker Checker
	cron    *cron.Cron

	mu      sync.Mutex
	healthy *bool
}

// NewHealthMonitor creates a monitor running on schedule, a standard cron
// expression or descriptor such as "@every 30s".
func NewHealthMonitor(checker Checker, schedule string) (*HealthMonitor, error) {
	m := &HealthMonitor{
		checker: checker,
		cron:    cron.New(),
	}
	if _, err := m.cron.AddFunc(schedule, m.RunCheck); err != nil {
		return nil, fmt.Errorf("monitoring.NewHealthMonitor: invalid schedule %q: %w", schedule, err)
	}
	return m, nil
}

// Start runs a check immediately, then on every scheduled tick.
func (m *HealthMonitor) Start() {
	log.Info().Msg("Starting store health monitor...")
	m.RunCheck()
	m.cron.Start()
}

// Stop halts the schedule and waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
	log.Info().Msg("Stopped store health monitor.")
}

// RunCheck performs one check and logs state transitions.
func (m *HealthMonitor) RunCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	err := m.checker.Check(ctx)
	healthy := err == nil

	m.mu.Lock()
	previous := m.healthy
	m.healthy = &healthy
	m.mu.Unlock()

	switch {
	case previous != nil && *previous == healthy:
		if !healthy {
			log.Debug().Err(err).Msg("Store still unreachable")
		}
	case healthy:
		log.Info().Msg("Store connection healthy")
	default:
		log.Error().Err(err).Msg("Store connection unhealthy")
	}
}

// Healthy reports the outcome of the last check. It is false before the
// first check.
func (m *HealthMonitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy != nil && *m.healthy
}
