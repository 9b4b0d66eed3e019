package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// MaintenanceScheduler runs periodic SQLite housekeeping (WAL checkpoint
// and planner statistics refresh) on a cron schedule. It never touches
// audit rows; the command log is append-only.
type MaintenanceScheduler struct {
	store    *SQLiteStore
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewMaintenanceScheduler creates a new maintenance scheduler.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//
// An empty schedule disables maintenance.
func NewMaintenanceScheduler(store *SQLiteStore, schedule string) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "store.maintenance"),
	}
}

// Start begins scheduled maintenance. If no schedule is configured the
// scheduler does nothing.
func (m *MaintenanceScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schedule == "" {
		m.logger.Info("maintenance schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(m.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.schedule, err)
	}

	_, err := m.cron.AddFunc(m.schedule, func() {
		m.runMaintenance(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("maintenance scheduler started", "schedule", m.schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// runMaintenance executes one housekeeping cycle.
func (m *MaintenanceScheduler) runMaintenance(ctx context.Context) {
	if err := m.store.Maintain(ctx); err != nil {
		m.logger.Error("scheduled maintenance failed", "error", err)
		return
	}
	m.logger.Info("scheduled maintenance completed")
}

// Stop stops the scheduler and waits for any running job to complete.
func (m *MaintenanceScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil && m.running {
		ctx := m.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		m.running = false
		m.logger.Info("maintenance scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (m *MaintenanceScheduler) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
