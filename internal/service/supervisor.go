package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

// Escalation cadence: owners first hear about a persistent problem at the
// 4th consecutive failure, then roughly once per day on an hourly cycle.
// Anything noisier trains operators to ignore the alert.
const (
	escalationFirst  = 4
	escalationPeriod = 48
)

// Status is a point-in-time view of the supervisor for the health endpoint.
type Status struct {
	LastCycleID         string    `json:"last_cycle_id,omitempty"`
	LastCycleStart      time.Time `json:"last_cycle_start"`
	LastCycleEnd        time.Time `json:"last_cycle_end"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CyclesRun           int       `json:"cycles_run"`
	ProcessedLastCycle  int       `json:"processed_last_cycle"`
}

// Supervisor drives one reconciliation cycle per interval, classifies
// failures, and escalates sustained failure to workspace owners on the
// fixed cadence. It owns the only cross-cycle state in the system: the
// consecutive-failure counter. The loop never exits on error; only context
// cancellation stops it.
type Supervisor struct {
	directory  domain.DirectoryEnumerator
	inventory  InventorySource
	reconciler *Reconciler
	revoker    *Revoker
	interval   time.Duration
	schedule   string
	logger     *slog.Logger

	runMu    sync.Mutex // at most one cycle at a time under cron
	mu       sync.Mutex // guards failures and status
	failures int
	status   Status
}

// NewSupervisor creates a Supervisor. When schedule is a non-empty cron
// expression it replaces the fixed interval.
func NewSupervisor(directory domain.DirectoryEnumerator, inventory InventorySource, reconciler *Reconciler, revoker *Revoker, interval time.Duration, schedule string, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		directory:  directory,
		inventory:  inventory,
		reconciler: reconciler,
		revoker:    revoker,
		interval:   interval,
		schedule:   schedule,
		logger:     logger,
	}
}

// Run loops until ctx is canceled, running one cycle then sleeping for the
// configured interval (or running on the cron schedule when one is set).
func (s *Supervisor) Run(ctx context.Context) error {
	if s.schedule != "" {
		return s.runScheduled(ctx)
	}

	for {
		_ = s.RunCycle(ctx)
		s.logger.Info("sleeping until next cycle", "interval", s.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// runScheduled runs cycles on the configured cron expression instead of a
// fixed interval. Cron fires jobs in their own goroutine, so an overlap
// guard keeps cycles strictly sequential.
func (s *Supervisor) runScheduled(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if !s.runMu.TryLock() {
			s.logger.Warn("previous cycle still running, skipping scheduled cycle")
			return
		}
		defer s.runMu.Unlock()
		_ = s.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.logger.Info("supervisor running on cron schedule", "schedule", s.schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// RunCycle executes one reconciliation cycle to completion and applies the
// failure-counting and escalation policy. The returned error is the cycle's
// classified failure, already handled; callers other than tests and the
// one-shot command can ignore it.
func (s *Supervisor) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	logger := s.logger.With("cycle_id", cycleID)
	start := time.Now()
	logger.Info("looking for workspace accounts that are absent from the corporate directory")

	processed, err := s.cycle(ctx, logger)

	s.mu.Lock()
	s.status.LastCycleID = cycleID
	s.status.LastCycleStart = start
	s.status.LastCycleEnd = time.Now()
	s.status.CyclesRun++
	s.status.ProcessedLastCycle = processed
	if err == nil {
		s.failures = 0
		s.status.LastError = ""
	} else {
		s.failures++
		s.status.LastError = err.Error()
	}
	s.status.ConsecutiveFailures = s.failures
	failures := s.failures
	s.mu.Unlock()

	if err != nil {
		logger.Error("reconciliation cycle failed", "error", err, "consecutive_failures", failures)
		if failures%escalationPeriod == escalationFirst {
			s.escalate(ctx, err, failures, logger)
		}
	}
	return err
}

// cycle is one pass of snapshot, enumerate, reconcile, revoke.
func (s *Supervisor) cycle(ctx context.Context, logger *slog.Logger) (int, error) {
	snap, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	members, err := s.directory.FetchActiveMembers(ctx)
	if err != nil {
		return 0, err
	}
	candidates, ratio, err := s.reconciler.Reconcile(snap.Accounts, members, snap.Guests)
	if err != nil {
		return 0, err
	}
	processed, failed := s.revoker.RevokeAll(ctx, candidates, snap.Owners)

	logger.Info("cycle complete",
		"accounts", len(snap.Accounts),
		"directory_members", members.Len(),
		"candidates", len(candidates),
		"ratio", ratio,
		"processed", processed,
		"revoke_failures", failed,
	)
	return processed, nil
}

// escalate sends one summary message to every current owner. Owners are
// fetched fresh; if that fetch fails too, the escalation is logged and
// dropped rather than allowed to kill the loop.
func (s *Supervisor) escalate(ctx context.Context, cycleErr error, failures int, logger *slog.Logger) {
	snap, err := s.inventory.Snapshot(ctx)
	if err != nil {
		logger.Error("escalation aborted, could not fetch owners", "error", err)
		return
	}
	msg := fmt.Sprintf("Workspace reconciliation has failed %d consecutive cycles and needs attention. Most recent error: %v", failures, cycleErr)
	s.revoker.NotifyOwners(ctx, msg, snap.Owners)
	logger.Info("escalated to workspace owners", "owners", len(snap.Owners), "consecutive_failures", failures)
}

// Status returns a copy of the supervisor's current state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
