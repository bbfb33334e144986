// Package scheduler runs periodic database maintenance: expired session
// purging, audit log trimming, and SQLite planner stat refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/anshuman365/gofusion/internal/config"
	"github.com/anshuman365/gofusion/internal/database"
)

// Scheduler owns the cron instance driving maintenance jobs.
type Scheduler struct {
	db     *database.DB
	loader *config.Loader
	cron   *cron.Cron
}

// New creates a scheduler; call Start to register and begin jobs.
func New(db *database.DB, loader *config.Loader) *Scheduler {
	return &Scheduler{
		db:     db,
		loader: loader,
		cron:   cron.New(),
	}
}

// Start registers the maintenance jobs with their configured schedules and
// starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name        string
		settingKey  string
		defaultCron string
		fn          func()
	}{
		{"session_purge", "maintenance.session_purge_cron", "@every 15m", s.purgeSessions},
		{"audit_trim", "maintenance.audit_trim_cron", "@daily", s.trimAudit},
		{"optimize", "maintenance.optimize_cron", "@daily", s.optimize},
	}

	for _, job := range jobs {
		spec := s.loader.String(ctx, job.settingKey, job.defaultCron)
		if _, err := s.cron.AddFunc(spec, job.fn); err != nil {
			return fmt.Errorf("failed to schedule %s (%q): %w", job.name, spec, err)
		}
		log.Debug().Str("job", job.name).Str("schedule", spec).Msg("Maintenance job scheduled")
	}

	s.cron.Start()
	log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.db.DeleteExpiredSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired sessions")
		return
	}
	if n > 0 {
		log.Debug().Int64("count", n).Msg("Expired sessions purged")
	}
}

func (s *Scheduler) trimAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	days := s.loader.Int(ctx, "maintenance.audit_retention_days", 90)
	if days <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := s.db.PurgeAuditBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to trim audit log")
		return
	}
	if n > 0 {
		log.Debug().Int64("count", n).Int("retention_days", days).Msg("Audit log trimmed")
	}
}

func (s *Scheduler) optimize() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.db.Optimize(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to optimize database")
	}
}
