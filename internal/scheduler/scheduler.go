// Package scheduler runs the periodic maintenance jobs: expired-report
// cleanup and pricing-catalog reload.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/visionclaim/claims-engine/internal/catalog"
	"github.com/visionclaim/claims-engine/internal/config"
	"github.com/visionclaim/claims-engine/internal/database"
)

// Scheduler manages periodic tasks
type Scheduler struct {
	config       *config.Config
	logger       *slog.Logger
	cron         *cron.Cron
	reportRepo   *database.ReportRepository
	catalogStore *catalog.Store
}

// New creates a scheduler
func New(cfg *config.Config, logger *slog.Logger, reportRepo *database.ReportRepository, catalogStore *catalog.Store) *Scheduler {
	return &Scheduler{
		config:       cfg,
		logger:       logger,
		cron:         cron.New(cron.WithLocation(time.UTC)),
		reportRepo:   reportRepo,
		catalogStore: catalogStore,
	}
}

// Start registers and starts the periodic jobs
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	cleanupSpec := fmt.Sprintf("@every %s", s.config.Scheduler.CleanupInterval)
	if _, err := s.cron.AddFunc(cleanupSpec, s.cleanupReports); err != nil {
		return fmt.Errorf("failed to schedule report cleanup: %w", err)
	}

	if s.config.Catalog.ReloadInterval > 0 {
		reloadSpec := fmt.Sprintf("@every %s", s.config.Catalog.ReloadInterval)
		if _, err := s.cron.AddFunc(reloadSpec, s.reloadCatalog); err != nil {
			return fmt.Errorf("failed to schedule catalog reload: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		"cleanup_interval", s.config.Scheduler.CleanupInterval,
		"catalog_reload_interval", s.config.Catalog.ReloadInterval)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// cleanupReports removes reports past the retention window
func (s *Scheduler) cleanupReports() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.Scheduler.ReportRetentionDays)
	deleted, err := s.reportRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Report cleanup failed", "error", err)
		return
	}

	s.logger.Debug("Report cleanup completed", "deleted", deleted)
}

// reloadCatalog re-reads the pricing catalog and swaps it in atomically. A
// failed reload keeps the current catalog in effect.
func (s *Scheduler) reloadCatalog() {
	cat, err := catalog.Load(s.config.Catalog.Path)
	if err != nil {
		s.logger.Error("Catalog reload failed, keeping current catalog", "error", err)
		return
	}

	s.catalogStore.Swap(cat)
	s.logger.Info("Pricing catalog reloaded", "parts", len(cat.Parts))
}
