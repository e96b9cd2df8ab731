package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReportRepository handles report persistence
type ReportRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB, logger *slog.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: logger}
}

// Create stores a report record
func (r *ReportRepository) Create(ctx context.Context, record *ReportRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reports (
			id, report_id, user_id, overall_severity, total_cost,
			currency, image_file, document, created_at
		) VALUES (
			:id, :report_id, :user_id, :overall_severity, :total_cost,
			:currency, :image_file, :document, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		r.logger.Error("Failed to store report", "report_id", record.ReportID, "error", err)
		return fmt.Errorf("failed to store report: %w", err)
	}

	r.logger.Info("Report stored", "report_id", record.ReportID, "severity", record.OverallSeverity)
	return nil
}

// GetByReportID retrieves the most recent record for a report ID
func (r *ReportRepository) GetByReportID(ctx context.Context, reportID string) (*ReportRecord, error) {
	query := `
		SELECT * FROM reports
		WHERE report_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var record ReportRecord
	if err := r.db.GetContext(ctx, &record, query, reportID); err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", reportID, err)
	}

	return &record, nil
}

// List returns reports newest first along with the total count
func (r *ReportRepository) List(ctx context.Context, limit, offset int) ([]*ReportRecord, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reports`); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	query := `
		SELECT * FROM reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	records := []*ReportRecord{}
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	return records, total, nil
}

// DeleteOlderThan removes reports past the retention window and returns the
// number removed
func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reports: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete count: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("Expired reports removed", "count", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
