package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storecopy-api/internal/model"
)

// SQLiteJobRepository implements JobRepository using SQLite.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository creates a new SQLite job repository.
func NewSQLiteJobRepository(db *sql.DB) *SQLiteJobRepository {
	return &SQLiteJobRepository{db: db}
}

const sqliteJobColumns = `id, shop_domain, type, status, config, total_items, processed_items, error_message, created_at, updated_at`

// Create inserts a job in queued status.
func (r *SQLiteJobRepository) Create(ctx context.Context, job *model.BulkJob) error {
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to serialize job config: %w", err)
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bulk_jobs (id, shop_domain, type, status, config, total_items, processed_items, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
		job.ID, job.ShopDomain, string(job.Type), string(job.Status), string(configJSON),
		job.TotalItems, job.ProcessedItems, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// ClaimNextQueued claims the oldest queued job across all shops.
// The claim is one conditional UPDATE, so two workers cannot both win a job.
func (r *SQLiteJobRepository) ClaimNextQueued(ctx context.Context) (*model.BulkJob, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE bulk_jobs
		SET status = 'running', updated_at = ?
		WHERE id = (
			SELECT id FROM bulk_jobs
			WHERE status = 'queued'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
		)
		RETURNING `+sqliteJobColumns,
		time.Now().UTC())

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim queued job: %w", err)
	}
	return job, nil
}

// SetProgress records processed items, capped at the job's total.
func (r *SQLiteJobRepository) SetProgress(ctx context.Context, jobID string, processed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bulk_jobs
		SET processed_items = MIN(?, total_items), updated_at = ?
		WHERE id = ? AND status = 'running'`,
		processed, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a running job as completed.
func (r *SQLiteJobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bulk_jobs
		SET status = 'completed', processed_items = total_items, updated_at = ?
		WHERE id = ? AND status = 'running'`,
		time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return requireAffected(res)
}

// MarkFailed finalizes a non-terminal job as failed with a message.
func (r *SQLiteJobRepository) MarkFailed(ctx context.Context, jobID, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bulk_jobs
		SET status = 'failed', error_message = ?, updated_at = ?
		WHERE id = ? AND status IN ('queued', 'running')`,
		message, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return requireAffected(res)
}

// ListByShop returns the shop's most recent jobs, newest first.
func (r *SQLiteJobRepository) ListByShop(ctx context.Context, shopDomain string, limit int) ([]*model.BulkJob, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sqliteJobColumns+`
		FROM bulk_jobs
		WHERE shop_domain = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, shopDomain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.BulkJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FindByID returns the job only when it belongs to shopDomain.
func (r *SQLiteJobRepository) FindByID(ctx context.Context, shopDomain, jobID string) (*model.BulkJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sqliteJobColumns+`
		FROM bulk_jobs
		WHERE id = ? AND shop_domain = ?`, jobID, shopDomain)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return job, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.BulkJob, error) {
	var job model.BulkJob
	var jobType, status, configJSON string
	if err := row.Scan(
		&job.ID, &job.ShopDomain, &jobType, &status, &configJSON,
		&job.TotalItems, &job.ProcessedItems, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Type = model.JobType(jobType)
	job.Status = model.JobStatus(status)
	if err := json.Unmarshal([]byte(configJSON), &job.Config); err != nil {
		return nil, fmt.Errorf("failed to parse job config: %w", err)
	}
	return &job, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure SQLiteJobRepository implements JobRepository
var _ JobRepository = (*SQLiteJobRepository)(nil)
