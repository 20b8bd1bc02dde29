package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storecopy-api/internal/model"
)

// MySQLJobRepository implements JobRepository using MySQL.
type MySQLJobRepository struct {
	db *sql.DB
}

// NewMySQLJobRepository creates a new MySQL job repository.
func NewMySQLJobRepository(db *sql.DB) *MySQLJobRepository {
	return &MySQLJobRepository{db: db}
}

const mysqlJobColumns = `id, shop_domain, type, status, config, total_items, processed_items, COALESCE(error_message, ''), created_at, updated_at`

// Create inserts a job in queued status.
func (r *MySQLJobRepository) Create(ctx context.Context, job *model.BulkJob) error {
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
// SELECT ... FOR UPDATE SKIP LOCKED inside a transaction means concurrent
// workers each lock a different row, so exactly one wins per job.
func (r *MySQLJobRepository) ClaimNextQueued(ctx context.Context) (*model.BulkJob, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+mysqlJobColumns+`
		FROM bulk_jobs
		WHERE status = 'queued'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select queued job: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bulk_jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'queued'`,
		time.Now().UTC(), job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	job.Status = model.JobStatusRunning
	return job, nil
}

// SetProgress records processed items, capped at the job's total.
func (r *MySQLJobRepository) SetProgress(ctx context.Context, jobID string, processed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bulk_jobs
		SET processed_items = LEAST(?, total_items), updated_at = ?
		WHERE id = ? AND status = 'running'`,
		processed, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a running job as completed.
func (r *MySQLJobRepository) MarkCompleted(ctx context.Context, jobID string) error {
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
func (r *MySQLJobRepository) MarkFailed(ctx context.Context, jobID, message string) error {
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
func (r *MySQLJobRepository) ListByShop(ctx context.Context, shopDomain string, limit int) ([]*model.BulkJob, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mysqlJobColumns+`
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
func (r *MySQLJobRepository) FindByID(ctx context.Context, shopDomain, jobID string) (*model.BulkJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mysqlJobColumns+`
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

// Ensure MySQLJobRepository implements JobRepository
var _ JobRepository = (*MySQLJobRepository)(nil)
