package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scoutops/scoutops/pkg/models"
)

const jobColumns = `id, tenant_id, template_id, template_version, location_id, title, reward_description,
	status, payout_amount, currency, payout_type, assigned_scout_id, window_start, window_end,
	voucher_expires_at, posted_at, accepted_at, submitted_at, approved_at, rejected_at, paid_at,
	created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.TenantID, &j.TemplateID, &j.TemplateVersion, &j.LocationID, &j.Title,
		&j.RewardDescription, &j.Status, &j.PayoutAmount, &j.Currency, &j.PayoutType, &j.AssignedScoutID,
		&j.WindowStart, &j.WindowEnd, &j.VoucherExpiresAt, &j.PostedAt, &j.AcceptedAt, &j.SubmittedAt,
		&j.ApprovedAt, &j.RejectedAt, &j.PaidAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJobWithSteps(ctx context.Context, job *models.Job, steps []models.JobStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("create job: zero steps")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create job: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, template_id, template_version, location_id, title, reward_description,
		                   status, payout_amount, currency, payout_type, window_start, window_end,
		                   voucher_expires_at, posted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		job.ID, job.TenantID, job.TemplateID, job.TemplateVersion, job.LocationID, job.Title,
		job.RewardDescription, job.Status, job.PayoutAmount, job.Currency, job.PayoutType,
		job.WindowStart, job.WindowEnd, job.VoucherExpiresAt, job.PostedAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	for _, st := range steps {
		_, err := tx.Exec(ctx,
			`INSERT INTO job_steps (id, job_id, order_index, prompt, step_type, is_required, min_photos, min_videos, rules)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			st.ID, job.ID, st.OrderIndex, st.Prompt, st.StepType, st.IsRequired, st.MinPhotos, st.MinVideos, st.Rules)
		if err != nil {
			return fmt.Errorf("insert job step %d: %w", st.OrderIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND tenant_id = $2`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJobSteps(ctx context.Context, jobID uuid.UUID) ([]models.JobStep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, order_index, prompt, step_type, is_required, min_photos, min_videos, rules
		 FROM job_steps WHERE job_id = $1 ORDER BY order_index ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job steps: %w", err)
	}
	defer rows.Close()

	var steps []models.JobStep
	for rows.Next() {
		var st models.JobStep
		if err := rows.Scan(&st.ID, &st.JobID, &st.OrderIndex, &st.Prompt, &st.StepType,
			&st.IsRequired, &st.MinPhotos, &st.MinVideos, &st.Rules); err != nil {
			return nil, fmt.Errorf("scan job step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.ScoutID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("assigned_scout_id = $%d", argIdx))
		args = append(args, filter.ScoutID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		jobColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// stampColumn maps a target status to the lifecycle timestamp it sets.
func stampColumn(to models.JobStatus) string {
	switch to {
	case models.JobStatusPosted:
		return "posted_at"
	case models.JobStatusAccepted:
		return "accepted_at"
	case models.JobStatusSubmitted:
		return "submitted_at"
	case models.JobStatusApproved:
		return "approved_at"
	case models.JobStatusRejected:
		return "rejected_at"
	case models.JobStatusPaid:
		return "paid_at"
	}
	return ""
}

func (s *PostgresStore) TransitionJob(ctx context.Context, jobID uuid.UUID, from, to models.JobStatus, opts ...TransitionOption) error {
	p := ApplyTransitionOptions(opts)

	sets := []string{"status = $1", "updated_at = NOW()"}
	args := []any{to}
	argIdx := 2

	if col := stampColumn(to); col != "" {
		sets = append(sets, col+" = NOW()")
	}
	if p.AssignScoutID != nil {
		sets = append(sets, fmt.Sprintf("assigned_scout_id = $%d", argIdx))
		args = append(args, *p.AssignScoutID)
		argIdx++
	}

	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = $%d AND status = $%d",
		strings.Join(sets, ", "), argIdx, argIdx+1)
	args = append(args, jobID, from)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) ExpireOverdueJobs(ctx context.Context, now time.Time) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE jobs SET status = 'expired', updated_at = NOW()
		 WHERE status = 'posted' AND window_end < $1
		 RETURNING `+jobColumns, now)
	if err != nil {
		return nil, fmt.Errorf("expire overdue jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
