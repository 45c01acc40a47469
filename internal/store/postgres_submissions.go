package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scoutops/scoutops/pkg/models"
)

func (s *PostgresStore) RecordSubmission(ctx context.Context, sub *models.Submission, answers []models.StepAnswer, media []models.Media) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record submission: %w", err)
	}
	defer tx.Rollback(ctx)

	// The job moves to submitted only from accepted/in_progress; losing
	// this conditional update means the job is not open for submission.
	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status IN ('accepted', 'in_progress')`, sub.JobID)
	if err != nil {
		return fmt.Errorf("transition job to submitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO submissions (id, job_id, tenant_id, scout_id, status, notes, submitted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.JobID, sub.TenantID, sub.ScoutID, sub.Status, sub.Notes, sub.SubmittedAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		// The partial unique index on live submissions makes a second
		// concurrent submit lose here.
		if isDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	for _, a := range answers {
		_, err := tx.Exec(ctx,
			`INSERT INTO step_answers (id, submission_id, job_step_id, answer, step_status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			a.ID, sub.ID, a.JobStepID, a.Value, a.StepStatus, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert step answer: %w", err)
		}
	}

	for _, m := range media {
		_, err := tx.Exec(ctx,
			`INSERT INTO media (id, submission_id, job_step_id, media_type, storage_path, captured_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, sub.ID, m.JobStepID, m.MediaType, m.StoragePath, m.CapturedAt, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var sub models.Submission
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_id, tenant_id, scout_id, status, notes, submitted_at, reviewed_at, reviewer_id, reviewer_notes, created_at, updated_at
		 FROM submissions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.JobID, &sub.TenantID, &sub.ScoutID, &sub.Status, &sub.Notes, &sub.SubmittedAt,
		&sub.ReviewedAt, &sub.ReviewerID, &sub.ReviewerNotes, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubmissionAnswers(ctx context.Context, submissionID uuid.UUID) ([]models.StepAnswer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.submission_id, a.job_step_id, a.answer, a.step_status, a.reviewer_comment, a.created_at
		 FROM step_answers a
		 JOIN job_steps js ON js.id = a.job_step_id
		 WHERE a.submission_id = $1
		 ORDER BY js.order_index ASC`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission answers: %w", err)
	}
	defer rows.Close()

	var answers []models.StepAnswer
	for rows.Next() {
		var a models.StepAnswer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.JobStepID, &a.Value, &a.StepStatus,
			&a.ReviewerComment, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *PostgresStore) GetSubmissionMedia(ctx context.Context, submissionID uuid.UUID) ([]models.Media, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.submission_id, m.job_step_id, m.media_type, m.storage_path, m.captured_at, m.created_at
		 FROM media m
		 JOIN job_steps js ON js.id = m.job_step_id
		 WHERE m.submission_id = $1
		 ORDER BY js.order_index ASC, m.captured_at ASC`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission media: %w", err)
	}
	defer rows.Close()

	var media []models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.SubmissionID, &m.JobStepID, &m.MediaType, &m.StoragePath,
			&m.CapturedAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (s *PostgresStore) ReviewSubmission(ctx context.Context, p ReviewParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review submission: %w", err)
	}
	defer tx.Rollback(ctx)

	// Conditional update is the double-settlement gate: only the caller
	// that actually moves the submission out of 'submitted' proceeds.
	tag, err := tx.Exec(ctx,
		`UPDATE submissions
		 SET status = $2, reviewed_at = $3, reviewer_id = $4, reviewer_notes = $5, updated_at = NOW()
		 WHERE id = $1 AND status = 'submitted'`,
		p.SubmissionID, p.Decision, p.ReviewedAt, p.ReviewerID, p.Notes)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	for _, v := range p.Verdicts {
		status := models.StepAnswerFailed
		if v.Passed {
			status = models.StepAnswerPassed
		}
		_, err := tx.Exec(ctx,
			`UPDATE step_answers SET step_status = $3, reviewer_comment = $4
			 WHERE submission_id = $1 AND job_step_id = $2`,
			p.SubmissionID, v.JobStepID, status, v.Comment)
		if err != nil {
			return fmt.Errorf("update step answer verdict: %w", err)
		}
	}

	sets := "status = $2, updated_at = NOW()"
	if col := stampColumn(p.JobTo); col != "" {
		sets += ", " + col + " = NOW()"
	}
	tag, err = tx.Exec(ctx,
		fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $1 AND status = $3`, sets),
		p.JobID, p.JobTo, p.JobFrom)
	if err != nil {
		return fmt.Errorf("transition job after review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return tx.Commit(ctx)
}
