// Package review applies a manager's verdict on a live submission and
// hands approved jobs to settlement exactly once.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/jobs"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
	"github.com/scoutops/scoutops/pkg/observability"
)

// Store is the slice of the data layer the engine depends on.
type Store interface {
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	ReviewSubmission(ctx context.Context, params store.ReviewParams) error
}

// Settler issues the settlement for an approved job.
type Settler interface {
	Issue(ctx context.Context, job *models.Job, submissionID uuid.UUID) (*models.Payout, error)
}

// Engine reviews submissions.
type Engine struct {
	store    Store
	settler  Settler
	notifier notify.Notifier
}

// NewEngine creates a new Engine.
func NewEngine(st Store, settler Settler, n notify.Notifier) *Engine {
	return &Engine{store: st, settler: settler, notifier: n}
}

// Decision is a manager's verdict on a submission.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionResubmit Decision = "resubmit"
)

// VerdictInput is the per-step outcome attached to a decision.
type VerdictInput struct {
	JobStepID uuid.UUID
	Passed    bool
	Comment   *string
}

// ReviewInput carries a complete review request.
type ReviewInput struct {
	SubmissionID uuid.UUID
	TenantID     uuid.UUID
	ReviewerID   uuid.UUID
	Decision     Decision
	Notes        *string
	Verdicts     []VerdictInput
}

// Review applies the decision to a live submission and transitions its job.
// The submission update is conditional on status=submitted, so of two
// concurrent reviews exactly one wins; the loser gets a conflict. An
// approval triggers settlement after the winning write commits.
func (e *Engine) Review(ctx context.Context, in ReviewInput) (*models.Submission, error) {
	subStatus, event, err := outcomes(in.Decision)
	if err != nil {
		return nil, err
	}

	sub, err := e.store.GetSubmission(ctx, in.SubmissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: submission %s", errs.ErrNotFound, in.SubmissionID)
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if sub.TenantID != in.TenantID {
		return nil, fmt.Errorf("%w: submission %s", errs.ErrNotFound, in.SubmissionID)
	}
	if sub.Status != models.SubmissionStatusSubmitted {
		return nil, fmt.Errorf("%w: submission is already %s", errs.ErrConflict, sub.Status)
	}

	job, err := e.store.GetJob(ctx, sub.JobID, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	jobTo, err := jobs.Next(job.Status, event)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = e.store.ReviewSubmission(ctx, store.ReviewParams{
		SubmissionID: in.SubmissionID,
		JobID:        sub.JobID,
		ReviewerID:   in.ReviewerID,
		Decision:     subStatus,
		Notes:        in.Notes,
		Verdicts:     verdicts(in.Verdicts),
		JobFrom:      job.Status,
		JobTo:        jobTo,
		ReviewedAt:   now,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: submission was reviewed concurrently", errs.ErrConflict)
		}
		return nil, fmt.Errorf("review submission: %w", err)
	}

	observability.ReviewsCompleted.WithLabelValues(string(in.Decision)).Inc()
	e.notify(ctx, in, sub)

	if subStatus == models.SubmissionStatusApproved {
		job.Status = jobTo
		if _, err := e.settler.Issue(ctx, job, sub.ID); err != nil {
			// The review itself is committed; settlement can be retried
			// by support tooling against the unique payout-per-job index.
			slog.Error("settlement failed after approval", "job_id", job.ID, "submission_id", sub.ID, "error", err)
			return nil, fmt.Errorf("issue settlement: %w", err)
		}
	}

	return e.store.GetSubmission(ctx, in.SubmissionID)
}

func (e *Engine) notify(ctx context.Context, in ReviewInput, sub *models.Submission) {
	name := map[Decision]string{
		DecisionApprove:  notify.EventSubmissionApproved,
		DecisionReject:   notify.EventSubmissionRejected,
		DecisionResubmit: notify.EventResubmitRequested,
	}[in.Decision]
	e.notifier.Publish(ctx, notify.Event{
		Name: name, TenantID: in.TenantID, JobID: sub.JobID,
		SubmissionID: &sub.ID, ScoutID: &sub.ScoutID,
	})
}

// outcomes maps a decision to the submission's terminal status and the job
// lifecycle event it drives.
func outcomes(d Decision) (models.SubmissionStatus, jobs.Event, error) {
	switch d {
	case DecisionApprove:
		return models.SubmissionStatusApproved, jobs.EventApprove, nil
	case DecisionReject:
		return models.SubmissionStatusRejected, jobs.EventReject, nil
	case DecisionResubmit:
		return models.SubmissionStatusResubmitRequired, jobs.EventResubmit, nil
	}
	return "", "", fmt.Errorf("%w: unknown decision %q", errs.ErrValidation, d)
}

func verdicts(in []VerdictInput) []store.StepVerdict {
	out := make([]store.StepVerdict, 0, len(in))
	for _, v := range in {
		out = append(out, store.StepVerdict{JobStepID: v.JobStepID, Passed: v.Passed, Comment: v.Comment})
	}
	return out
}
