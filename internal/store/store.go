package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/pkg/models"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateKey is returned for a generic unique violation.
	ErrDuplicateKey = errors.New("duplicate key violation")
	// ErrDuplicateCode is returned when a voucher code collides; the
	// caller should regenerate and retry.
	ErrDuplicateCode = errors.New("voucher code already exists")
	// ErrPayoutExists is returned when a second payout is attempted for
	// the same job.
	ErrPayoutExists = errors.New("payout already exists for job")
	// ErrConflict is returned when a conditional status update matched
	// no row: the entity was not in the expected state, usually because
	// a concurrent caller got there first.
	ErrConflict = errors.New("state conflict")
)

// Store is the data access interface. All database operations go through
// here; multi-statement operations are single transactions inside the
// implementation.
type Store interface {
	Ping(ctx context.Context) error

	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)
	CreateMember(ctx context.Context, m *models.Member) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	CreateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) error
	GetTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Template, error)
	GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]models.TemplateStep, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]*models.Template, error)
	// UpdateTemplate bumps the version and replaces the whole step set
	// in one transaction. Existing jobs are untouched.
	UpdateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) (*models.Template, error)
	ArchiveTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	// CreateJobWithSteps inserts the job and its snapshotted steps as one
	// transaction; a job may never exist with zero steps.
	CreateJobWithSteps(ctx context.Context, job *models.Job, steps []models.JobStep) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetJobSteps(ctx context.Context, jobID uuid.UUID) ([]models.JobStep, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	// TransitionJob performs a conditional status update and stamps the
	// lifecycle timestamp matching the target status. ErrConflict when
	// the job was not in the expected state.
	TransitionJob(ctx context.Context, jobID uuid.UUID, from, to models.JobStatus, opts ...TransitionOption) error
	// ExpireOverdueJobs moves every posted job whose window has closed to
	// expired and returns the affected jobs.
	ExpireOverdueJobs(ctx context.Context, now time.Time) ([]*models.Job, error)

	// RecordSubmission persists the submission with its answers and media
	// and transitions the job to submitted, all in one transaction.
	RecordSubmission(ctx context.Context, sub *models.Submission, answers []models.StepAnswer, media []models.Media) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetSubmissionAnswers(ctx context.Context, submissionID uuid.UUID) ([]models.StepAnswer, error)
	GetSubmissionMedia(ctx context.Context, submissionID uuid.UUID) ([]models.Media, error)
	// ReviewSubmission applies per-step verdicts, moves the submission
	// from submitted to the decision, and transitions the job, as one
	// transaction. The submission update is conditional on its current
	// status being submitted; ErrConflict means another reviewer won.
	ReviewSubmission(ctx context.Context, p ReviewParams) error

	// CreateSettlement inserts the voucher (when non-nil) and the payout
	// as one transaction so a failure cannot leave an orphaned voucher.
	CreateSettlement(ctx context.Context, payout *models.Payout, voucher *models.Voucher) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	GetPayoutByJob(ctx context.Context, jobID uuid.UUID) (*models.Payout, error)
	// CompleteSettlement flips the payout to paid and the job from
	// approved to paid in one transaction.
	CompleteSettlement(ctx context.Context, payoutID uuid.UUID, tenantID uuid.UUID) (*models.Payout, error)
	GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error)
	RedeemVoucher(ctx context.Context, code string) (*models.Voucher, error)
	ExpireVouchers(ctx context.Context, now time.Time) (int64, error)

	AppendAuditLog(ctx context.Context, entry *models.AuditEntry) error
}

// JobFilter narrows and paginates job listings.
type JobFilter struct {
	TenantID uuid.UUID
	Status   models.JobStatus
	ScoutID  uuid.UUID
	Page     int
	Limit    int
}

// StepVerdict is one reviewer decision about one answer.
type StepVerdict struct {
	JobStepID uuid.UUID
	Passed    bool
	Comment   *string
}

// ReviewParams carries everything ReviewSubmission writes.
type ReviewParams struct {
	SubmissionID uuid.UUID
	JobID        uuid.UUID
	ReviewerID   uuid.UUID
	Decision     models.SubmissionStatus
	Notes        *string
	Verdicts     []StepVerdict
	JobFrom      models.JobStatus
	JobTo        models.JobStatus
	ReviewedAt   time.Time
}

// TransitionParams collects the optional effects of a job transition.
type TransitionParams struct {
	AssignScoutID *uuid.UUID
}

// TransitionOption customizes a job transition.
type TransitionOption func(*TransitionParams)

// WithAssignedScout records the accepting scout together with the
// transition.
func WithAssignedScout(id uuid.UUID) TransitionOption {
	return func(p *TransitionParams) {
		p.AssignScoutID = &id
	}
}

// ApplyTransitionOptions folds opts into a fresh TransitionParams. Used by
// store implementations.
func ApplyTransitionOptions(opts []TransitionOption) TransitionParams {
	var p TransitionParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
