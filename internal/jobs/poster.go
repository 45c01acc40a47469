package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/cache"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
	"github.com/scoutops/scoutops/pkg/observability"
)

// jobStatusTTL bounds how long a cached job status entry may go stale.
const jobStatusTTL = 30 * time.Minute

// Store is the slice of the data layer the poster depends on.
type Store interface {
	GetTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Template, error)
	GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]models.TemplateStep, error)
	CreateJobWithSteps(ctx context.Context, job *models.Job, steps []models.JobStep) error
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetJobSteps(ctx context.Context, jobID uuid.UUID) ([]models.JobStep, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error)
	TransitionJob(ctx context.Context, jobID uuid.UUID, from, to models.JobStatus, opts ...store.TransitionOption) error
	ExpireOverdueJobs(ctx context.Context, now time.Time) ([]*models.Job, error)
}

// Poster creates jobs from template snapshots and drives their lifecycle
// up to submission.
type Poster struct {
	store    Store
	cache    cache.Cache
	notifier notify.Notifier
}

// NewPoster creates a new Poster.
func NewPoster(st Store, c cache.Cache, n notify.Notifier) *Poster {
	return &Poster{store: st, cache: c, notifier: n}
}

// CreateJobInput carries everything needed to post a job.
type CreateJobInput struct {
	TenantID          uuid.UUID
	TemplateID        uuid.UUID
	LocationID        uuid.UUID
	Title             string
	RewardDescription string
	PayoutAmount      int64
	Currency          string
	PayoutType        models.PayoutType
	WindowStart       time.Time
	WindowEnd         time.Time
	VoucherExpiresAt  *time.Time
	Publish           bool
}

func (in CreateJobInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if in.LocationID == uuid.Nil {
		return fmt.Errorf("%w: location_id is required", errs.ErrValidation)
	}
	if !models.ValidPayoutType(in.PayoutType) {
		return fmt.Errorf("%w: unknown payout_type %q", errs.ErrValidation, in.PayoutType)
	}
	if in.PayoutAmount < 0 {
		return fmt.Errorf("%w: payout_amount must not be negative", errs.ErrValidation)
	}
	if in.Currency == "" {
		return fmt.Errorf("%w: currency is required", errs.ErrValidation)
	}
	if !in.WindowEnd.After(in.WindowStart) {
		return fmt.Errorf("%w: time window must end after it starts", errs.ErrValidation)
	}
	return nil
}

// Create snapshots the template's current version and steps into a new
// job. The snapshot is immutable: later template edits never reach it.
func (p *Poster) Create(ctx context.Context, in CreateJobInput) (*models.Job, []models.JobStep, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	tpl, err := p.store.GetTemplate(ctx, in.TemplateID, in.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: template %s", errs.ErrNotFound, in.TemplateID)
		}
		return nil, nil, fmt.Errorf("load template: %w", err)
	}
	if tpl.ArchivedAt != nil || !tpl.IsActive {
		return nil, nil, fmt.Errorf("%w: template %s is not active", errs.ErrConflict, tpl.ID)
	}

	tplSteps, err := p.store.GetTemplateSteps(ctx, tpl.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load template steps: %w", err)
	}
	if len(tplSteps) == 0 {
		return nil, nil, fmt.Errorf("%w: template %s has no steps", errs.ErrValidation, tpl.ID)
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:                uuid.New(),
		TenantID:          in.TenantID,
		TemplateID:        tpl.ID,
		TemplateVersion:   tpl.Version,
		LocationID:        in.LocationID,
		Title:             in.Title,
		RewardDescription: in.RewardDescription,
		Status:            models.JobStatusDraft,
		PayoutAmount:      in.PayoutAmount,
		Currency:          in.Currency,
		PayoutType:        in.PayoutType,
		WindowStart:       in.WindowStart,
		WindowEnd:         in.WindowEnd,
		VoucherExpiresAt:  in.VoucherExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Publish {
		job.Status = models.JobStatusPosted
		job.PostedAt = &now
	}

	steps := make([]models.JobStep, 0, len(tplSteps))
	for _, ts := range tplSteps {
		steps = append(steps, models.JobStep{
			ID:         uuid.New(),
			JobID:      job.ID,
			OrderIndex: ts.OrderIndex,
			Prompt:     ts.Prompt,
			StepType:   ts.StepType,
			IsRequired: ts.IsRequired,
			MinPhotos:  ts.MinPhotos,
			MinVideos:  ts.MinVideos,
			Rules:      ts.Rules,
		})
	}

	if err := p.store.CreateJobWithSteps(ctx, job, steps); err != nil {
		return nil, nil, fmt.Errorf("create job: %w", err)
	}
	_ = p.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL)

	if job.Status == models.JobStatusPosted {
		observability.JobsPosted.Inc()
		p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobPosted, TenantID: job.TenantID, JobID: job.ID})
	}
	return job, steps, nil
}

// Publish moves a draft job to posted.
func (p *Poster) Publish(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Job, error) {
	job, err := p.transition(ctx, jobID, tenantID, EventPublish)
	if err != nil {
		return nil, err
	}
	observability.JobsPosted.Inc()
	p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobPosted, TenantID: tenantID, JobID: jobID})
	return job, nil
}

// Cancel cancels a draft or posted job.
func (p *Poster) Cancel(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Job, error) {
	job, err := p.transition(ctx, jobID, tenantID, EventCancel)
	if err != nil {
		return nil, err
	}
	p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobCancelled, TenantID: tenantID, JobID: jobID})
	return job, nil
}

// Accept assigns the calling scout to a posted job.
func (p *Poster) Accept(ctx context.Context, jobID, tenantID, scoutID uuid.UUID) (*models.Job, error) {
	job, err := p.load(ctx, jobID, tenantID)
	if err != nil {
		return nil, err
	}
	to, err := Next(job.Status, EventAccept)
	if err != nil {
		return nil, err
	}
	if err := p.store.TransitionJob(ctx, jobID, job.Status, to, store.WithAssignedScout(scoutID)); err != nil {
		return nil, mapTransitionErr(err)
	}
	_ = p.cache.SetJobStatus(ctx, jobID, to, jobStatusTTL)
	p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobAccepted, TenantID: tenantID, JobID: jobID, ScoutID: &scoutID})
	return p.load(ctx, jobID, tenantID)
}

// Start moves an accepted job to in_progress. Only the assigned scout may
// start it.
func (p *Poster) Start(ctx context.Context, jobID, tenantID, scoutID uuid.UUID) (*models.Job, error) {
	job, err := p.load(ctx, jobID, tenantID)
	if err != nil {
		return nil, err
	}
	if job.AssignedScoutID == nil || *job.AssignedScoutID != scoutID {
		return nil, fmt.Errorf("%w: job is not assigned to caller", errs.ErrForbidden)
	}
	to, err := Next(job.Status, EventStart)
	if err != nil {
		return nil, err
	}
	if err := p.store.TransitionJob(ctx, jobID, job.Status, to); err != nil {
		return nil, mapTransitionErr(err)
	}
	_ = p.cache.SetJobStatus(ctx, jobID, to, jobStatusTTL)
	p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobStarted, TenantID: tenantID, JobID: jobID, ScoutID: &scoutID})
	return p.load(ctx, jobID, tenantID)
}

// ExpireOverdue is invoked by the external scheduler. It expires every
// posted job whose window closed before now.
func (p *Poster) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := p.store.ExpireOverdueJobs(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire overdue jobs: %w", err)
	}
	for _, job := range expired {
		observability.JobsExpired.Inc()
		_ = p.cache.SetJobStatus(ctx, job.ID, models.JobStatusExpired, jobStatusTTL)
		p.notifier.Publish(ctx, notify.Event{Name: notify.EventJobExpired, TenantID: job.TenantID, JobID: job.ID})
	}
	return len(expired), nil
}

// Get returns a job with its snapshotted steps.
func (p *Poster) Get(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Job, []models.JobStep, error) {
	job, err := p.load(ctx, jobID, tenantID)
	if err != nil {
		return nil, nil, err
	}
	steps, err := p.store.GetJobSteps(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job steps: %w", err)
	}
	return job, steps, nil
}

// List returns jobs matching the filter with the total count.
func (p *Poster) List(ctx context.Context, filter store.JobFilter) ([]*models.Job, int, error) {
	return p.store.ListJobs(ctx, filter)
}

func (p *Poster) transition(ctx context.Context, jobID, tenantID uuid.UUID, ev Event) (*models.Job, error) {
	job, err := p.load(ctx, jobID, tenantID)
	if err != nil {
		return nil, err
	}
	to, err := Next(job.Status, ev)
	if err != nil {
		return nil, err
	}
	if err := p.store.TransitionJob(ctx, jobID, job.Status, to); err != nil {
		return nil, mapTransitionErr(err)
	}
	_ = p.cache.SetJobStatus(ctx, jobID, to, jobStatusTTL)
	return p.load(ctx, jobID, tenantID)
}

func (p *Poster) load(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Job, error) {
	job, err := p.store.GetJob(ctx, jobID, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: job %s", errs.ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

func mapTransitionErr(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: job changed state concurrently", errs.ErrConflict)
	}
	return err
}
