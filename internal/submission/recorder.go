// Package submission records a scout's answers and evidence media against
// a job's frozen step snapshot.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/jobs"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
	"github.com/scoutops/scoutops/pkg/observability"
)

// Store is the slice of the data layer the recorder depends on.
type Store interface {
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetJobSteps(ctx context.Context, jobID uuid.UUID) ([]models.JobStep, error)
	RecordSubmission(ctx context.Context, sub *models.Submission, answers []models.StepAnswer, media []models.Media) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetSubmissionAnswers(ctx context.Context, submissionID uuid.UUID) ([]models.StepAnswer, error)
	GetSubmissionMedia(ctx context.Context, submissionID uuid.UUID) ([]models.Media, error)
}

// Recorder validates and persists field submissions.
type Recorder struct {
	store    Store
	notifier notify.Notifier
}

// NewRecorder creates a new Recorder.
func NewRecorder(st Store, n notify.Notifier) *Recorder {
	return &Recorder{store: st, notifier: n}
}

// AnswerInput is one answer in a submit request.
type AnswerInput struct {
	JobStepID uuid.UUID
	Value     models.AnswerValue
}

// MediaInput is one piece of evidence in a submit request.
type MediaInput struct {
	JobStepID   uuid.UUID
	MediaType   models.MediaType
	StoragePath string
	CapturedAt  time.Time
}

// SubmitInput carries a complete submit request.
type SubmitInput struct {
	JobID    uuid.UUID
	TenantID uuid.UUID
	ScoutID  uuid.UUID
	Answers  []AnswerInput
	Media    []MediaInput
	Notes    string
}

// Submit validates the scout's answers and media against the job's step
// snapshot and persists everything atomically, moving the job to
// submitted. All validation happens before any write.
func (r *Recorder) Submit(ctx context.Context, in SubmitInput) (*models.Submission, error) {
	job, err := r.store.GetJob(ctx, in.JobID, in.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: job %s", errs.ErrNotFound, in.JobID)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	if !jobs.CanSubmit(job.Status) {
		return nil, fmt.Errorf("%w: job is %s, submissions need accepted or in_progress", errs.ErrConflict, job.Status)
	}
	if job.AssignedScoutID == nil || *job.AssignedScoutID != in.ScoutID {
		return nil, fmt.Errorf("%w: job is not assigned to caller", errs.ErrForbidden)
	}

	steps, err := r.store.GetJobSteps(ctx, in.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job steps: %w", err)
	}

	if err := validate(steps, in.Answers, in.Media); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &models.Submission{
		ID:          uuid.New(),
		JobID:       in.JobID,
		TenantID:    in.TenantID,
		ScoutID:     in.ScoutID,
		Status:      models.SubmissionStatusSubmitted,
		Notes:       in.Notes,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	answers := make([]models.StepAnswer, 0, len(in.Answers))
	for _, a := range in.Answers {
		answers = append(answers, models.StepAnswer{
			ID:           uuid.New(),
			SubmissionID: sub.ID,
			JobStepID:    a.JobStepID,
			Value:        a.Value,
			StepStatus:   models.StepAnswerPending,
			CreatedAt:    now,
		})
	}

	media := make([]models.Media, 0, len(in.Media))
	for _, m := range in.Media {
		media = append(media, models.Media{
			ID:           uuid.New(),
			SubmissionID: sub.ID,
			JobStepID:    m.JobStepID,
			MediaType:    m.MediaType,
			StoragePath:  m.StoragePath,
			CapturedAt:   m.CapturedAt,
			CreatedAt:    now,
		})
	}

	if err := r.store.RecordSubmission(ctx, sub, answers, media); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: job already has a live submission", errs.ErrConflict)
		}
		return nil, fmt.Errorf("record submission: %w", err)
	}

	observability.SubmissionsRecorded.Inc()
	r.notifier.Publish(ctx, notify.Event{
		Name: notify.EventJobSubmitted, TenantID: in.TenantID, JobID: in.JobID,
		SubmissionID: &sub.ID, ScoutID: &in.ScoutID,
	})
	return sub, nil
}

// Get returns a submission with its answers and media, scoped to a tenant.
func (r *Recorder) Get(ctx context.Context, id, tenantID uuid.UUID) (*models.Submission, []models.StepAnswer, []models.Media, error) {
	sub, err := r.store.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: submission %s", errs.ErrNotFound, id)
		}
		return nil, nil, nil, fmt.Errorf("load submission: %w", err)
	}
	if sub.TenantID != tenantID {
		return nil, nil, nil, fmt.Errorf("%w: submission %s", errs.ErrNotFound, id)
	}
	answers, err := r.store.GetSubmissionAnswers(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load answers: %w", err)
	}
	media, err := r.store.GetSubmissionMedia(ctx, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load media: %w", err)
	}
	return sub, answers, media, nil
}

// validate checks every precondition before any write: answers reference
// steps of this job, required steps are answered with type-correct values,
// and photo/video steps carry enough media.
func validate(steps []models.JobStep, answers []AnswerInput, media []MediaInput) error {
	stepsByID := make(map[uuid.UUID]models.JobStep, len(steps))
	for _, st := range steps {
		stepsByID[st.ID] = st
	}

	answered := make(map[uuid.UUID]bool, len(answers))
	for _, a := range answers {
		st, ok := stepsByID[a.JobStepID]
		if !ok {
			return fmt.Errorf("%w: answer references step %s not belonging to this job", errs.ErrValidation, a.JobStepID)
		}
		if answered[a.JobStepID] {
			return fmt.Errorf("%w: duplicate answer for step %s", errs.ErrValidation, a.JobStepID)
		}
		answered[a.JobStepID] = true

		if !a.Value.Matches(st.StepType) {
			return fmt.Errorf("%w: step %d expects a %s answer, got %s",
				errs.ErrValidation, st.OrderIndex, st.StepType, a.Value.Kind())
		}
		if err := checkRules(st, a.Value); err != nil {
			return err
		}
	}

	photoCount := make(map[uuid.UUID]int)
	videoCount := make(map[uuid.UUID]int)
	for _, m := range media {
		if _, ok := stepsByID[m.JobStepID]; !ok {
			return fmt.Errorf("%w: media references step %s not belonging to this job", errs.ErrValidation, m.JobStepID)
		}
		switch m.MediaType {
		case models.MediaTypePhoto:
			photoCount[m.JobStepID]++
		case models.MediaTypeVideo:
			videoCount[m.JobStepID]++
		default:
			return fmt.Errorf("%w: unknown media type %q", errs.ErrValidation, m.MediaType)
		}
		if m.StoragePath == "" {
			return fmt.Errorf("%w: media is missing a storage path", errs.ErrValidation)
		}
	}

	for _, st := range steps {
		if st.IsRequired && !answered[st.ID] {
			return fmt.Errorf("%w: required step %d has no answer", errs.ErrValidation, st.OrderIndex)
		}
		if photoCount[st.ID] < st.MinPhotos {
			return fmt.Errorf("%w: step %d needs at least %d photos, got %d",
				errs.ErrValidation, st.OrderIndex, st.MinPhotos, photoCount[st.ID])
		}
		if videoCount[st.ID] < st.MinVideos {
			return fmt.Errorf("%w: step %d needs at least %d videos, got %d",
				errs.ErrValidation, st.OrderIndex, st.MinVideos, videoCount[st.ID])
		}
	}
	return nil
}

func checkRules(st models.JobStep, v models.AnswerValue) error {
	if r := st.Rules.Text; r != nil && v.Text != nil {
		if r.MinLength > 0 && len(*v.Text) < r.MinLength {
			return fmt.Errorf("%w: step %d answer shorter than %d characters", errs.ErrValidation, st.OrderIndex, r.MinLength)
		}
		if r.MaxLength > 0 && len(*v.Text) > r.MaxLength {
			return fmt.Errorf("%w: step %d answer longer than %d characters", errs.ErrValidation, st.OrderIndex, r.MaxLength)
		}
	}
	if r := st.Rules.Number; r != nil && v.Number != nil {
		if r.Min != nil && *v.Number < *r.Min {
			return fmt.Errorf("%w: step %d value below minimum %v", errs.ErrValidation, st.OrderIndex, *r.Min)
		}
		if r.Max != nil && *v.Number > *r.Max {
			return fmt.Errorf("%w: step %d value above maximum %v", errs.ErrValidation, st.OrderIndex, *r.Max)
		}
	}
	if r := st.Rules.Checklist; r != nil && v.Checklist != nil {
		allowed := make(map[string]bool, len(r.Items))
		for _, item := range r.Items {
			allowed[item] = true
		}
		for _, item := range v.Checklist {
			if !allowed[item] {
				return fmt.Errorf("%w: step %d checklist item %q is not part of the step", errs.ErrValidation, st.OrderIndex, item)
			}
		}
	}
	return nil
}
