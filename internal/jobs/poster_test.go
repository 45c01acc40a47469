package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/cache"
	"github.com/scoutops/scoutops/internal/notify"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
)

// nopCache satisfies cache.Cache for tests that don't care about caching.
type nopCache struct{}

func (nopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (nopCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (nopCache) Delete(context.Context, string) error                     { return nil }
func (nopCache) Ping(context.Context) error                               { return nil }
func (nopCache) SetJobStatus(context.Context, uuid.UUID, models.JobStatus, time.Duration) error {
	return nil
}
func (nopCache) GetJobStatus(context.Context, uuid.UUID) (models.JobStatus, bool, error) {
	return "", false, nil
}
func (nopCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) { return 0, nil }

var _ cache.Cache = nopCache{}

// --- mock store ---

type mockStore struct {
	mu        sync.Mutex
	templates map[uuid.UUID]*models.Template
	tplSteps  map[uuid.UUID][]models.TemplateStep
	jobs      map[uuid.UUID]*models.Job
	jobSteps  map[uuid.UUID][]models.JobStep

	transitionErr error
	expired       []*models.Job
}

func newMockStore() *mockStore {
	return &mockStore{
		templates: make(map[uuid.UUID]*models.Template),
		tplSteps:  make(map[uuid.UUID][]models.TemplateStep),
		jobs:      make(map[uuid.UUID]*models.Job),
		jobSteps:  make(map[uuid.UUID][]models.JobStep),
	}
}

func (s *mockStore) GetTemplate(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	if !ok || tpl.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	copied := *tpl
	return &copied, nil
}

func (s *mockStore) GetTemplateSteps(_ context.Context, templateID uuid.UUID) ([]models.TemplateStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TemplateStep(nil), s.tplSteps[templateID]...), nil
}

func (s *mockStore) CreateJobWithSteps(_ context.Context, job *models.Job, steps []models.JobStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	s.jobSteps[job.ID] = append([]models.JobStep(nil), steps...)
	return nil
}

func (s *mockStore) GetJob(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *mockStore) GetJobSteps(_ context.Context, jobID uuid.UUID) ([]models.JobStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.JobStep(nil), s.jobSteps[jobID]...), nil
}

func (s *mockStore) ListJobs(_ context.Context, _ store.JobFilter) ([]*models.Job, int, error) {
	return nil, 0, nil
}

func (s *mockStore) TransitionJob(_ context.Context, jobID uuid.UUID, from, to models.JobStatus, opts ...store.TransitionOption) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != from {
		return store.ErrConflict
	}
	job.Status = to
	if p := store.ApplyTransitionOptions(opts); p.AssignScoutID != nil {
		job.AssignedScoutID = p.AssignScoutID
	}
	return nil
}

func (s *mockStore) ExpireOverdueJobs(_ context.Context, _ time.Time) ([]*models.Job, error) {
	return s.expired, nil
}

// --- helpers ---

func seedTemplate(s *mockStore, tenantID uuid.UUID, version int, stepCount int) *models.Template {
	tpl := &models.Template{
		ID:       uuid.New(),
		TenantID: tenantID,
		Title:    "Shelf audit",
		Version:  version,
		IsActive: true,
	}
	s.templates[tpl.ID] = tpl
	for i := 0; i < stepCount; i++ {
		s.tplSteps[tpl.ID] = append(s.tplSteps[tpl.ID], models.TemplateStep{
			ID:         uuid.New(),
			TemplateID: tpl.ID,
			OrderIndex: i,
			Prompt:     "Check the shelf",
			StepType:   models.StepTypeYesNo,
			IsRequired: true,
		})
	}
	return tpl
}

func validInput(tenantID, templateID uuid.UUID) CreateJobInput {
	now := time.Now()
	return CreateJobInput{
		TenantID:     tenantID,
		TemplateID:   templateID,
		LocationID:   uuid.New(),
		Title:        "Audit store 42",
		PayoutAmount: 1500,
		Currency:     "EUR",
		PayoutType:   models.PayoutTypeCash,
		WindowStart:  now,
		WindowEnd:    now.Add(48 * time.Hour),
	}
}

// --- tests ---

func TestCreate_SnapshotsTemplateVersion(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 3, 2)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	job, steps, err := p.Create(context.Background(), validInput(tenantID, tpl.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.TemplateVersion != 3 {
		t.Errorf("expected template_version 3, got %d", job.TemplateVersion)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 snapshotted steps, got %d", len(steps))
	}
	if job.Status != models.JobStatusDraft {
		t.Errorf("expected draft, got %s", job.Status)
	}
}

func TestCreate_SnapshotSurvivesTemplateEdit(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 2)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	job, steps, err := p.Create(context.Background(), validInput(tenantID, tpl.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutate the template after posting: new version, different steps.
	s.templates[tpl.ID].Version = 2
	s.tplSteps[tpl.ID] = []models.TemplateStep{{
		ID: uuid.New(), TemplateID: tpl.ID, Prompt: "Completely different",
		StepType: models.StepTypeText,
	}}

	got, _ := s.GetJobSteps(context.Background(), job.ID)
	if len(got) != len(steps) {
		t.Fatalf("snapshot changed size: %d != %d", len(got), len(steps))
	}
	for i := range got {
		if got[i].Prompt != steps[i].Prompt {
			t.Errorf("snapshot step %d changed: %q", i, got[i].Prompt)
		}
	}
	if s.jobs[job.ID].TemplateVersion != 1 {
		t.Errorf("job version drifted to %d", s.jobs[job.ID].TemplateVersion)
	}
}

func TestCreate_PublishImmediately(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	in := validInput(tenantID, tpl.ID)
	in.Publish = true
	job, _, err := p.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != models.JobStatusPosted {
		t.Errorf("expected posted, got %s", job.Status)
	}
	if job.PostedAt == nil {
		t.Error("posted_at not stamped")
	}
}

func TestCreate_ArchivedTemplate(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	archived := time.Now()
	s.templates[tpl.ID].ArchivedAt = &archived
	s.templates[tpl.ID].IsActive = false
	p := NewPoster(s, nopCache{}, notify.Nop{})

	_, _, err := p.Create(context.Background(), validInput(tenantID, tpl.ID))
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestCreate_UnknownTemplate(t *testing.T) {
	s := newMockStore()
	p := NewPoster(s, nopCache{}, notify.Nop{})

	_, _, err := p.Create(context.Background(), validInput(uuid.New(), uuid.New()))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_TemplateFromOtherTenant(t *testing.T) {
	s := newMockStore()
	tpl := seedTemplate(s, uuid.New(), 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	_, _, err := p.Create(context.Background(), validInput(uuid.New(), tpl.ID))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	tests := []struct {
		name   string
		mutate func(*CreateJobInput)
	}{
		{"missing title", func(in *CreateJobInput) { in.Title = "" }},
		{"missing location", func(in *CreateJobInput) { in.LocationID = uuid.Nil }},
		{"bad payout type", func(in *CreateJobInput) { in.PayoutType = "barter" }},
		{"negative amount", func(in *CreateJobInput) { in.PayoutAmount = -1 }},
		{"missing currency", func(in *CreateJobInput) { in.Currency = "" }},
		{"inverted window", func(in *CreateJobInput) { in.WindowEnd = in.WindowStart.Add(-time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(tenantID, tpl.ID)
			tt.mutate(&in)
			_, _, err := p.Create(context.Background(), in)
			if !errors.Is(err, errs.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAccept_AssignsScout(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	in := validInput(tenantID, tpl.ID)
	in.Publish = true
	job, _, err := p.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scoutID := uuid.New()
	accepted, err := p.Accept(context.Background(), job.ID, tenantID, scoutID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted.Status != models.JobStatusAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}
	if accepted.AssignedScoutID == nil || *accepted.AssignedScoutID != scoutID {
		t.Errorf("scout not assigned: %v", accepted.AssignedScoutID)
	}
}

func TestAccept_DraftJobConflicts(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	job, _, err := p.Create(context.Background(), validInput(tenantID, tpl.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Accept(context.Background(), job.ID, tenantID, uuid.New())
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestStart_RequiresAssignedScout(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	in := validInput(tenantID, tpl.ID)
	in.Publish = true
	job, _, _ := p.Create(context.Background(), in)
	scoutID := uuid.New()
	if _, err := p.Accept(context.Background(), job.ID, tenantID, scoutID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := p.Start(context.Background(), job.ID, tenantID, uuid.New()); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("expected ErrForbidden for other scout, got %v", err)
	}

	started, err := p.Start(context.Background(), job.ID, tenantID, scoutID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if started.Status != models.JobStatusInProgress {
		t.Errorf("expected in_progress, got %s", started.Status)
	}
}

func TestTransition_ConcurrentLoser(t *testing.T) {
	s := newMockStore()
	tenantID := uuid.New()
	tpl := seedTemplate(s, tenantID, 1, 1)
	p := NewPoster(s, nopCache{}, notify.Nop{})

	in := validInput(tenantID, tpl.ID)
	in.Publish = true
	job, _, _ := p.Create(context.Background(), in)

	s.transitionErr = store.ErrConflict
	_, err := p.Cancel(context.Background(), job.ID, tenantID)
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}
