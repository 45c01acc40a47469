// Package catalog manages versioned inspection templates.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
)

// Store is the slice of the data layer the catalog depends on.
type Store interface {
	CreateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) error
	GetTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Template, error)
	GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]models.TemplateStep, error)
	ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]*models.Template, error)
	UpdateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) (*models.Template, error)
	ArchiveTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

// Catalog is the template catalog service.
type Catalog struct {
	store Store
}

// NewCatalog creates a new Catalog.
func NewCatalog(st Store) *Catalog {
	return &Catalog{store: st}
}

// StepInput describes one step of a template write.
type StepInput struct {
	Prompt     string
	StepType   models.StepType
	IsRequired bool
	MinPhotos  int
	MinVideos  int
	Rules      models.StepRules
}

// TemplateInput carries a template create or update.
type TemplateInput struct {
	TenantID        uuid.UUID
	Title           string
	Category        string
	DurationMinutes int
	Steps           []StepInput
}

func (in TemplateInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrValidation)
	}
	if len(in.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", errs.ErrValidation)
	}
	for i, st := range in.Steps {
		if st.Prompt == "" {
			return fmt.Errorf("%w: step %d has an empty prompt", errs.ErrValidation, i)
		}
		if !models.ValidStepType(st.StepType) {
			return fmt.Errorf("%w: step %d has unknown type %q", errs.ErrValidation, i, st.StepType)
		}
		if st.MinPhotos < 0 || st.MinVideos < 0 {
			return fmt.Errorf("%w: step %d has negative media minimums", errs.ErrValidation, i)
		}
	}
	return nil
}

// Create inserts a new template at version 1 with its step set.
func (c *Catalog) Create(ctx context.Context, in TemplateInput) (*models.Template, []models.TemplateStep, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	tpl := &models.Template{
		ID:              uuid.New(),
		TenantID:        in.TenantID,
		Title:           in.Title,
		Category:        in.Category,
		DurationMinutes: in.DurationMinutes,
		Version:         1,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	steps := buildSteps(tpl.ID, in.Steps)

	if err := c.store.CreateTemplate(ctx, tpl, steps); err != nil {
		return nil, nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, steps, nil
}

// Update bumps the template version and replaces the entire step set with
// fresh order indexes. Jobs posted from earlier versions keep their
// snapshots.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, in TemplateInput) (*models.Template, []models.TemplateStep, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	tpl := &models.Template{
		ID:              id,
		TenantID:        in.TenantID,
		Title:           in.Title,
		Category:        in.Category,
		DurationMinutes: in.DurationMinutes,
	}
	steps := buildSteps(id, in.Steps)

	updated, err := c.store.UpdateTemplate(ctx, tpl, steps)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: template %s", errs.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("update template: %w", err)
	}
	return updated, steps, nil
}

// Archive soft-archives a template. Existing jobs are untouched.
func (c *Catalog) Archive(ctx context.Context, id, tenantID uuid.UUID) error {
	if err := c.store.ArchiveTemplate(ctx, id, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: template %s", errs.ErrNotFound, id)
		}
		return fmt.Errorf("archive template: %w", err)
	}
	return nil
}

// Get returns a template with its current steps.
func (c *Catalog) Get(ctx context.Context, id, tenantID uuid.UUID) (*models.Template, []models.TemplateStep, error) {
	tpl, err := c.store.GetTemplate(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: template %s", errs.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("get template: %w", err)
	}
	steps, err := c.store.GetTemplateSteps(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get template steps: %w", err)
	}
	return tpl, steps, nil
}

// List returns the tenant's non-archived templates.
func (c *Catalog) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Template, error) {
	return c.store.ListTemplates(ctx, tenantID)
}

func buildSteps(templateID uuid.UUID, inputs []StepInput) []models.TemplateStep {
	steps := make([]models.TemplateStep, 0, len(inputs))
	for i, st := range inputs {
		steps = append(steps, models.TemplateStep{
			ID:         uuid.New(),
			TemplateID: templateID,
			OrderIndex: i,
			Prompt:     st.Prompt,
			StepType:   st.StepType,
			IsRequired: st.IsRequired,
			MinPhotos:  st.MinPhotos,
			MinVideos:  st.MinVideos,
			Rules:      st.Rules,
		})
	}
	return steps
}
