package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scoutops/scoutops/pkg/models"
)

func (s *PostgresStore) CreateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create template: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO templates (id, tenant_id, title, category, duration_minutes, version, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tpl.ID, tpl.TenantID, tpl.Title, tpl.Category, tpl.DurationMinutes, tpl.Version, tpl.IsActive, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	if err := insertTemplateSteps(ctx, tx, tpl.ID, steps); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateTemplate bumps the version, updates the header fields, and replaces
// the entire step set, all in one transaction. Jobs snapshotted from prior
// versions are untouched.
func (s *PostgresStore) UpdateTemplate(ctx context.Context, tpl *models.Template, steps []models.TemplateStep) (*models.Template, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update template: %w", err)
	}
	defer tx.Rollback(ctx)

	var updated models.Template
	err = tx.QueryRow(ctx,
		`UPDATE templates
		 SET title = $3, category = $4, duration_minutes = $5, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND archived_at IS NULL
		 RETURNING id, tenant_id, title, category, duration_minutes, version, is_active, archived_at, created_at, updated_at`,
		tpl.ID, tpl.TenantID, tpl.Title, tpl.Category, tpl.DurationMinutes,
	).Scan(&updated.ID, &updated.TenantID, &updated.Title, &updated.Category, &updated.DurationMinutes,
		&updated.Version, &updated.IsActive, &updated.ArchivedAt, &updated.CreatedAt, &updated.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM template_steps WHERE template_id = $1`, tpl.ID); err != nil {
		return nil, fmt.Errorf("delete template steps: %w", err)
	}
	if err := insertTemplateSteps(ctx, tx, tpl.ID, steps); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update template: %w", err)
	}
	return &updated, nil
}

func insertTemplateSteps(ctx context.Context, tx pgx.Tx, templateID uuid.UUID, steps []models.TemplateStep) error {
	for _, st := range steps {
		_, err := tx.Exec(ctx,
			`INSERT INTO template_steps (id, template_id, order_index, prompt, step_type, is_required, min_photos, min_videos, rules)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			st.ID, templateID, st.OrderIndex, st.Prompt, st.StepType, st.IsRequired, st.MinPhotos, st.MinVideos, st.Rules)
		if err != nil {
			return fmt.Errorf("insert template step %d: %w", st.OrderIndex, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Template, error) {
	var t models.Template
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, title, category, duration_minutes, version, is_active, archived_at, created_at, updated_at
		 FROM templates WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	).Scan(&t.ID, &t.TenantID, &t.Title, &t.Category, &t.DurationMinutes, &t.Version, &t.IsActive,
		&t.ArchivedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]models.TemplateStep, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, template_id, order_index, prompt, step_type, is_required, min_photos, min_videos, rules
		 FROM template_steps WHERE template_id = $1 ORDER BY order_index ASC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("get template steps: %w", err)
	}
	defer rows.Close()

	var steps []models.TemplateStep
	for rows.Next() {
		var st models.TemplateStep
		if err := rows.Scan(&st.ID, &st.TemplateID, &st.OrderIndex, &st.Prompt, &st.StepType,
			&st.IsRequired, &st.MinPhotos, &st.MinVideos, &st.Rules); err != nil {
			return nil, fmt.Errorf("scan template step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (s *PostgresStore) ListTemplates(ctx context.Context, tenantID uuid.UUID) ([]*models.Template, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, title, category, duration_minutes, version, is_active, archived_at, created_at, updated_at
		 FROM templates WHERE tenant_id = $1 AND archived_at IS NULL ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Title, &t.Category, &t.DurationMinutes, &t.Version,
			&t.IsActive, &t.ArchivedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// ArchiveTemplate soft-archives a template; it stops being listed and can
// no longer be posted from, but existing jobs keep their snapshots.
func (s *PostgresStore) ArchiveTemplate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE templates SET archived_at = NOW(), is_active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND archived_at IS NULL`, id, tenantID)
	if err != nil {
		return fmt.Errorf("archive template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
