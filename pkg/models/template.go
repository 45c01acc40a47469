package models

import (
	"time"

	"github.com/google/uuid"
)

// StepType enumerates the kinds of inspection steps a template can carry.
type StepType string

const (
	StepTypeYesNo     StepType = "yes_no"
	StepTypeText      StepType = "text"
	StepTypeNumber    StepType = "number"
	StepTypePhoto     StepType = "photo"
	StepTypeVideo     StepType = "video"
	StepTypeChecklist StepType = "checklist"
)

// ValidStepType reports whether t is a known step type.
func ValidStepType(t StepType) bool {
	switch t {
	case StepTypeYesNo, StepTypeText, StepTypeNumber, StepTypePhoto, StepTypeVideo, StepTypeChecklist:
		return true
	}
	return false
}

// Template is a versioned, reusable definition of inspection steps for a
// category of job. Editing bumps the version and replaces the step set
// wholesale; jobs snapshot a version and are never migrated.
type Template struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	TenantID        uuid.UUID  `db:"tenant_id"        json:"tenant_id"`
	Title           string     `db:"title"            json:"title"`
	Category        string     `db:"category"         json:"category"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Version         int        `db:"version"          json:"version"`
	IsActive        bool       `db:"is_active"        json:"is_active"`
	ArchivedAt      *time.Time `db:"archived_at"      json:"archived_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// TemplateStep is one ordered step of a template.
type TemplateStep struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	TemplateID uuid.UUID `db:"template_id" json:"template_id"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	Prompt     string    `db:"prompt"      json:"prompt"`
	StepType   StepType  `db:"step_type"   json:"step_type"`
	IsRequired bool      `db:"is_required" json:"is_required"`
	MinPhotos  int       `db:"min_photos"  json:"min_photos"`
	MinVideos  int       `db:"min_videos"  json:"min_videos"`
	Rules      StepRules `db:"rules"       json:"rules"`
}
