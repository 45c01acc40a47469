package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a company on the platform. Every other entity belongs
// to a tenant.
type Tenant struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Member is a person acting within a tenant: a manager posting and
// reviewing jobs, or a scout fulfilling them. API keys are bound to a
// member, whose id is recorded as scout_id / reviewer_id on workflow rows.
type Member struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	TenantID    uuid.UUID `db:"tenant_id"    json:"tenant_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
