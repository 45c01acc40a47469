package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only audit log row. Currently written when an
// evidence packet is generated.
type AuditEntry struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	ActorID   uuid.UUID `db:"actor_id"   json:"actor_id"`
	Action    string    `db:"action"     json:"action"`
	SubjectID uuid.UUID `db:"subject_id" json:"subject_id"`
	Detail    string    `db:"detail"     json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
