package models

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus enumerates cash settlement states.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// Payout is the settlement record owed to a scout for an approved job.
// Amount is the cash leg only; a reward leg, if any, lives in the linked
// voucher. At most one payout exists per job.
type Payout struct {
	ID        uuid.UUID    `db:"id"         json:"id"`
	JobID     uuid.UUID    `db:"job_id"     json:"job_id"`
	TenantID  uuid.UUID    `db:"tenant_id"  json:"tenant_id"`
	ScoutID   uuid.UUID    `db:"scout_id"   json:"scout_id"`
	Amount    int64        `db:"amount"     json:"amount"`
	Currency  string       `db:"currency"   json:"currency"`
	VoucherID *uuid.UUID   `db:"voucher_id" json:"voucher_id,omitempty"`
	Status    PayoutStatus `db:"status"     json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	PaidAt    *time.Time   `db:"paid_at"    json:"paid_at,omitempty"`
}
