package models

import (
	"time"

	"github.com/google/uuid"
)

// VoucherStatus enumerates reward voucher states.
type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "active"
	VoucherStatusRedeemed VoucherStatus = "redeemed"
	VoucherStatusExpired  VoucherStatus = "expired"
)

// Voucher is a redeemable reward code issued as part of a non-cash payout.
// Codes are unique platform-wide.
type Voucher struct {
	ID           uuid.UUID     `db:"id"            json:"id"`
	TenantID     uuid.UUID     `db:"tenant_id"     json:"tenant_id"`
	Code         string        `db:"code"          json:"code"`
	Value        int64         `db:"value"         json:"value"`
	Currency     string        `db:"currency"      json:"currency"`
	ExpiresAt    time.Time     `db:"expires_at"    json:"expires_at"`
	Status       VoucherStatus `db:"status"        json:"status"`
	SubmissionID *uuid.UUID    `db:"submission_id" json:"submission_id,omitempty"`
	TermsText    string        `db:"terms_text"    json:"terms_text"`
	CreatedAt    time.Time     `db:"created_at"    json:"created_at"`
	RedeemedAt   *time.Time    `db:"redeemed_at"   json:"redeemed_at,omitempty"`
}
