package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the externally visible job lifecycle states.
// Transitions between them are governed by the jobs package state machine.
type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusPosted     JobStatus = "posted"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusApproved   JobStatus = "approved"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusPaid       JobStatus = "paid"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusExpired    JobStatus = "expired"
)

// PayoutType enumerates how an approved job settles.
type PayoutType string

const (
	PayoutTypeCash        PayoutType = "cash"
	PayoutTypeDiscount    PayoutType = "discount"
	PayoutTypeFreeProduct PayoutType = "free_product"
	PayoutTypeMixed       PayoutType = "mixed"
)

// ValidPayoutType reports whether t is a known payout type.
func ValidPayoutType(t PayoutType) bool {
	switch t {
	case PayoutTypeCash, PayoutTypeDiscount, PayoutTypeFreeProduct, PayoutTypeMixed:
		return true
	}
	return false
}

// IssuesVoucher reports whether settling this payout type creates a voucher.
func (t PayoutType) IssuesVoucher() bool {
	return t == PayoutTypeDiscount || t == PayoutTypeFreeProduct || t == PayoutTypeMixed
}

// Job is a single postable unit of work derived from one template version.
// TemplateVersion and the job_steps rows are an immutable snapshot taken at
// posting time; later template edits never touch an existing job.
type Job struct {
	ID                uuid.UUID  `db:"id"                 json:"id"`
	TenantID          uuid.UUID  `db:"tenant_id"          json:"tenant_id"`
	TemplateID        uuid.UUID  `db:"template_id"        json:"template_id"`
	TemplateVersion   int        `db:"template_version"   json:"template_version"`
	LocationID        uuid.UUID  `db:"location_id"        json:"location_id"`
	Title             string     `db:"title"              json:"title"`
	RewardDescription string     `db:"reward_description" json:"reward_description,omitempty"`
	Status            JobStatus  `db:"status"             json:"status"`
	PayoutAmount      int64      `db:"payout_amount"      json:"payout_amount"`
	Currency          string     `db:"currency"           json:"currency"`
	PayoutType        PayoutType `db:"payout_type"        json:"payout_type"`
	AssignedScoutID   *uuid.UUID `db:"assigned_scout_id"  json:"assigned_scout_id,omitempty"`
	WindowStart       time.Time  `db:"window_start"       json:"window_start"`
	WindowEnd         time.Time  `db:"window_end"         json:"window_end"`
	VoucherExpiresAt  *time.Time `db:"voucher_expires_at" json:"voucher_expires_at,omitempty"`
	PostedAt          *time.Time `db:"posted_at"          json:"posted_at,omitempty"`
	AcceptedAt        *time.Time `db:"accepted_at"        json:"accepted_at,omitempty"`
	SubmittedAt       *time.Time `db:"submitted_at"       json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at"        json:"approved_at,omitempty"`
	RejectedAt        *time.Time `db:"rejected_at"        json:"rejected_at,omitempty"`
	PaidAt            *time.Time `db:"paid_at"            json:"paid_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"         json:"updated_at"`
}

// JobStep is the job's own copy of a template step, frozen at posting time.
type JobStep struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	JobID      uuid.UUID `db:"job_id"      json:"job_id"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	Prompt     string    `db:"prompt"      json:"prompt"`
	StepType   StepType  `db:"step_type"   json:"step_type"`
	IsRequired bool      `db:"is_required" json:"is_required"`
	MinPhotos  int       `db:"min_photos"  json:"min_photos"`
	MinVideos  int       `db:"min_videos"  json:"min_videos"`
	Rules      StepRules `db:"rules"       json:"rules"`
}
