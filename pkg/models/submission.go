package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates the review states of a submission.
// "submitted" is the only live state; the other three are terminal for the
// record (a resubmission creates a fresh row).
type SubmissionStatus string

const (
	SubmissionStatusSubmitted        SubmissionStatus = "submitted"
	SubmissionStatusApproved         SubmissionStatus = "approved"
	SubmissionStatusRejected         SubmissionStatus = "rejected"
	SubmissionStatusResubmitRequired SubmissionStatus = "resubmit_required"
)

// StepAnswerStatus is the post-review verdict on a single answer.
type StepAnswerStatus string

const (
	StepAnswerPending StepAnswerStatus = "pending"
	StepAnswerPassed  StepAnswerStatus = "passed"
	StepAnswerFailed  StepAnswerStatus = "failed"
)

// MediaType enumerates evidence media kinds.
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// Submission is a scout's completed attempt at a job.
type Submission struct {
	ID            uuid.UUID        `db:"id"             json:"id"`
	JobID         uuid.UUID        `db:"job_id"         json:"job_id"`
	TenantID      uuid.UUID        `db:"tenant_id"      json:"tenant_id"`
	ScoutID       uuid.UUID        `db:"scout_id"       json:"scout_id"`
	Status        SubmissionStatus `db:"status"         json:"status"`
	Notes         string           `db:"notes"          json:"notes,omitempty"`
	SubmittedAt   time.Time        `db:"submitted_at"   json:"submitted_at"`
	ReviewedAt    *time.Time       `db:"reviewed_at"    json:"reviewed_at,omitempty"`
	ReviewerID    *uuid.UUID       `db:"reviewer_id"    json:"reviewer_id,omitempty"`
	ReviewerNotes *string          `db:"reviewer_notes" json:"reviewer_notes,omitempty"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}

// StepAnswer is one scout-provided response to one job step within a
// submission. The referenced job step always belongs to the same job as
// the submission.
type StepAnswer struct {
	ID              uuid.UUID        `db:"id"               json:"id"`
	SubmissionID    uuid.UUID        `db:"submission_id"    json:"submission_id"`
	JobStepID       uuid.UUID        `db:"job_step_id"      json:"job_step_id"`
	Value           AnswerValue      `db:"answer"           json:"value"`
	StepStatus      StepAnswerStatus `db:"step_status"      json:"step_status"`
	ReviewerComment *string          `db:"reviewer_comment" json:"reviewer_comment,omitempty"`
	CreatedAt       time.Time        `db:"created_at"       json:"created_at"`
}

// Media is one piece of evidence captured for a job step. Only the storage
// pointer is kept here; bytes live in blob storage.
type Media struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	SubmissionID uuid.UUID `db:"submission_id" json:"submission_id"`
	JobStepID    uuid.UUID `db:"job_step_id"   json:"job_step_id"`
	MediaType    MediaType `db:"media_type"    json:"media_type"`
	StoragePath  string    `db:"storage_path"  json:"storage_path"`
	CapturedAt   time.Time `db:"captured_at"   json:"captured_at"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
