// Package packet compiles the evidence packet for a reviewed submission: a
// self-contained JSON document a tenant can hand to the merchant or an
// auditor without exposing scout identity.
package packet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scoutops/scoutops/internal/storage"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/errs"
	"github.com/scoutops/scoutops/pkg/models"
	"github.com/scoutops/scoutops/pkg/observability"
)

// Store is the slice of the data layer the compiler depends on.
type Store interface {
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	GetSubmissionAnswers(ctx context.Context, submissionID uuid.UUID) ([]models.StepAnswer, error)
	GetSubmissionMedia(ctx context.Context, submissionID uuid.UUID) ([]models.Media, error)
	GetJob(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Job, error)
	GetJobSteps(ctx context.Context, jobID uuid.UUID) ([]models.JobStep, error)
	AppendAuditLog(ctx context.Context, entry *models.AuditEntry) error
}

// Compiler builds and stores evidence packets.
type Compiler struct {
	store   Store
	storage storage.Storage
}

// NewCompiler creates a new Compiler.
func NewCompiler(st Store, blob storage.Storage) *Compiler {
	return &Compiler{store: st, storage: blob}
}

// Document is the packet layout written to blob storage.
type Document struct {
	GeneratedAt time.Time      `json:"generated_at"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	Job         JobSection     `json:"job"`
	Submission  SubmissionInfo `json:"submission"`
	Steps       []StepSection  `json:"steps"`
	Media       []MediaSection `json:"media"`
}

// JobSection describes the job the evidence belongs to.
type JobSection struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	LocationID      uuid.UUID        `json:"location_id"`
	TemplateID      uuid.UUID        `json:"template_id"`
	TemplateVersion int              `json:"template_version"`
	Status          models.JobStatus `json:"status"`
	WindowStart     time.Time        `json:"window_start"`
	WindowEnd       time.Time        `json:"window_end"`
}

// SubmissionInfo carries the reviewed submission with the scout reduced to
// an opaque reference.
type SubmissionInfo struct {
	ID            uuid.UUID               `json:"id"`
	ScoutRef      string                  `json:"scout_ref"`
	Status        models.SubmissionStatus `json:"status"`
	Notes         string                  `json:"notes,omitempty"`
	SubmittedAt   time.Time               `json:"submitted_at"`
	ReviewedAt    *time.Time              `json:"reviewed_at,omitempty"`
	ReviewerNotes *string                 `json:"reviewer_notes,omitempty"`
}

// StepSection pairs one frozen job step with its answer and verdict.
type StepSection struct {
	OrderIndex      int                     `json:"order_index"`
	Prompt          string                  `json:"prompt"`
	StepType        models.StepType         `json:"step_type"`
	IsRequired      bool                    `json:"is_required"`
	Answer          *models.AnswerValue     `json:"answer,omitempty"`
	StepStatus      models.StepAnswerStatus `json:"step_status,omitempty"`
	ReviewerComment *string                 `json:"reviewer_comment,omitempty"`
}

// MediaSection is a pointer to one evidence object in blob storage.
type MediaSection struct {
	StepOrderIndex int              `json:"step_order_index"`
	MediaType      models.MediaType `json:"media_type"`
	StoragePath    string           `json:"storage_path"`
	CapturedAt     time.Time        `json:"captured_at"`
}

// Compile assembles the packet for a submission and writes it to blob
// storage, returning the storage path. Recompiling overwrites the previous
// packet. The caller's identity goes to the audit log.
func (c *Compiler) Compile(ctx context.Context, submissionID, tenantID, actorID uuid.UUID) (string, error) {
	sub, err := c.store.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: submission %s", errs.ErrNotFound, submissionID)
		}
		return "", fmt.Errorf("load submission: %w", err)
	}
	if sub.TenantID != tenantID {
		return "", fmt.Errorf("%w: submission %s", errs.ErrNotFound, submissionID)
	}

	job, err := c.store.GetJob(ctx, sub.JobID, tenantID)
	if err != nil {
		return "", fmt.Errorf("load job: %w", err)
	}
	steps, err := c.store.GetJobSteps(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("load job steps: %w", err)
	}
	answers, err := c.store.GetSubmissionAnswers(ctx, submissionID)
	if err != nil {
		return "", fmt.Errorf("load answers: %w", err)
	}
	media, err := c.store.GetSubmissionMedia(ctx, submissionID)
	if err != nil {
		return "", fmt.Errorf("load media: %w", err)
	}

	doc := build(job, sub, steps, answers, media)
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal packet: %w", err)
	}

	path := PacketPath(tenantID, job.ID, sub.ID)
	if err := c.storage.Write(ctx, path, payload, "application/json", true); err != nil {
		return "", fmt.Errorf("%w: write packet: %v", errs.ErrStorage, err)
	}

	entry := &models.AuditEntry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    "packet_generated",
		SubjectID: sub.ID,
		Detail:    path,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.AppendAuditLog(ctx, entry); err != nil {
		// The packet exists either way; the audit gap is logged, not fatal.
		slog.Error("append audit log", "submission_id", sub.ID, "error", err)
	}

	observability.PacketsGenerated.Inc()
	return path, nil
}

// PacketPath is the storage key of a submission's evidence packet.
func PacketPath(tenantID, jobID, submissionID uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s/evidence-packet.json", tenantID, jobID, submissionID)
}

// ScoutRef reduces a scout id to a short opaque reference. The packet never
// carries the full identity.
func ScoutRef(scoutID uuid.UUID) string {
	return "scout-" + scoutID.String()[:8]
}

func build(job *models.Job, sub *models.Submission, steps []models.JobStep, answers []models.StepAnswer, media []models.Media) Document {
	answersByStep := make(map[uuid.UUID]models.StepAnswer, len(answers))
	for _, a := range answers {
		answersByStep[a.JobStepID] = a
	}
	orderByStep := make(map[uuid.UUID]int, len(steps))

	stepSections := make([]StepSection, 0, len(steps))
	for _, st := range steps {
		orderByStep[st.ID] = st.OrderIndex
		section := StepSection{
			OrderIndex: st.OrderIndex,
			Prompt:     st.Prompt,
			StepType:   st.StepType,
			IsRequired: st.IsRequired,
		}
		if a, ok := answersByStep[st.ID]; ok {
			value := a.Value
			section.Answer = &value
			section.StepStatus = a.StepStatus
			section.ReviewerComment = a.ReviewerComment
		}
		stepSections = append(stepSections, section)
	}

	mediaSections := make([]MediaSection, 0, len(media))
	for _, m := range media {
		mediaSections = append(mediaSections, MediaSection{
			StepOrderIndex: orderByStep[m.JobStepID],
			MediaType:      m.MediaType,
			StoragePath:    m.StoragePath,
			CapturedAt:     m.CapturedAt,
		})
	}

	return Document{
		GeneratedAt: time.Now().UTC(),
		TenantID:    job.TenantID,
		Job: JobSection{
			ID:              job.ID,
			Title:           job.Title,
			LocationID:      job.LocationID,
			TemplateID:      job.TemplateID,
			TemplateVersion: job.TemplateVersion,
			Status:          job.Status,
			WindowStart:     job.WindowStart,
			WindowEnd:       job.WindowEnd,
		},
		Submission: SubmissionInfo{
			ID:            sub.ID,
			ScoutRef:      ScoutRef(sub.ScoutID),
			Status:        sub.Status,
			Notes:         sub.Notes,
			SubmittedAt:   sub.SubmittedAt,
			ReviewedAt:    sub.ReviewedAt,
			ReviewerNotes: sub.ReviewerNotes,
		},
		Steps: stepSections,
		Media: mediaSections,
	}
}
