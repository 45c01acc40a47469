package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/submission"
	"github.com/scoutops/scoutops/pkg/models"
)

type submissionResponse struct {
	Submission *models.Submission  `json:"submission"`
	Answers    []models.StepAnswer `json:"answers,omitempty"`
	Media      []models.Media      `json:"media,omitempty"`
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/submissions.
// The submitting scout is the authenticated member.
func NewSubmitHandler(svc *submission.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		scoutID, ok := mw.GetMemberID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing member", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		var req struct {
			Answers []struct {
				JobStepID uuid.UUID          `json:"job_step_id"`
				Value     models.AnswerValue `json:"value"`
			} `json:"answers"`
			Media []struct {
				JobStepID   uuid.UUID        `json:"job_step_id"`
				MediaType   models.MediaType `json:"media_type"`
				StoragePath string           `json:"storage_path"`
				CapturedAt  time.Time        `json:"captured_at"`
			} `json:"media"`
			Notes string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		in := submission.SubmitInput{
			JobID:    jobID,
			TenantID: tenantID,
			ScoutID:  scoutID,
			Notes:    req.Notes,
		}
		for _, a := range req.Answers {
			in.Answers = append(in.Answers, submission.AnswerInput{JobStepID: a.JobStepID, Value: a.Value})
		}
		for _, m := range req.Media {
			in.Media = append(in.Media, submission.MediaInput{
				JobStepID:   m.JobStepID,
				MediaType:   m.MediaType,
				StoragePath: m.StoragePath,
				CapturedAt:  m.CapturedAt,
			})
		}

		sub, err := svc.Submit(r.Context(), in)
		if err != nil {
			respondError(w, err)
			return
		}
		response.Created(w, submissionResponse{Submission: sub})
	}
}

// NewGetSubmissionHandler returns an http.HandlerFunc for GET /api/v1/submissions/{submissionID}.
func NewGetSubmissionHandler(svc *submission.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "submissionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "submissionID must be a UUID", nil)
			return
		}

		sub, answers, media, err := svc.Get(r.Context(), id, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, submissionResponse{Submission: sub, Answers: answers, Media: media})
	}
}
