package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/review"
)

// NewReviewHandler returns an http.HandlerFunc for POST /api/v1/submissions/{submissionID}/review.
// The reviewer is the authenticated member.
func NewReviewHandler(svc *review.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		reviewerID, ok := mw.GetMemberID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing member", nil)
			return
		}
		submissionID, err := uuid.Parse(chi.URLParam(r, "submissionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "submissionID must be a UUID", nil)
			return
		}

		var req struct {
			Decision review.Decision `json:"decision"`
			Notes    *string         `json:"notes"`
			Verdicts []struct {
				JobStepID uuid.UUID `json:"job_step_id"`
				Passed    bool      `json:"passed"`
				Comment   *string   `json:"comment"`
			} `json:"verdicts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		in := review.ReviewInput{
			SubmissionID: submissionID,
			TenantID:     tenantID,
			ReviewerID:   reviewerID,
			Decision:     req.Decision,
			Notes:        req.Notes,
		}
		for _, v := range req.Verdicts {
			in.Verdicts = append(in.Verdicts, review.VerdictInput{
				JobStepID: v.JobStepID,
				Passed:    v.Passed,
				Comment:   v.Comment,
			})
		}

		sub, err := svc.Review(r.Context(), in)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, submissionResponse{Submission: sub})
	}
}
