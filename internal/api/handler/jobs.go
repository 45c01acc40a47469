package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/jobs"
	"github.com/scoutops/scoutops/internal/store"
	"github.com/scoutops/scoutops/pkg/models"
)

type jobResponse struct {
	Job   *models.Job      `json:"job"`
	Steps []models.JobStep `json:"steps,omitempty"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			TemplateID        uuid.UUID         `json:"template_id"`
			LocationID        uuid.UUID         `json:"location_id"`
			Title             string            `json:"title"`
			RewardDescription string            `json:"reward_description"`
			PayoutAmount      int64             `json:"payout_amount"`
			Currency          string            `json:"currency"`
			PayoutType        models.PayoutType `json:"payout_type"`
			WindowStart       time.Time         `json:"window_start"`
			WindowEnd         time.Time         `json:"window_end"`
			VoucherExpiresAt  *time.Time        `json:"voucher_expires_at"`
			Publish           bool              `json:"publish"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, steps, err := svc.Create(r.Context(), jobs.CreateJobInput{
			TenantID:          tenantID,
			TemplateID:        req.TemplateID,
			LocationID:        req.LocationID,
			Title:             req.Title,
			RewardDescription: req.RewardDescription,
			PayoutAmount:      req.PayoutAmount,
			Currency:          req.Currency,
			PayoutType:        req.PayoutType,
			WindowStart:       req.WindowStart,
			WindowEnd:         req.WindowEnd,
			VoucherExpiresAt:  req.VoucherExpiresAt,
			Publish:           req.Publish,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		response.Created(w, jobResponse{Job: job, Steps: steps})
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, steps, err := svc.Get(r.Context(), jobID, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, jobResponse{Job: job, Steps: steps})
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc *jobs.Poster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		filter := store.JobFilter{
			TenantID: tenantID,
			Status:   models.JobStatus(r.URL.Query().Get("status")),
			Page:     queryInt(r, "page", 1),
			Limit:    queryInt(r, "limit", 20),
		}
		if raw := r.URL.Query().Get("scout_id"); raw != "" {
			scoutID, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "scout_id must be a UUID", nil)
				return
			}
			filter.ScoutID = scoutID
		}

		list, total, err := svc.List(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		response.Collection(w, list, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewPublishJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/publish.
func NewPublishJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return jobTransitionHandler(svc.Publish)
}

// NewCancelJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cancel.
func NewCancelJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return jobTransitionHandler(svc.Cancel)
}

// NewAcceptJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/accept.
// The accepting scout is the authenticated member.
func NewAcceptJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return scoutTransitionHandler(svc.Accept)
}

// NewStartJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/start.
func NewStartJobHandler(svc *jobs.Poster) http.HandlerFunc {
	return scoutTransitionHandler(svc.Start)
}

func jobTransitionHandler(fn func(ctx context.Context, jobID, tenantID uuid.UUID) (*models.Job, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, err := fn(r.Context(), jobID, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, jobResponse{Job: job})
	}
}

func scoutTransitionHandler(fn func(ctx context.Context, jobID, tenantID, scoutID uuid.UUID) (*models.Job, error)) http.HandlerFunc {
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

		job, err := fn(r.Context(), jobID, tenantID, scoutID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, jobResponse{Job: job})
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}
