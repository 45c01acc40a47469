package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/catalog"
	"github.com/scoutops/scoutops/pkg/models"
)

type stepRequest struct {
	Prompt     string           `json:"prompt"`
	StepType   models.StepType  `json:"step_type"`
	IsRequired bool             `json:"is_required"`
	MinPhotos  int              `json:"min_photos"`
	MinVideos  int              `json:"min_videos"`
	Rules      models.StepRules `json:"rules"`
}

type templateRequest struct {
	Title           string        `json:"title"`
	Category        string        `json:"category"`
	DurationMinutes int           `json:"duration_minutes"`
	Steps           []stepRequest `json:"steps"`
}

type templateResponse struct {
	Template *models.Template      `json:"template"`
	Steps    []models.TemplateStep `json:"steps"`
}

func (req templateRequest) toInput(tenantID uuid.UUID) catalog.TemplateInput {
	steps := make([]catalog.StepInput, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, catalog.StepInput{
			Prompt:     s.Prompt,
			StepType:   s.StepType,
			IsRequired: s.IsRequired,
			MinPhotos:  s.MinPhotos,
			MinVideos:  s.MinVideos,
			Rules:      s.Rules,
		})
	}
	return catalog.TemplateInput{
		TenantID:        tenantID,
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		Steps:           steps,
	}
}

// NewCreateTemplateHandler returns an http.HandlerFunc for POST /api/v1/templates.
func NewCreateTemplateHandler(svc *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		tpl, steps, err := svc.Create(r.Context(), req.toInput(tenantID))
		if err != nil {
			respondError(w, err)
			return
		}
		response.Created(w, templateResponse{Template: tpl, Steps: steps})
	}
}

// NewUpdateTemplateHandler returns an http.HandlerFunc for PUT /api/v1/templates/{templateID}.
func NewUpdateTemplateHandler(svc *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "templateID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateID must be a UUID", nil)
			return
		}

		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		tpl, steps, err := svc.Update(r.Context(), id, req.toInput(tenantID))
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, templateResponse{Template: tpl, Steps: steps})
	}
}

// NewArchiveTemplateHandler returns an http.HandlerFunc for DELETE /api/v1/templates/{templateID}.
func NewArchiveTemplateHandler(svc *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "templateID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateID must be a UUID", nil)
			return
		}

		if err := svc.Archive(r.Context(), id, tenantID); err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, map[string]string{"status": "archived"})
	}
}

// NewGetTemplateHandler returns an http.HandlerFunc for GET /api/v1/templates/{templateID}.
func NewGetTemplateHandler(svc *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "templateID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateID must be a UUID", nil)
			return
		}

		tpl, steps, err := svc.Get(r.Context(), id, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, templateResponse{Template: tpl, Steps: steps})
	}
}

// NewListTemplatesHandler returns an http.HandlerFunc for GET /api/v1/templates.
func NewListTemplatesHandler(svc *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		templates, err := svc.List(r.Context(), tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, templates)
	}
}
