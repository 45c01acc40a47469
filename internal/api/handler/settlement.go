package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/settlement"
)

// NewCompletePayoutHandler returns an http.HandlerFunc for
// POST /api/v1/payouts/{payoutID}/complete.
func NewCompletePayoutHandler(svc *settlement.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "payoutID must be a UUID", nil)
			return
		}

		payout, err := svc.Complete(r.Context(), payoutID, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, payout)
	}
}

// NewGetJobPayoutHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}/payout.
func NewGetJobPayoutHandler(svc *settlement.Issuer) http.HandlerFunc {
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

		payout, err := svc.PayoutForJob(r.Context(), jobID, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, payout)
	}
}

// NewRedeemVoucherHandler returns an http.HandlerFunc for POST /api/v1/vouchers/redeem.
func NewRedeemVoucherHandler(svc *settlement.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Code == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "code is required", nil)
			return
		}

		voucher, err := svc.Redeem(r.Context(), req.Code, tenantID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, voucher)
	}
}
