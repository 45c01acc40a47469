package handler

import (
	"net/http"

	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/jobs"
	"github.com/scoutops/scoutops/internal/settlement"
)

// NewExpireJobsHandler returns an http.HandlerFunc for POST /api/v1/admin/expire/jobs.
// Meant to be invoked by the external scheduler.
func NewExpireJobsHandler(svc *jobs.Poster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.ExpireOverdue(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, map[string]any{"expired": count})
	}
}

// NewExpireVouchersHandler returns an http.HandlerFunc for POST /api/v1/admin/expire/vouchers.
func NewExpireVouchersHandler(svc *settlement.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.ExpireOverdue(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		response.JSON(w, map[string]any{"expired": count})
	}
}
