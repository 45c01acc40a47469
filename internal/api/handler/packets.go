package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/internal/packet"
)

// NewCompilePacketHandler returns an http.HandlerFunc for
// POST /api/v1/submissions/{submissionID}/packet. The response is the raw
// shape consumed by existing export tooling, not the standard envelope.
func NewCompilePacketHandler(svc *packet.Compiler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}
		actorID, ok := mw.GetMemberID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing member", nil)
			return
		}
		submissionID, err := uuid.Parse(chi.URLParam(r, "submissionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "submissionID must be a UUID", nil)
			return
		}

		path, err := svc.Compile(r.Context(), submissionID, tenantID, actorID)
		if err != nil {
			respondError(w, err)
			return
		}
		response.Raw(w, http.StatusOK, map[string]any{
			"success":    true,
			"packetPath": path,
		})
	}
}
