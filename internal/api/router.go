package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/scoutops/scoutops/internal/api/middleware"
	"github.com/scoutops/scoutops/internal/api/response"
	"github.com/scoutops/scoutops/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateTemplate  http.HandlerFunc
	UpdateTemplate  http.HandlerFunc
	ArchiveTemplate http.HandlerFunc
	GetTemplate     http.HandlerFunc
	ListTemplates   http.HandlerFunc

	CreateJob  http.HandlerFunc
	GetJob     http.HandlerFunc
	ListJobs   http.HandlerFunc
	PublishJob http.HandlerFunc
	CancelJob  http.HandlerFunc
	AcceptJob  http.HandlerFunc
	StartJob   http.HandlerFunc

	Submit        http.HandlerFunc
	GetSubmission http.HandlerFunc
	Review        http.HandlerFunc
	CompilePacket http.HandlerFunc

	CompletePayout http.HandlerFunc
	GetJobPayout   http.HandlerFunc
	RedeemVoucher  http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
	ExpireJobs       http.HandlerFunc
	ExpireVouchers   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		// Template catalog (manager)
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeManager))

			r.Post("/api/v1/templates", orNotImplemented(deps.CreateTemplate))
			r.Get("/api/v1/templates", orNotImplemented(deps.ListTemplates))
			r.Get("/api/v1/templates/{templateID}", orNotImplemented(deps.GetTemplate))
			r.Put("/api/v1/templates/{templateID}", orNotImplemented(deps.UpdateTemplate))
			r.Delete("/api/v1/templates/{templateID}", orNotImplemented(deps.ArchiveTemplate))

			r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
			r.Post("/api/v1/jobs/{jobID}/publish", orNotImplemented(deps.PublishJob))
			r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJob))
			r.Get("/api/v1/jobs/{jobID}/payout", orNotImplemented(deps.GetJobPayout))

			r.Post("/api/v1/submissions/{submissionID}/review", orNotImplemented(deps.Review))
			r.Post("/api/v1/submissions/{submissionID}/packet", orNotImplemented(deps.CompilePacket))

			r.Post("/api/v1/payouts/{payoutID}/complete", orNotImplemented(deps.CompletePayout))
			r.Post("/api/v1/vouchers/redeem", orNotImplemented(deps.RedeemVoucher))
		})

		// Readable by any authenticated member
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Get("/api/v1/submissions/{submissionID}", orNotImplemented(deps.GetSubmission))

		// Field operations (scout)
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeScout))

			r.Post("/api/v1/jobs/{jobID}/accept", orNotImplemented(deps.AcceptJob))
			r.Post("/api/v1/jobs/{jobID}/start", orNotImplemented(deps.StartJob))
			r.Post("/api/v1/jobs/{jobID}/submissions", orNotImplemented(deps.Submit))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
			r.Post("/api/v1/admin/expire/jobs", orNotImplemented(deps.ExpireJobs))
			r.Post("/api/v1/admin/expire/vouchers", orNotImplemented(deps.ExpireVouchers))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
