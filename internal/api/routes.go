package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Environments
	mux.Handle("GET /api/v1/environments", chain(http.HandlerFunc(h.ListEnvironments)))
	mux.Handle("POST /api/v1/environments", chain(http.HandlerFunc(h.RegisterEnvironment)))

	// Sessions
	mux.Handle("POST /api/v1/sessions", chain(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /api/v1/sessions/{id}", chain(http.HandlerFunc(h.GetSession)))
	mux.Handle("DELETE /api/v1/sessions/{id}", chain(http.HandlerFunc(h.CloseSession)))
	mux.Handle("PUT /api/v1/sessions/{id}/orgs", chain(http.HandlerFunc(h.SelectOrgs)))
	mux.Handle("POST /api/v1/sessions/{id}/next", chain(http.HandlerFunc(h.NextStep)))
	mux.Handle("POST /api/v1/sessions/{id}/previous", chain(http.HandlerFunc(h.PreviousStep)))
	mux.Handle("PUT /api/v1/sessions/{id}/types", chain(http.HandlerFunc(h.SelectTypes)))
	mux.Handle("POST /api/v1/sessions/{id}/descriptors", chain(http.HandlerFunc(h.FetchDescriptors)))
	mux.Handle("PUT /api/v1/sessions/{id}/rows", chain(http.HandlerFunc(h.SelectRows)))
	mux.Handle("POST /api/v1/sessions/{id}/deploy", chain(http.HandlerFunc(h.Deploy)))

	// Deployments
	mux.Handle("GET /api/v1/deployments", chain(http.HandlerFunc(h.ListDeployments)))
	mux.Handle("GET /api/v1/deployments/{id}", chain(http.HandlerFunc(h.GetDeployment)))
}
