package handler

import (
	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/deppfellow/meta-dispatcher/internal/service"
)

// Handlers is a container that groups all HTTP handlers, so router setup
// passes one object around instead of many.
type Handlers struct {
	Dispatch *DispatchHandler // Dispatch forwards POST / to a backend.
	Health   *HealthHandler   // Health serves the status endpoint.
	OpenAPI  *OpenAPIHandler  // OpenAPI serves the API document and docs UI.
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Dispatch: NewDispatchHandler(s, services.Dispatch),
		Health:   NewHealthHandler(s),
		OpenAPI:  NewOpenAPIHandler(s),
	}
}
