package service

import (
	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/schema"
	"github.com/deppfellow/meta-dispatcher/internal/server"
)

// Services groups the business services used by the handlers.
type Services struct {
	Dispatch *DispatchService
}

// NewService builds the services from the shared server dependencies.
//
// Backend clients are created here, once, from the descriptors in config.
func NewService(s *server.Server, opts ...backend.ClientOption) (*Services, error) {
	clients := backend.NewClients(&s.Config.Backends, opts...)

	return &Services{
		Dispatch: NewDispatchService(s.Gate, schema.NewDefaultClassifier(), clients, s.Metrics),
	}, nil
}
