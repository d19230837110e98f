package ports

import (
	"time"

	"devservices/internal"
	"devservices/pkg/document"
	"devservices/internal/registry"
)

type GetServiceRequest struct {
	Name string `json:"name" validate:"required"`
}

type ReleaseServiceRequest struct {
	Name string `json:"name" validate:"required"`
}

type ServiceResponse struct {
	Name         string            `json:"name"`
	ID           string            `json:"id"`
	Backend      string            `json:"backend,omitempty"`
	Address      string            `json:"address,omitempty"`
	Settings     document.Settings `json:"settings,omitempty"`
	Metadata     map[string]string `json:"metadata"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// NewServiceResponse describes a registered service. svc adds connection
// details when it is the container behind rec.
func NewServiceResponse(rec registry.Record, svc *internal.RunningService) ServiceResponse {
	resp := ServiceResponse{
		Name:         rec.Name,
		ID:           rec.ID,
		Metadata:     rec.Metadata,
		RegisteredAt: rec.RegisteredAt,
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]string{}
	}

	if svc != nil && svc.ID == rec.ID {
		resp.Backend = svc.Kind.String()
		resp.Address = svc.Address.String()
		resp.Settings = document.SettingsFor(svc.Address.Host, svc.Address.Port)
	}
	return resp
}
