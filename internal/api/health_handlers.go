package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const healthCheckTimeout = 2 * time.Second

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{
		Status: http.StatusOK,
		Body: HealthResponse{
			Status:     "healthy",
			Components: make(map[string]ComponentHealth, len(s.services.Health)),
		},
	}

	for name, pinger := range s.services.Health {
		pctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		start := time.Now()
		err := pinger.Ping(pctx)
		latency := time.Since(start)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			out.Body.Components[name] = ComponentHealth{
				Status:  "unhealthy",
				Latency: latency.String(),
				Message: "unreachable",
			}
			out.Body.Status = "unhealthy"
			out.Status = http.StatusServiceUnavailable
			continue
		}
		out.Body.Components[name] = ComponentHealth{Status: "healthy", Latency: latency.String()}
	}
	return out, nil
}
