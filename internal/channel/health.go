package channel

import "net/http"

// ServiceName is reported by the health endpoint.
const ServiceName = "whatsapp-email-notifier"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthHandler reports liveness. It makes no remote calls.
func HealthHandler(version string) http.HandlerFunc {
	return func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusOK, HealthResponse{OK: true, Service: ServiceName, Version: version})
	}
}
