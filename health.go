package ezpdf

import "time"

// HealthCheckTimeout bounds a single health check.
const HealthCheckTimeout = 5 * time.Second

// Health is the tri-state result of Renderer.HealthCheck.
type Health int

const (
	// HealthUnknown means the browser has not been launched yet.
	HealthUnknown Health = iota
	// HealthHealthy means a check page opened (and loaded) successfully.
	HealthHealthy
	// HealthUnhealthy means the check failed or timed out.
	HealthUnhealthy
)

func (h Health) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the health state as its string form.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
