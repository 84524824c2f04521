package server

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const defaultHealthCheckTimeout = 10 * time.Second

func (s *Server) healthCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.AI.ModelCheckTimeout > 0 {
		return s.AppConfig.AI.ModelCheckTimeout
	}
	return defaultHealthCheckTimeout
}

// healthHandler reports liveness. With ?deep=true it also probes the model
// and reports degraded (503) when the model is unavailable.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumescope",
		"version": s.Version,
	}
	healthy := true

	if deep, _ := strconv.ParseBool(r.URL.Query().Get("deep")); deep {
		ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
		defer cancel()

		modelInfo := s.Service.GetModelInfo(ctx)
		response["ai_model"] = modelInfo
		healthy = modelInfo.Available
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth summarizes the served certificate's expiry. It
// returns nil when TLS is not in use.
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certReloader == nil {
		return nil
	}

	certStatus := map[string]any{
		"auto_reload": s.certReloader.watching(),
	}

	timeToExpiry, err := s.certReloader.TimeToExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = err.Error()
		return certStatus
	}

	criticalThreshold := 24 * time.Hour
	warningThreshold := 7 * 24 * time.Hour

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= criticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= warningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	if reloads := s.certReloader.Reloads(); reloads > 0 {
		certStatus["reload_count"] = reloads
	}

	return certStatus
}

// statsHandler provides server statistics including breaker and rate limiting state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumescope",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"circuit_breakers": s.Service.GetCircuitBreakerStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}
