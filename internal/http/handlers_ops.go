package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "spendwise/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				applog.FieldErrorType, applog.ErrorTypeDatabase,
				applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "Database unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// handleMetrics writes the in-process counters as plain text, one per line.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	sm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_client_errors_total %d\n", tm.ClientErrors)
	fmt.Fprintf(w, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "http_last_response_time_us %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "rate_limit_hits_total %d\n", rm.TotalHits)
	fmt.Fprintf(w, "rate_limit_clients %d\n", rm.ClientCount)
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", sm.SuspiciousRequests)
	fmt.Fprintf(w, "security_unknown_api_routes_total %d\n", sm.UnknownAPIRoutes)
	fmt.Fprintf(w, "security_invalid_ip_total %d\n", sm.InvalidIPAttempts)
}
