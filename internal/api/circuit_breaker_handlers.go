package api

import (
	"net/http"
)

// getCircuitBreakerStatusHandler returns the state of the Kafka publish breaker
func (s *Server) getCircuitBreakerStatusHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    s.kafkaBreaker.GetMetrics(),
	})
}

// resetCircuitBreakerHandler resets the Kafka publish breaker to closed
func (s *Server) resetCircuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	s.kafkaBreaker.Reset()

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]string{
			"message": "Circuit breaker reset successfully",
		},
	})
}
