package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// getAvailableDriversHandler lists the drivers the caller may assign
func (s *Server) getAvailableDriversHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	drivers, err := s.availabilityService.ListAvailableDrivers(r.Context(), identity)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    drivers,
	})
}

// assignDriverHandler assigns a driver to an order
func (s *Server) assignDriverHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	orderID := mux.Vars(r)["orderId"]

	var req struct {
		DriverID string `json:"driverId"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.DriverID == "" {
		s.respondWithError(w, http.StatusBadRequest, "driverId is required")
		return
	}

	result, err := s.dispatchService.AssignDriver(r.Context(), identity, orderID, req.DriverID)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    result,
	})
}
