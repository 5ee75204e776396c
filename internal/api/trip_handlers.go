package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/qr"
)

// getCustomerTripHandler returns the tracking snapshot of a customer's trip
func (s *Server) getCustomerTripHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	tripID := mux.Vars(r)["tripId"]

	trip, err := s.tripService.GetTripForCustomer(r.Context(), identity, tripID)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    trip,
	})
}

// getTripQRHandler issues the signed delivery confirmation payload
func (s *Server) getTripQRHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	tripID := mux.Vars(r)["tripId"]

	signed, err := s.confirmationService.QRForTrip(r.Context(), identity, tripID)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    signed,
	})
}

// confirmQRHandler completes a delivery from a scanned payload
func (s *Server) confirmQRHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	var req qr.SignedPayload

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	trip, err := s.confirmationService.ConfirmDeliveryByScan(r.Context(), identity, req.Payload, req.Signature)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    trip,
	})
}

// getDriverTripsHandler lists the caller's trips
func (s *Server) getDriverTripsHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	trips, err := s.tripService.ListDriverTrips(r.Context(), identity)
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    trips,
	})
}

// updateTripStatusHandler starts or cancels a trip
func (s *Server) updateTripStatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	tripID := mux.Vars(r)["tripId"]

	var req struct {
		Status string `json:"status"`
	}

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	trip, err := s.tripService.UpdateTripStatus(r.Context(), identity, tripID, models.TripStatus(req.Status))
	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    trip,
	})
}

// recordTripLocationHandler appends a GPS breadcrumb to an in-progress trip
func (s *Server) recordTripLocationHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identityFromRequest(w, r)
	if !ok {
		return
	}

	tripID := mux.Vars(r)["tripId"]

	var point models.RoutePoint

	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&point); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := s.tripService.RecordLocation(r.Context(), identity, tripID, point); err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "Location recorded"},
	})
}
