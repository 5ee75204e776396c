package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fleetgo/dispatch-api/internal/models"
)

// Payload is the delivery confirmation document encoded into the customer's
// QR image. The signature covers every field, so a scanned payload that
// verifies is known to be untampered and bound to exactly one trip.
type Payload struct {
	TripID           string  `json:"trip_id"`
	OrderID          string  `json:"order_id"`
	CustomerID       string  `json:"customer_id"`
	DriverID         string  `json:"driver_id"`
	CompanyID        string  `json:"company_id"`
	Amount           float64 `json:"amount"`
	ConfirmationCode string  `json:"confirmation_code"`
}

// SignedPayload is a Payload plus its signature, as handed to the client
type SignedPayload struct {
	Payload
	Signature string `json:"signature"`
}

// Signer signs and verifies delivery confirmation payloads with HMAC-SHA256
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer from the shared QR secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// PayloadForTrip builds the confirmation payload for a trip
func PayloadForTrip(trip *models.Trip) Payload {
	return Payload{
		TripID:           trip.ID,
		OrderID:          trip.OrderID,
		CustomerID:       trip.CustomerID,
		DriverID:         trip.DriverID,
		CompanyID:        trip.CompanyID,
		Amount:           trip.DeliverableAmount(),
		ConfirmationCode: trip.ConfirmationCode,
	}
}

// Sign computes the hex-encoded HMAC-SHA256 signature of the payload
func (s *Signer) Sign(p Payload) (SignedPayload, error) {
	sig, err := s.signature(p)
	if err != nil {
		return SignedPayload{}, err
	}
	return SignedPayload{Payload: p, Signature: sig}, nil
}

// Verify checks the payload against its claimed signature in constant time
func (s *Signer) Verify(p Payload, signature string) (bool, error) {
	expected, err := s.signature(p)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

func (s *Signer) signature(p Payload) (string, error) {
	// json.Marshal emits struct fields in declaration order, so the signed
	// bytes are canonical for a given payload.
	canonical, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(canonical)

	return hex.EncodeToString(mac.Sum(nil)), nil
}
