package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a new unique ID with the given prefix
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

var confirmationCodeMax = big.NewInt(1000000)

// GenerateConfirmationCode draws a fresh 6-digit numeric code uniformly at
// random. The code is regenerated on every assignment, so a previously
// issued code stops being valid the moment an order is reassigned.
func GenerateConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, confirmationCodeMax)

	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}
