package auth

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetgo/dispatch-api/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:        "usr_1",
		Role:      models.RoleManager,
		CompanyID: sql.NullString{String: "cmp_1", Valid: true},
		ShopID:    sql.NullString{String: "shp_1", Valid: true},
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	tokens := NewTokenManager("jwt-secret")

	signed, err := tokens.Issue(testUser(), "ses_1", time.Hour)
	assert.NoError(t, err)

	identity, err := tokens.Parse(signed)
	assert.NoError(t, err)
	assert.Equal(t, "usr_1", identity.UserID)
	assert.Equal(t, models.RoleManager, identity.Role)
	assert.Equal(t, "cmp_1", identity.CompanyID.String)
	assert.True(t, identity.CompanyID.Valid)
	assert.Equal(t, "shp_1", identity.ShopID.String)
	assert.Equal(t, "ses_1", identity.SessionID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokenManager("secret-a").Issue(testUser(), "ses_1", time.Hour)
	assert.NoError(t, err)

	_, err = NewTokenManager("secret-b").Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tokens := NewTokenManager("jwt-secret")

	signed, err := tokens.Issue(testUser(), "ses_1", -time.Minute)
	assert.NoError(t, err)

	_, err = tokens.Parse(signed)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("jwt-secret")

	_, err := tokens.Parse("not-a-token")
	assert.Error(t, err)
}

func TestParseEmptyScopes(t *testing.T) {
	tokens := NewTokenManager("jwt-secret")

	customer := &models.User{ID: "usr_2", Role: models.RoleCustomer}

	signed, err := tokens.Issue(customer, "ses_2", time.Hour)
	assert.NoError(t, err)

	identity, err := tokens.Parse(signed)
	assert.NoError(t, err)
	assert.False(t, identity.CompanyID.Valid)
	assert.False(t, identity.ShopID.Valid)
}
