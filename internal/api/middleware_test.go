package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/internal/models"
	"github.com/fleetgo/dispatch-api/internal/repository"
	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

type sessionStoreMock struct {
	mock.Mock
}

func (m *sessionStoreMock) GetByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.Session)
	return session, args.Error(1)
}

func newTestServer(sessions sessionStore) *Server {
	return &Server{
		logger:      logger.NewNopLogger(),
		tokens:      auth.NewTokenManager("jwt-secret"),
		sessionRepo: sessions,
	}
}

func issueToken(t *testing.T, s *Server, role models.Role, sessionID string) string {
	t.Helper()

	token, err := s.tokens.Issue(&models.User{
		ID:        "usr_1",
		Role:      role,
		CompanyID: sql.NullString{String: "cmp_1", Valid: true},
	}, sessionID, time.Hour)
	assert.NoError(t, err)

	return token
}

func liveSession(userID string) *models.Session {
	return &models.Session{
		ID:        "ses_1",
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func identityEcho(captured **auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := auth.IdentityFromContext(r.Context())
		*captured = identity
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	sessions := new(sessionStoreMock)
	s := newTestServer(sessions)

	sessions.On("GetByID", mock.Anything, "ses_1").Return(liveSession("usr_1"), nil)

	var captured *auth.Identity
	handler := s.authMiddleware(identityEcho(&captured))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, models.RoleDriver, "ses_1"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, captured)
	assert.Equal(t, "usr_1", captured.UserID)
	assert.Equal(t, models.RoleDriver, captured.Role)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	handler := s.authMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	handler := s.authMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRevokedSession(t *testing.T) {
	sessions := new(sessionStoreMock)
	s := newTestServer(sessions)

	revoked := liveSession("usr_1")
	revoked.RevokedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	sessions.On("GetByID", mock.Anything, "ses_1").Return(revoked, nil)

	handler := s.authMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, models.RoleDriver, "ses_1"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareMissingSession(t *testing.T) {
	sessions := new(sessionStoreMock)
	s := newTestServer(sessions)

	sessions.On("GetByID", mock.Anything, "ses_1").Return(nil, repository.ErrNotFound)

	handler := s.authMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, models.RoleDriver, "ses_1"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareSessionUserMismatch(t *testing.T) {
	sessions := new(sessionStoreMock)
	s := newTestServer(sessions)

	sessions.On("GetByID", mock.Anything, "ses_1").Return(liveSession("usr_other"), nil)

	handler := s.authMiddleware(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/trips", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, s, models.RoleDriver, "ses_1"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func roleRequest(role models.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/manager/orders/available-drivers", nil)
	identity := &auth.Identity{UserID: "usr_1", Role: role, SessionID: "ses_1"}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func TestRequireRoles(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := s.requireRoles(models.RoleManager, models.RoleCompany)(ok)

	cases := []struct {
		role models.Role
		code int
	}{
		{models.RoleManager, http.StatusOK},
		{models.RoleCompany, http.StatusOK},
		{models.RoleDriver, http.StatusForbidden},
		{models.RoleCustomer, http.StatusForbidden},
		{models.Role("superadmin"), http.StatusForbidden},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, roleRequest(tc.role))
		assert.Equal(t, tc.code, rec.Code, "role %s", tc.role)
	}
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	handler := s.requireRoles(models.RoleManager)(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/manager/orders/available-drivers", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRespondWithAppErrorMapsTaxonomy(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	cases := []struct {
		err  error
		code int
	}{
		{apperrors.NewScopeResolutionError("no company scope"), http.StatusBadRequest},
		{apperrors.NewNotFoundError("order not found"), http.StatusNotFound},
		{apperrors.NewScopeViolationError("outside scope"), http.StatusForbidden},
		{apperrors.NewInvalidStateError("terminal order"), http.StatusBadRequest},
		{apperrors.NewDriverUnavailableError("driver busy"), http.StatusBadRequest},
		{apperrors.NewInvalidSignatureError("bad signature"), http.StatusBadRequest},
		{apperrors.NewForbiddenError("not yours"), http.StatusForbidden},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		s.respondWithAppError(rec, tc.err)

		assert.Equal(t, tc.code, rec.Code)

		var body ApiResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.NotEmpty(t, body.Error)
	}
}

func TestRespondWithAppErrorHidesInternalDetail(t *testing.T) {
	s := newTestServer(new(sessionStoreMock))

	rec := httptest.NewRecorder()
	s.respondWithAppError(rec, apperrors.NewInternalError("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ApiResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
}
