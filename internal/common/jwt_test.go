package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("round-trip-secret")

	token, err := GenerateToken("user-1", "sam@example.com")
	require.NoError(t, err)

	claims, err := ValidToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sam@example.com", claims.Email)
}

func TestValidTokenRejectsWrongSecret(t *testing.T) {
	SetJWTSecret("original-secret")
	token, err := GenerateToken("user-1", "sam@example.com")
	require.NoError(t, err)

	SetJWTSecret("rotated-secret")
	_, err = ValidToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	SetJWTSecret("middleware-secret")
	token, err := GenerateToken("user-1", "sam@example.com")
	require.NoError(t, err)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserID(r.Context())
	})
	handler := AuthMiddleware(next)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
	})

	t.Run("query token for websocket clients", func(t *testing.T) {
		gotUserID = ""
		req := httptest.NewRequest(http.MethodGet, "/ws/notifications?token="+token, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestInternalAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/hooks/rsvp", nil)
		req.Header.Set("X-Service-Token", "svc-token")
		rec := httptest.NewRecorder()

		InternalAuthMiddleware("svc-token")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/hooks/rsvp", nil)
		req.Header.Set("X-Service-Token", "guess")
		rec := httptest.NewRecorder()

		InternalAuthMiddleware("svc-token")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unconfigured token disables the surface", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal/hooks/rsvp", nil)
		req.Header.Set("X-Service-Token", "")
		rec := httptest.NewRecorder()

		InternalAuthMiddleware("")(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
