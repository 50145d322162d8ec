package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhdanov/membership-service/internal/domain"
	"github.com/mzhdanov/membership-service/pkg/logger"
)

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewHMACTokenService("test-secret", time.Hour)
	account := &domain.Account{ID: uuid.New(), Email: "member@example.com"}

	token, err := tokens.Issue(account)
	require.NoError(t, err)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
	assert.Equal(t, account.Email, claims.Email)
}

func TestTokenValidationFailures(t *testing.T) {
	tokens := NewHMACTokenService("test-secret", time.Hour)
	account := &domain.Account{ID: uuid.New(), Email: "member@example.com"}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewHMACTokenService("other-secret", time.Hour)
		token, err := other.Issue(account)
		require.NoError(t, err)

		_, err = tokens.Validate(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		shortLived := NewHMACTokenService("test-secret", -time.Minute)
		token, err := shortLived.Issue(account)
		require.NoError(t, err)

		_, err = tokens.Validate(token)
		assert.EqualError(t, err, "token expired")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := tokens.Validate("not.a.token")
		assert.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := NewHMACTokenService("test-secret", time.Hour)
	mw := NewJWTMiddleware(newTestLogger(), tokens)

	router := gin.New()
	router.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		id, ok := AccountIDFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"account_id": id})
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		account := &domain.Account{ID: uuid.New(), Email: "member@example.com"}
		token, err := tokens.Issue(account)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
