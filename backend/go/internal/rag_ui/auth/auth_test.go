package auth

import (
	"RagDesk/backend/go/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := New(config.AuthConfig{
		Accounts:         []string{"admin:" + string(hash)},
		TokenSecret:      "test-secret",
		TokenExpireHours: 1,
	})
	require.NoError(t, err)
	return a
}

func TestLoginAndVerify(t *testing.T) {
	a := newAuth(t)
	assert.True(t, a.Enabled())
	assert.Equal(t, 1, a.ExpireHours())

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	user, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = a.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login("ghost", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	a := newAuth(t)
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.Error(t, err)
}

func TestNewValidatesAccounts(t *testing.T) {
	_, err := New(config.AuthConfig{Accounts: []string{"admin"}, TokenSecret: "x"})
	assert.Error(t, err)

	_, err = New(config.AuthConfig{Accounts: []string{"admin:plaintext"}, TokenSecret: "x"})
	assert.Error(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = New(config.AuthConfig{Accounts: []string{"admin:" + string(hash)}})
	assert.Error(t, err, "a secret is required")

	a, err := New(config.AuthConfig{})
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	_, err = a.Login("admin", "pw")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestMiddleware(t *testing.T) {
	a := newAuth(t)
	token, err := a.Login("admin", "s3cret")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/api/x", a.Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserKey))
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage").Code)

	w := call("Bearer " + token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	a, err := New(config.AuthConfig{})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/x", a.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
