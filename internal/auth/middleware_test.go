package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-sales/internal/auth"
	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

func protectedHandler(t *testing.T, issuer *auth.TokenIssuer) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		httpx.OK(w, r, http.StatusOK, map[string]any{"id": id.AccountID, "email": id.Email}, "")
	})
	return auth.Middleware(issuer, nil)(next)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpx.Envelope {
	t.Helper()
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestMiddlewareMissingToken(t *testing.T) {
	h := protectedHandler(t, newTokenIssuer(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/product", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Message)
	assert.Equal(t, "Token is missing", *env.Message)
}

func TestMiddlewareHeaderWithoutCredential(t *testing.T) {
	h := protectedHandler(t, newTokenIssuer(t))

	for _, header := range []string{"Bearer", "   ", "xyz"} {
		req := httptest.NewRequest(http.MethodGet, "/product", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	issuer := newTokenIssuer(t)
	h := protectedHandler(t, issuer)
	pair, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":       "Bearer not-a-jwt",
		"refresh token": "Bearer " + pair.RefreshToken,
		"basic scheme":  "Basic xyz",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/product", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Message)
			assert.Equal(t, "Token is invalid", *env.Message)
		})
	}
}

func TestMiddlewareExpiredToken(t *testing.T) {
	short, err := auth.NewTokenIssuer("test-secret", time.Second, time.Hour)
	require.NoError(t, err)
	pair, err := short.Issue(7, "a@example.com")
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/product", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	protectedHandler(t, short).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	issuer := newTokenIssuer(t)
	pair, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/product", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	protectedHandler(t, issuer).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	data := env.Data.(map[string]any)
	assert.EqualValues(t, 7, data["id"])
	assert.Equal(t, "a@example.com", data["email"])
}
