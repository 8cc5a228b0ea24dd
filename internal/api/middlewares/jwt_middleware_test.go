package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func run(token string) (*httptest.ResponseRecorder, string) {
	var seen string
	h := JWTMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTMiddleware_SubClaim(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, user := run(tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", user)
}

func TestJWTMiddleware_LegacyUserIDClaim(t *testing.T) {
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "user-2"})
	rec, user := run(tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-2", user)
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing":     "",
		"wrong key":   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u"}),
		"expired":     sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":  sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "admin"}),
		"wrong alg":   sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"sub": "u"}),
		"not a token": "garbage",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			rec, user := run(tok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, user)
		})
	}
}

func TestJWTMiddleware_EmptySecretRejectsEverything(t *testing.T) {
	forged := sign(t, jwt.SigningMethodHS256, []byte{}, jwt.MapClaims{"sub": "someone-else"})

	h := JWTMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
