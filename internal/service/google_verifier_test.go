package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

func newTokenInfoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("id_token"))
		w.WriteHeader(status)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGoogleVerifierVerify(t *testing.T) {
	server := newTokenInfoServer(t, http.StatusOK, `{"aud":"client-1","email":"jane@school.test","email_verified":"true","name":"Jane Doe","exp":"1893456000"}`)
	verifier := NewGoogleVerifier("client-1", nil)
	verifier.endpoint = server.URL

	identity, err := verifier.Verify(context.Background(), "google", "token")
	require.NoError(t, err)
	assert.Equal(t, "jane@school.test", identity.Email)
	assert.Equal(t, "Jane Doe", identity.FullName)
}

func TestGoogleVerifierRejectsOtherProviders(t *testing.T) {
	verifier := NewGoogleVerifier("", nil)

	_, err := verifier.Verify(context.Background(), "github", "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestGoogleVerifierRejectsInvalidToken(t *testing.T) {
	server := newTokenInfoServer(t, http.StatusBadRequest, `{"error":"invalid_token"}`)
	verifier := NewGoogleVerifier("", nil)
	verifier.endpoint = server.URL

	_, err := verifier.Verify(context.Background(), "google", "bad-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestGoogleVerifierRejectsWrongAudience(t *testing.T) {
	server := newTokenInfoServer(t, http.StatusOK, `{"aud":"someone-else","email":"jane@school.test","email_verified":"true"}`)
	verifier := NewGoogleVerifier("client-1", nil)
	verifier.endpoint = server.URL

	_, err := verifier.Verify(context.Background(), "google", "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestGoogleVerifierRequiresVerifiedEmail(t *testing.T) {
	server := newTokenInfoServer(t, http.StatusOK, `{"aud":"client-1","email":"jane@school.test","email_verified":"false"}`)
	verifier := NewGoogleVerifier("client-1", nil)
	verifier.endpoint = server.URL

	_, err := verifier.Verify(context.Background(), "google", "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
