package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edupanel/campus-api/internal/models"
	appErrors "github.com/edupanel/campus-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func newJWTTestRouter(validator TokenValidator) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	router := gin.New()
	router.GET("/", JWT(validator), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNoContent)
	})
	return router, &reached
}

func TestJWTMissingHeader(t *testing.T) {
	router, reached := newJWTTestRouter(&stubValidator{})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, *reached)
}

func TestJWTMalformedHeader(t *testing.T) {
	router, reached := newJWTTestRouter(&stubValidator{})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, *reached)
}

func TestJWTInvalidToken(t *testing.T) {
	router, reached := newJWTTestRouter(&stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, *reached)
}

func TestJWTValidTokenStoresClaims(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, Email: "jane@school.test"}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var seen *models.JWTClaims
	router.GET("/", JWT(&stubValidator{claims: claims}), func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		seen = value.(*models.JWTClaims)
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, claims, seen)
}

func TestJWTBearerIsCaseInsensitive(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	router, reached := newJWTTestRouter(&stubValidator{claims: claims})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer good-token")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, *reached)
}
