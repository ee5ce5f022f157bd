package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/edupanel/campus-api/internal/models"
)

func newRBACTestRouter(claims *models.JWTClaims, roles ...models.UserRole) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RequireRoles(roles...), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNoContent)
	})
	return router, &reached
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	router, reached := newRBACTestRouter(claims, models.RoleAdmin, models.RoleTeacher)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, *reached)
}

func TestRequireRolesRejectsUnlistedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	router, reached := newRBACTestRouter(claims, models.RoleAdmin, models.RoleTeacher)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.False(t, *reached)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router, reached := newRBACTestRouter(nil, models.RoleAdmin)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, *reached)
}

func TestRequireRolesParentReadAccess(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleParent}
	router, reached := newRBACTestRouter(claims, models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, *reached)
}
