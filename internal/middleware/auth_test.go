package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/auth"
	"github.com/ivyhms/clinic-api/pkg/metrics"
)

// Registered once; promauto panics on a second registration of the same names.
var testMetrics = metrics.NewMetrics("test", "middleware_auth")

type fakeChecker struct {
	allow map[string]bool
	err   error
	asked []string
}

func (f *fakeChecker) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	f.asked = append(f.asked, permission)
	if f.err != nil {
		return false, f.err
	}
	return f.allow[permission], nil
}

func testRouter(t *testing.T, checker *fakeChecker, permission string) (*gin.Engine, auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := auth.NewJWTService("middleware-test-secret", "clinic-api", time.Hour)
	m := NewAuthMiddleware(jwtSvc, checker, testMetrics)

	r := gin.New()
	group := r.Group("", m.Authenticate())
	if permission != "" {
		group.Use(m.RequirePermission(permission))
	}
	group.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(ContextUserID),
			"email":   c.GetString(ContextUserEmail),
		})
	})
	return r, jwtSvc
}

func doGet(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func checkOutcomes(outcome string) float64 {
	return testutil.ToFloat64(testMetrics.PermissionChecks.WithLabelValues(outcome))
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	r, _ := testRouter(t, &fakeChecker{}, "")

	w := doGet(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")

	w = doGet(r, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authorization format")

	w = doGet(r, "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")

	// A token signed elsewhere fails the same way.
	other := auth.NewJWTService("different-secret", "clinic-api", time.Hour)
	token, _, err := other.Generate(uuid.New(), "x@example.com", nil)
	require.NoError(t, err)
	w = doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateSetsContext(t *testing.T) {
	r, jwtSvc := testRouter(t, &fakeChecker{}, "")
	userID := uuid.New()

	token, _, err := jwtSvc.Generate(userID, "doc@example.com", []string{model.RoleDoctor})
	require.NoError(t, err)

	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "doc@example.com")
}

func TestRequirePermissionDenied(t *testing.T) {
	checker := &fakeChecker{allow: map[string]bool{}}
	r, jwtSvc := testRouter(t, checker, model.PermViewPatients)

	token, _, err := jwtSvc.Generate(uuid.New(), "doc@example.com", []string{model.RoleDoctor})
	require.NoError(t, err)

	before := checkOutcomes("denied")
	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "forbidden")
	assert.Equal(t, []string{model.PermViewPatients}, checker.asked)
	assert.Equal(t, before+1, checkOutcomes("denied"))
}

func TestRequirePermissionGranted(t *testing.T) {
	checker := &fakeChecker{allow: map[string]bool{model.PermViewPatients: true}}
	r, jwtSvc := testRouter(t, checker, model.PermViewPatients)

	token, _, err := jwtSvc.Generate(uuid.New(), "doc@example.com", []string{model.RoleDoctor})
	require.NoError(t, err)

	before := checkOutcomes("granted")
	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, checkOutcomes("granted"))
}

func TestRequirePermissionCheckerError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store down")}
	r, jwtSvc := testRouter(t, checker, model.PermViewPatients)

	token, _, err := jwtSvc.Generate(uuid.New(), "doc@example.com", nil)
	require.NoError(t, err)

	before := checkOutcomes("error")
	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, before+1, checkOutcomes("error"))
}

func TestUserIDHelper(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := UserID(c)
	assert.False(t, ok)

	want := uuid.New()
	c.Set(ContextUserID, want.String())
	got, ok := UserID(c)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
