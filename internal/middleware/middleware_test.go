package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs-labo46/ecshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("", AuthJWT(secret))
	g.GET("/me", func(c echo.Context) error {
		a, ok := ActorFromContext(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"id": a.UserID, "role": a.Role})
	})
	admin := e.Group("/admin", AuthJWT(secret), AdminRoleGuard())
	admin.GET("", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func do(e *echo.Echo, path string, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT(t *testing.T) {
	e := newEcho()
	exp := time.Now().Add(time.Hour).Unix()

	rec := do(e, "/me", sign(t, jwt.MapClaims{"sub": "7", "role": "client", "exp": exp}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"client"}`, rec.Body.String())

	cases := map[string]string{
		"missing":  "",
		"garbage":  "not-a-jwt",
		"expired":  sign(t, jwt.MapClaims{"sub": "7", "role": "client", "exp": time.Now().Add(-time.Minute).Unix()}),
		"bad role": sign(t, jwt.MapClaims{"sub": "7", "role": "root", "exp": exp}),
		"no sub":   sign(t, jwt.MapClaims{"role": "client", "exp": exp}),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(e, "/me", tok).Code)
		})
	}
}

func TestAdminRoleGuard(t *testing.T) {
	e := newEcho()
	exp := time.Now().Add(time.Hour).Unix()

	assert.Equal(t, http.StatusForbidden, do(e, "/admin", sign(t, jwt.MapClaims{"sub": "7", "role": "client", "exp": exp})).Code)
	assert.Equal(t, http.StatusNoContent, do(e, "/admin", sign(t, jwt.MapClaims{"sub": "1", "role": "admin", "exp": exp})).Code)
}

func TestActorFromContext_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := ActorFromContext(c)
	assert.False(t, ok)

	c.Set(CtxUserIDKey, int64(3))
	c.Set(CtxUserRoleKey, model.RoleClient)
	a, ok := ActorFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, int64(3), a.UserID)
}

func TestRequestTimeout(t *testing.T) {
	e := echo.New()
	e.Use(RequestTimeout(time.Millisecond))
	e.GET("/", func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			assert.ErrorIs(t, c.Request().Context().Err(), context.DeadlineExceeded)
			return c.NoContent(http.StatusServiceUnavailable)
		case <-time.After(time.Second):
			return c.NoContent(http.StatusOK)
		}
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop()))
	e.GET("/", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
