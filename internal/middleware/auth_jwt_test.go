package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

var testCfg = config.Config{JWTSecret: "unit-test-secret"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testCfg.JWTSecret))
	assert.NoError(t, err)
	return signed
}

func validClaims(userID int64, role model.Role) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	}
}

// ミドルウェアを通し、okHandlerに到達したらctxの値を返す
func runAuth(t *testing.T, authorization string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.AuthJWT(testCfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, h(c))
	return rec, c
}

func TestAuthJWT_MissingHeader(t *testing.T) {
	rec, _ := runAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_NotBearer(t *testing.T) {
	rec, _ := runAuth(t, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_BadSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(1, model.RoleCustomer))
	signed, _ := tok.SignedString([]byte("wrong-secret"))

	rec, _ := runAuth(t, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_ExpiredToken(t *testing.T) {
	claims := validClaims(1, model.RoleCustomer)
	claims["exp"] = time.Now().Add(-time.Minute).Unix()

	rec, _ := runAuth(t, "Bearer "+signToken(t, claims))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_UnknownRole(t *testing.T) {
	claims := validClaims(1, model.Role("SUPERUSER"))

	rec, _ := runAuth(t, "Bearer "+signToken(t, claims))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthJWT_Success_SetsContext(t *testing.T) {
	rec, c := runAuth(t, "Bearer "+signToken(t, validClaims(42, model.RoleSeller)))
	assert.Equal(t, http.StatusOK, rec.Code)

	userID, ok := c.Get(middleware.CtxUserIDKey).(int64)
	assert.True(t, ok)
	assert.Equal(t, int64(42), userID)

	role, ok := c.Get(middleware.CtxUserRoleKey).(model.Role)
	assert.True(t, ok)
	assert.Equal(t, model.RoleSeller, role)
}

func TestRequireRole_Forbidden(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/seller/products", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserRoleKey, model.RoleCustomer)

	h := middleware.RequireRole(model.RoleSeller)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, h(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_Allowed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/seller/products", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserRoleKey, model.RoleSeller)

	h := middleware.RequireRole(model.RoleSeller, model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
