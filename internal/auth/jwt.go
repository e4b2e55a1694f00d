// Package auth provides JWT validation middleware and role claims for the API.
package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// RoleAdmin is the role claim value required for administrative endpoints.
const RoleAdmin = "admin"

// Claims are the JWT claims carried by API tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Middleware returns JWT validation middleware for the given secret.
// Requests matched by skip bypass validation entirely.
func Middleware(secret string, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper: skip,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		SigningKey: []byte(secret),
	})
}

// ClaimsFromContext extracts the validated claims stored by the JWT middleware.
func ClaimsFromContext(c echo.Context) (*Claims, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
	}
	return claims, nil
}

// RequireAdmin rejects the request unless the token carries the admin role.
func RequireAdmin(c echo.Context) error {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(claims.Role), RoleAdmin) {
		return echo.NewHTTPError(http.StatusForbidden, "admin role required")
	}
	return nil
}
