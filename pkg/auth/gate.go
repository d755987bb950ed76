// Package auth holds the admission check run before every gated handler.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"hostmon/pkg/log"
	"hostmon/pkg/models"
)

const (
	bearerPrefix = "Bearer "
	// KindAuthorizationDenied is the error kind returned to denied callers.
	KindAuthorizationDenied = "authorization_denied"
)

// ErrAuthorizationDenied is returned by a Gate that rejects a request.
var ErrAuthorizationDenied = errors.New("authorization denied")

// Gate admits or rejects a request before it is handled.
type Gate interface {
	// Admit returns nil for admitted requests and ErrAuthorizationDenied otherwise.
	Admit(req *http.Request) error
}

// AllowAll admits every request.
type AllowAll struct{}

// Admit implements Gate.
func (AllowAll) Admit(*http.Request) error {
	return nil
}

// TokenGate admits requests carrying "Authorization: Bearer <token>".
type TokenGate struct {
	token []byte
}

// NewTokenGate returns a TokenGate, or AllowAll when token is empty.
func NewTokenGate(token string) Gate {
	if token == "" {
		return AllowAll{}
	}
	return &TokenGate{token: []byte(token)}
}

// Admit implements Gate.
func (g *TokenGate) Admit(req *http.Request) error {
	header := req.Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ErrAuthorizationDenied
	}

	presented := []byte(strings.TrimPrefix(header, bearerPrefix))
	if subtle.ConstantTimeCompare(presented, g.token) != 1 {
		return ErrAuthorizationDenied
	}
	return nil
}

// Middleware runs gate before the next handler and answers 401 on rejection.
func Middleware(gate Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := gate.Admit(ctx.Request()); err != nil {
				log.Warn().
					Err(err).
					Str("path", ctx.Request().URL.Path).
					Str("remote_ip", ctx.RealIP()).
					Msg("Request rejected by access gate")

				ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return ctx.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error: ErrAuthorizationDenied.Error(),
					Kind:  KindAuthorizationDenied,
				})
			}
			return next(ctx)
		}
	}
}
