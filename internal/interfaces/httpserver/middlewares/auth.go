package middlewares

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tender-server/internal/domain"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

const (
	principalContextKey = "principal"

	devUserIDHeader    = "X-User-Id"
	devUserEmailHeader = "X-User-Email"
)

// TokenValidator turns a bearer token into a principal.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*domain.Principal, error)
}

// AuthMiddleware requires a valid bearer token. With a nil validator the service runs in
// development mode and trusts the X-User-Id and X-User-Email headers instead.
func AuthMiddleware(validator TokenValidator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if validator == nil {
			subject := strings.TrimSpace(c.GetHeader(devUserIDHeader))
			if subject == "" {
				responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "5b0e7c1d-6f0e-4a3c-9a54-2d0c3a1f8e01")
				return
			}
			setPrincipal(c, domain.Principal{Subject: subject, Email: c.GetHeader(devUserEmailHeader)})
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "9d7f2b61-3c4e-4d1b-8f0a-6e2c7b5a9d12")
			return
		}

		principal, err := validator.Validate(ctx, token)
		if err != nil {
			logger.Warn().Err(err).Msg("jwt validation failed")
			responses.HandleError(c, platformerrors.NewError(ctx, platformerrors.LayerRoute, platformerrors.ErrorTypeUnauthorized, "invalid token", err, "e3a1c9b4-7d2f-4b8e-a0c6-1f5d8e2b7c33"), "unauthorized")
			return
		}

		setPrincipal(c, *principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

// SetPrincipal stores principal on the gin context. Used by tests that bypass the middleware.
func SetPrincipal(c *gin.Context, principal domain.Principal) {
	setPrincipal(c, principal)
}

func setPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalContextKey, principal)
	c.Set("user_id", principal.Subject)
}

// bearerToken reads the token from the Authorization header or, for browser websockets
// that cannot set headers, the access_token query parameter.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), true
		}
		return "", false
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}
