package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"tender-server/internal/domain"
)

const (
	jwksRefreshInterval = time.Hour
	clockSkew           = 30 * time.Second
)

// JWTValidator verifies RS256 access tokens against an identity provider's JWKS.
type JWTValidator struct {
	issuer   string
	audience string
	keyfunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	log      zerolog.Logger
}

// NewJWTValidator fetches the JWKS once and keeps refreshing it in the background.
func NewJWTValidator(ctx context.Context, jwksURL, issuer, audience string, log zerolog.Logger) (*JWTValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	logger := log.With().Str("component", "jwt-validator").Logger()
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   jwksRefreshInterval,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Msg("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	v := newJWTValidator(jwks.Keyfunc, issuer, audience, logger)
	v.jwks = jwks
	return v, nil
}

func newJWTValidator(kf jwt.Keyfunc, issuer, audience string, log zerolog.Logger) *JWTValidator {
	return &JWTValidator{issuer: issuer, audience: audience, keyfunc: kf, log: log}
}

// Validate parses rawToken and returns the authenticated principal.
func (v *JWTValidator) Validate(_ context.Context, rawToken string) (*domain.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(rawToken, claims, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token has no subject")
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	return &domain.Principal{Subject: subject, Email: email, Name: name}, nil
}

// Close stops the background JWKS refresh.
func (v *JWTValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
