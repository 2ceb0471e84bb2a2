package middlewares

import (
	"context"

	"github.com/gin-gonic/gin"

	"tender-server/internal/domain/company"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

const companyContextKey = "company"

// CompanyLookup resolves the company owned by an authenticated subject.
type CompanyLookup interface {
	GetByOwner(ctx context.Context, ownerSubject string) (*company.Company, error)
}

// RequireCompany loads the caller's company profile. Callers without one get FORBIDDEN.
// Must run after AuthMiddleware.
func RequireCompany(lookup CompanyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "authentication required", "0c6e1a7f-2b9d-4e58-b3f1-7a4d2c8e6b90")
			return
		}
		cmp, err := lookup.GetByOwner(c.Request.Context(), principal.Subject)
		if err != nil {
			responses.HandleError(c, err, "failed to resolve current company")
			return
		}
		c.Set(companyContextKey, cmp)
		c.Next()
	}
}

// CompanyFromContext returns the caller's company stored by RequireCompany.
func CompanyFromContext(c *gin.Context) (*company.Company, bool) {
	val, ok := c.Get(companyContextKey)
	if !ok {
		return nil, false
	}
	cmp, ok := val.(*company.Company)
	return cmp, ok && cmp != nil
}

// SetCompany stores cmp on the gin context. Used by tests that bypass RequireCompany.
func SetCompany(c *gin.Context, cmp *company.Company) {
	c.Set(companyContextKey, cmp)
}
