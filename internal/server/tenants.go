package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

const tenantContextKey = "copper/tenant"

// ListTenants returns the configured tenant catalog.
func (s *Server) ListTenants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.tenants.Get()})
}

// ResolveTenant resolves :tenant_id against the catalog before any
// view handler runs. An unknown tenant is a 404, never an empty
// result set.
func (s *Server) ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("tenant_id"))
		tenant, ok := s.tenants.Lookup(id)
		if !ok {
			AbortWithError(c, ErrTenantNotFound)
			return
		}
		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

func tenantFrom(c *gin.Context) (pricingdomain.Tenant, bool) {
	v, ok := c.Get(tenantContextKey)
	if !ok {
		return pricingdomain.Tenant{}, false
	}
	tenant, ok := v.(pricingdomain.Tenant)
	return tenant, ok
}
