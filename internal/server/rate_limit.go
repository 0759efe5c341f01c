package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/copperhq/copper/internal/observability/logger"
)

const rateLimitReasonTenantRate = "tenant-rate"

// QueryRateLimit throttles view reads per tenant through the shared
// Redis bucket. With rate limiting disabled it is a no-op.
func (s *Server) QueryRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		tenant, ok := tenantFrom(c)
		if !ok {
			AbortWithError(c, ErrTenantNotFound)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeEndpoint(c)

		allowed, err := s.limiter.AllowTenant(ctx, tenant.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("query rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			logger.FromContext(ctx).Warn("query rate limit exceeded",
				zap.String("tenant_id", tenant.ID),
				zap.String("endpoint", endpoint),
			)
			s.metrics.RecordRateLimitDenied(ctx, tenant.ID, endpoint, rateLimitReasonTenantRate)
			c.Header("Retry-After", "1")
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.metrics.RecordRateLimitAllowed(ctx, tenant.ID, endpoint)
		c.Next()
	}
}

func normalizeEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
