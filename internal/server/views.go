package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	querydomain "github.com/copperhq/copper/internal/query/domain"
)

// parseFilters reads the whitelisted filter params. Anything else on
// the query string is ignored.
func parseFilters(c *gin.Context) querydomain.Filters {
	return querydomain.Filters{
		DeviceCategory: strings.TrimSpace(c.Query("device_category")),
		Region:         strings.TrimSpace(c.Query("region")),
		DealStructure:  strings.TrimSpace(c.Query("deal_structure")),
		GPO:            strings.TrimSpace(c.Query("gpo")),
	}
}

func (s *Server) GetPortfolioSummary(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	rows, err := s.queries.PortfolioSummary(c.Request.Context(), tenant.ID, parseFilters(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetPriceWaterfall(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	rows, err := s.queries.PriceWaterfall(c.Request.Context(), tenant.ID, parseFilters(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetCustomerPerformance(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	rows, err := s.queries.CustomerPerformance(c.Request.Context(), tenant.ID, parseFilters(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetCustomerContracts(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	idnID := strings.TrimSpace(c.Param("idn_id"))
	rows, err := s.queries.CustomerContracts(c.Request.Context(), tenant.ID, idnID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetMonthlyTrends(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	rows, err := s.queries.MonthlyTrends(c.Request.Context(), tenant.ID, parseFilters(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetContractRisk(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	rows, err := s.queries.ContractRisk(c.Request.Context(), tenant.ID, parseFilters(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetTransactions(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	rows, err := s.queries.Transactions(c.Request.Context(), tenant.ID, parseFilters(c), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) GetKPIs(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	kpis, err := s.queries.KPIs(c.Request.Context(), tenant.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": kpis})
}

func (s *Server) GetDimensions(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		AbortWithError(c, ErrTenantNotFound)
		return
	}

	dims, err := s.queries.Dimensions(c.Request.Context(), tenant.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dims})
}
