package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	"github.com/copperhq/copper/internal/warehouse"
)

type regenerateRequest struct {
	Seed             int64  `json:"seed"`
	IDNCount         int    `json:"idns"`
	ContractCount    int    `json:"contracts"`
	TransactionCount int    `json:"transactions"`
	ReferenceDate    string `json:"reference_date"`
}

// RegenerateWarehouse rebuilds the dataset and swaps it in. Zero-value
// fields fall back to the configured generation defaults. When rate
// limiting is on, a Redis lock keeps replicas from rebuilding at once.
func (s *Server) RegenerateWarehouse(c *gin.Context) {
	var req regenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	ctx := c.Request.Context()

	if s.limiter.Enabled() {
		token, ok, err := s.limiter.TryLockRebuild(ctx)
		if err != nil {
			s.log.Warn("rebuild lock check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			AbortWithError(c, ErrConflict)
			return
		}
		defer func() {
			if err := s.limiter.ReleaseRebuild(ctx, token); err != nil {
				s.log.Warn("rebuild lock release failed", zap.Error(err))
			}
		}()
	}

	result, err := s.warehouse.Rebuild(ctx, generatordomain.Options{
		Seed:             req.Seed,
		IDNCount:         req.IDNCount,
		ContractCount:    req.ContractCount,
		TransactionCount: req.TransactionCount,
		ReferenceDate:    strings.TrimSpace(req.ReferenceDate),
	}, warehouse.TriggerAdmin)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("warehouse regenerated via admin API",
		zap.String("run_id", result.RunID),
		zap.Int64("seed", result.Seed),
		zap.Int("total_rows", result.TotalRows),
	)

	c.JSON(http.StatusOK, gin.H{"data": result})
}
