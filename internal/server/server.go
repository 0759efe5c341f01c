package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/copperhq/copper/internal/config"
	"github.com/copperhq/copper/internal/generator"
	"github.com/copperhq/copper/internal/observability"
	obsmiddleware "github.com/copperhq/copper/internal/observability/logger"
	obsmetrics "github.com/copperhq/copper/internal/observability/metrics"
	obstracing "github.com/copperhq/copper/internal/observability/tracing"
	"github.com/copperhq/copper/internal/query"
	querydomain "github.com/copperhq/copper/internal/query/domain"
	"github.com/copperhq/copper/internal/ratelimit"
	"github.com/copperhq/copper/internal/warehouse"
)

var Module = fx.Module("server",
	generator.Module,
	warehouse.Module,
	query.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + strings.TrimPrefix(strings.TrimSpace(cfg.HTTPPort), ":"),
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Server wires the pricing read API onto the engine.
type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	tenants   *config.TenantHolder
	queries   querydomain.Service
	warehouse *warehouse.Manager
	limiter   *ratelimit.QueryLimiter
	metrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	Tenants   *config.TenantHolder
	Queries   querydomain.Service
	Warehouse *warehouse.Manager
	Limiter   *ratelimit.QueryLimiter `optional:"true"`
	Metrics   *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		tenants:   p.Tenants,
		queries:   p.Queries,
		warehouse: p.Warehouse,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
	}

	s.registerSystemRoutes()
	s.registerAPIRoutes()

	return s
}

// Engine exposes the router, for tests that serve it directly.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerSystemRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/tenants", s.ListTenants)

	tenant := api.Group("/tenants/:tenant_id")
	tenant.Use(s.ResolveTenant())
	tenant.Use(s.QueryRateLimit())
	{
		tenant.GET("/portfolio", s.GetPortfolioSummary)
		tenant.GET("/waterfall", s.GetPriceWaterfall)
		tenant.GET("/customers", s.GetCustomerPerformance)
		tenant.GET("/customers/:idn_id/contracts", s.GetCustomerContracts)
		tenant.GET("/trends", s.GetMonthlyTrends)
		tenant.GET("/risk", s.GetContractRisk)
		tenant.GET("/transactions", s.GetTransactions)
		tenant.GET("/kpis", s.GetKPIs)
		tenant.GET("/dimensions", s.GetDimensions)
	}

	admin := api.Group("/admin")
	admin.POST("/regenerate", s.RegenerateWarehouse)
}

// Health reports liveness plus whether the warehouse is serving.
func (s *Server) Health(c *gin.Context) {
	ready := s.warehouse != nil && s.warehouse.DB() != nil
	status := "ok"
	code := http.StatusOK
	if !ready {
		status = "starting"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":          status,
		"warehouse_ready": ready,
	})
}
