package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	"github.com/smallbiznis/quoteflow/internal/config"
	dashboarddomain "github.com/smallbiznis/quoteflow/internal/dashboard/domain"
	"github.com/smallbiznis/quoteflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/quoteflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/quoteflow/internal/observability/tracing"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
	"github.com/smallbiznis/quoteflow/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/quoteflow/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	companySvc   companydomain.Service
	quotationSvc quotationdomain.Service
	settingsSvc  settingsdomain.Service
	dashboardSvc dashboarddomain.Service
	obsMetrics   *obsmetrics.Metrics
	writeLimiter writeLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	CompanySvc   companydomain.Service
	QuotationSvc quotationdomain.Service
	SettingsSvc  settingsdomain.Service
	DashboardSvc dashboarddomain.Service
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
	WriteLimiter *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		companySvc:   p.CompanySvc,
		quotationSvc: p.QuotationSvc,
		settingsSvc:  p.SettingsSvc,
		dashboardSvc: p.DashboardSvc,
		obsMetrics:   p.ObsMetrics,
	}
	if p.WriteLimiter.Enabled() {
		svc.writeLimiter = p.WriteLimiter
	}
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")
	write := s.WriteRateLimit()

	companies := api.Group("/companies")
	companies.GET("", s.ListCompanies)
	companies.POST("", write, s.CreateCompany)
	companies.GET("/:id", s.GetCompanyByID)
	companies.PATCH("/:id", write, s.UpdateCompany)
	companies.DELETE("/:id", write, s.DeleteCompany)

	quotations := api.Group("/quotations")
	quotations.GET("", s.ListQuotations)
	quotations.POST("", write, s.CreateQuotation)
	quotations.GET("/:id", s.GetQuotationByID)
	quotations.PATCH("/:id", write, s.UpdateQuotation)
	quotations.DELETE("/:id", write, s.DeleteQuotation)
	quotations.POST("/:id/toggle-status", write, s.ToggleQuotationStatus)

	api.GET("/settings", s.GetSettings)
	api.PATCH("/settings", write, s.UpdateSettings)
	api.GET("/settings/next-number", s.NextQuotationNumber)

	api.GET("/dashboard", s.Dashboard)

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
