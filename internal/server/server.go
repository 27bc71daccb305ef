package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/familyhub/internal/auth"
	billingdomain "github.com/smallbiznis/familyhub/internal/billing/domain"
	childdomain "github.com/smallbiznis/familyhub/internal/child/domain"
	"github.com/smallbiznis/familyhub/internal/config"
	"github.com/smallbiznis/familyhub/internal/observability"
	obsmiddleware "github.com/smallbiznis/familyhub/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/familyhub/internal/observability/metrics"
	obstracing "github.com/smallbiznis/familyhub/internal/observability/tracing"
	profiledomain "github.com/smallbiznis/familyhub/internal/profile/domain"
	webhookdomain "github.com/smallbiznis/familyhub/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
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
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if httpMetrics != nil {
		r.GET("/metrics", httpMetrics.Handler())
	}

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	tokens     *auth.Verifier
	webhookSvc webhookdomain.Service
	profileSvc profiledomain.Service
	childSvc   childdomain.Service
	billingSvc billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Tokens     *auth.Verifier
	WebhookSvc webhookdomain.Service
	ProfileSvc profiledomain.Service
	ChildSvc   childdomain.Service
	BillingSvc billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		tokens:     p.Tokens,
		webhookSvc: p.WebhookSvc,
		profileSvc: p.ProfileSvc,
		childSvc:   p.ChildSvc,
		billingSvc: p.BillingSvc,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhook", s.HandleWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/plans", s.ListPlans)

	private := api.Group("", s.AuthRequired())
	{
		private.GET("/profile", s.GetProfile)
		private.PATCH("/profile", s.UpdateProfile)
		private.DELETE("/profile", s.DeleteProfile)
		private.POST("/registration", s.Register)

		private.GET("/children", s.ListChildren)
		private.POST("/children", s.CreateChild)
		private.PATCH("/children/:id", s.UpdateChild)
		private.DELETE("/children/:id", s.DeleteChild)

		private.POST("/checkout", s.CreateCheckout)
		private.GET("/subscription", s.GetSubscription)
		private.POST("/subscription/cancel", s.CancelSubscription)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
