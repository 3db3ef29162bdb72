package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/docs"
	"github.com/fatflowers/coiffeur/internal/app/api/handlers"
	mw "github.com/fatflowers/coiffeur/internal/app/api/middleware"
	"github.com/fatflowers/coiffeur/internal/app/api/views"
	"github.com/fatflowers/coiffeur/internal/app/service/notification"
	"github.com/fatflowers/coiffeur/internal/app/service/request"
	"github.com/fatflowers/coiffeur/internal/app/service/statistics"
	"github.com/fatflowers/coiffeur/internal/app/service/subscription"
	"github.com/fatflowers/coiffeur/pkg/clock"
	cfgpkg "github.com/fatflowers/coiffeur/pkg/config"
	metrics "github.com/fatflowers/coiffeur/pkg/metrics"
	"github.com/fatflowers/coiffeur/pkg/types"
)

type routeDeps struct {
	fx.In

	Log   *zap.SugaredLogger
	Cfg   *cfgpkg.Config
	DB    *gorm.DB
	Clock clock.Clock
	Subs  *subscription.Service
	Queue *request.Service
	Stats *statistics.Service
	Inbox *notification.Service
	Prom  *metrics.Prometheus `optional:"true"`
}

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	r.SetHTMLTemplate(views.Templates())
	return r
}

// newPrometheus returns nil when no metrics address is configured.
func newPrometheus(cfg *cfgpkg.Config, log *zap.SugaredLogger) *metrics.Prometheus {
	if cfg.MetricsAddr == "" {
		return nil
	}
	return metrics.NewPrometheus(metrics.NewPrometheusOptions{Logger: log})
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	if d.Prom != nil {
		r.Use(d.Prom.HandlerFunc())
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub, d.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Authenticated group; every route below knows its account
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware(), mw.AuthMiddleware(d.Cfg.Auth.JWTSecret))

	handlers.RegisterAdminRoutes(apiV1.Group("/admin", mw.RequireRole(types.RoleAdmin)), d.Subs, d.Queue, d.Stats, d.Clock)
	handlers.RegisterOwnerRoutes(apiV1.Group("/owner", mw.RequireRole(types.RoleOwner, types.RoleAdmin)), d.Cfg, d.Subs, d.Queue)
	handlers.RegisterNotificationRoutes(apiV1.Group("/notifications"), d.Inbox)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	serve(lc, log, "HTTP", srv, 120*time.Second)
}

// runMetricsServer exposes the default registry on its own listener.
func runMetricsServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, p *metrics.Prometheus) {
	if p == nil {
		return
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(p.MetricsPath, metrics.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	serve(lc, log, "metrics", srv, 5*time.Second)
}

func serve(lc fx.Lifecycle, log *zap.SugaredLogger, name string, srv *http.Server, stopTimeout time.Duration) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting "+name+" server", "addr", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("%s server error: %v", name, err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping " + name + " server")
			shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine, newPrometheus),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
	fx.Invoke(runMetricsServer),
)
