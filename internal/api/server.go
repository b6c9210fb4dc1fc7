// Package api exposes the funnel over HTTP.
package api

import (
	"context"
	"time"

	"loan-funnel/internal/blocked"
	apperrors "loan-funnel/internal/common/errors"
	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/common/observability"
	"loan-funnel/internal/funnel"
	"loan-funnel/internal/tags"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	CookieName      string
	CookieSecure    bool
	CookieMaxAge    time.Duration
	AllowedOrigins  []string
	DefaultTimezone *time.Location
	PageTitle       string
}

// HealthCheck is a dependency probed by /ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Deps struct {
	Funnel        *funnel.Service
	Blocked       *blocked.Builder
	Page          *tags.Page
	Observability *observability.Observability
	Checks        []HealthCheck
	Logger        logger.Logger
}

type Server struct {
	funnel  *funnel.Service
	blocked *blocked.Builder
	page    *tags.Page
	obs     *observability.Observability
	checks  []HealthCheck
	errs    *apperrors.ErrorHandler
	opts    Options
	log     logger.Logger
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "funnel_session"
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 60 * 24 * time.Hour
	}
	if opts.DefaultTimezone == nil {
		opts.DefaultTimezone = time.UTC
	}
	if deps.Page == nil {
		deps.Page = tags.NewPage()
	}
	if deps.Blocked == nil {
		deps.Blocked = blocked.NewBuilder(blocked.Options{})
	}
	if deps.Observability == nil {
		deps.Observability = &observability.Observability{}
	}

	log := logger.ForComponent(deps.Logger, "api")
	return &Server{
		funnel:  deps.Funnel,
		blocked: deps.Blocked,
		page:    deps.Page,
		obs:     deps.Observability,
		checks:  deps.Checks,
		errs:    apperrors.NewErrorHandler(log),
		opts:    opts,
		log:     log,
	}
}

// Router builds the gin engine with every funnel route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.instrument(), s.cors())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	app := r.Group("/", s.session())
	app.GET("/", s.shell)

	api := app.Group("/api/application")
	api.GET("", s.state)
	api.POST("", s.submit)
	api.POST("/verify", s.verify)
	api.POST("/resend", s.resend)
	api.PUT("/contact", s.reenter)
	api.POST("/manual-verification", s.manualVerification)
	api.GET("/blocked", s.blockedView)
	api.PUT("/schedule", s.schedule)
	api.POST("/reset", s.beginReset)
	api.POST("/reset/confirm", s.confirmReset)

	return r
}
