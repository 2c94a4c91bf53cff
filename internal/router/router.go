package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwalitptl/patient-registry/internal/handler"
	"github.com/jwalitptl/patient-registry/internal/middleware"
	"github.com/jwalitptl/patient-registry/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *handler.Handler
	Patients Handler
	Query    Handler
	Changes  Handler
}

type Router struct {
	engine   *gin.Engine
	session  middleware.SessionSource
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	Mode          string
	CORSConfig    middleware.CORSConfig
	MaxBodyBytes  int64
	MetricsPrefix string
	// Registerer receives the HTTP metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
	// RateLimit is nil when rate limiting is disabled.
	RateLimit *middleware.RateLimiterConfig
}

func NewRouter(session middleware.SessionSource, handlers Handlers, config RouterConfig) *Router {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	// Binding errors name fields the way clients send them.
	if engine, ok := binding.Validator.Engine().(*playground.Validate); ok {
		validator.RegisterJSONNames(engine)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		session:  session,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix, config.Registerer),
	}

	// Add core middlewares
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.ClientID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}
	engine.Use(
		middleware.SizeLimit(sizeLimit),
		middleware.ErrorHandler(),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(middleware.Version(middleware.DefaultVersionConfig()))

	// Health check endpoints
	r.handlers.Health.RegisterRoutes(api)
	api.GET("/health/metrics", r.handlers.Health.MetricsHandler())

	// Change signals do not touch the database.
	if r.handlers.Changes != nil {
		r.handlers.Changes.RegisterRoutes(api)
	}

	// Everything below needs an initialized session.
	data := api.Group("")
	data.Use(middleware.RequireSession(r.session))
	r.handlers.Patients.RegisterRoutes(data)
	r.handlers.Query.RegisterRoutes(data)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Metrics initialization and middleware
func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	if prefix == "" {
		prefix = "http"
	}
	factory := promauto.With(reg)
	return &routerMetrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case c.Writer.Status() >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case c.Writer.Status() >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
