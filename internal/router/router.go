package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	appointmentHandler "github.com/ivyhms/clinic-api/internal/handler/appointment"
	authHandler "github.com/ivyhms/clinic-api/internal/handler/auth"
	clinicHandler "github.com/ivyhms/clinic-api/internal/handler/clinic"
	doctorHandler "github.com/ivyhms/clinic-api/internal/handler/doctor"
	healthHandler "github.com/ivyhms/clinic-api/internal/handler/health"
	patientHandler "github.com/ivyhms/clinic-api/internal/handler/patient"
	rbacHandler "github.com/ivyhms/clinic-api/internal/handler/rbac"
	"github.com/ivyhms/clinic-api/internal/middleware"
	"github.com/ivyhms/clinic-api/internal/model"
	"github.com/ivyhms/clinic-api/pkg/metrics"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

type Router struct {
	engine       *gin.Engine
	auth         *middleware.AuthMiddleware
	authH        *authHandler.Handler
	rbacH        *rbacHandler.Handler
	appointmentH *appointmentHandler.Handler
	patientH     *patientHandler.Handler
	doctorH      *doctorHandler.Handler
	clinicH      *clinicHandler.Handler
	healthH      *healthHandler.Handler
	metrics      *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authHandler.Handler,
	rbacH *rbacHandler.Handler,
	appointmentH *appointmentHandler.Handler,
	patientH *patientHandler.Handler,
	doctorH *doctorHandler.Handler,
	clinicH *clinicHandler.Handler,
	healthH *healthHandler.Handler,
	m *metrics.Metrics,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	middleware.RegisterValidators()
	engine := gin.New()

	r := &Router{
		engine:       engine,
		auth:         auth,
		authH:        authH,
		rbacH:        rbacH,
		appointmentH: appointmentH,
		patientH:     patientH,
		doctorH:      doctorH,
		clinicH:      clinicH,
		healthH:      healthH,
		metrics:      m,
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	r.authH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.authH.RegisterProtectedRoutes(protected.Group("", r.auth.RequirePermission(model.PermManageUsers)))
	r.rbacH.RegisterRoutes(protected, r.auth)
	r.appointmentH.RegisterRoutes(protected, r.auth)
	r.patientH.RegisterRoutes(protected, r.auth)
	r.doctorH.RegisterRoutes(protected, r.auth)
	r.clinicH.RegisterRoutes(protected, r.auth)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		r.metrics.HTTPRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		r.metrics.HTTPLatency.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
