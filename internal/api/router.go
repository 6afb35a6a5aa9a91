// Package api exposes the helpdesk over HTTP with gin.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotrs-io/gotrs-helpdesk/internal/middleware"
	"github.com/gotrs-io/gotrs-helpdesk/internal/tickets"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Router wires the ticket handlers into a gin engine.
type Router struct {
	engine   *gin.Engine
	tickets  *tickets.Service
	checks   map[string]HealthCheck
	gatherer prometheus.Gatherer
	metrics  *middleware.HTTPMetrics
	logger   *log.Logger
	version  string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithHealthCheck adds a named dependency probe to /api/health.
func WithHealthCheck(name string, check HealthCheck) RouterOption {
	return func(r *Router) { r.checks[name] = check }
}

// WithMetrics exposes gatherer on /metrics and records request metrics with m.
func WithMetrics(gatherer prometheus.Gatherer, m *middleware.HTTPMetrics) RouterOption {
	return func(r *Router) {
		r.gatherer = gatherer
		r.metrics = m
	}
}

// WithRouterLogger sets the logger used for request errors.
func WithRouterLogger(l *log.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithVersion sets the version reported by /api/health.
func WithVersion(v string) RouterOption {
	return func(r *Router) { r.version = v }
}

// NewRouter builds the HTTP surface around svc.
func NewRouter(svc *tickets.Service, opts ...RouterOption) *Router {
	r := &Router{
		engine:  gin.New(),
		tickets: svc,
		checks:  make(map[string]HealthCheck),
		logger:  log.Default(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(r)
	}
	r.setupRoutes()
	return r
}

// Handler returns the http.Handler to serve.
func (r *Router) Handler() http.Handler { return r.engine }

func (r *Router) setupRoutes() {
	r.engine.Use(gin.Recovery(), middleware.RequestID())
	if r.metrics != nil {
		r.engine.Use(r.metrics.Handler())
	}
	if r.gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.engine.Group("/api")
	api.GET("/health", r.healthCheck)

	t := api.Group("/tickets")
	t.Use(middleware.Identity(), middleware.RequireIdentity())
	{
		t.POST("", r.handleCreateTicket)
		t.GET("/mine", r.handleListMyTickets)
		t.GET("", middleware.RequireAdmin(), r.handleListAllTickets)
		t.GET("/:ticketNumber", r.handleGetTicket)
		t.PATCH("/:ticketNumber/status", middleware.RequireAdmin(), r.handleUpdateStatus)
		t.POST("/:ticketNumber/comments", r.handleAddComment)
	}
}

// healthCheck reports the state of every registered dependency.
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}
	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"version":      r.version,
		"dependencies": deps,
		"timestamp":    time.Now().Unix(),
	})
}
