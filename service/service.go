// Package service wires the shared pieces of a sift web service together:
// the gin router, the logger, the database pool, configuration and any
// other dependency a handler needs, such as the screening engine.
//
// Handlers receive the Service alongside the gin context, so everything a
// request needs travels in one place instead of package-level globals.
// Route groups and sub-groups let each resource register its own routes
// and middleware.
package service

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/remiges-tech/sift/config"
)

// Dependencies holds arbitrary named dependencies. Values are stored as
// any; assert the concrete type before use.
type Dependencies map[string]any

// Service carries the components a web service needs. Inject the specific
// ones with the With... methods and anything else with WithDependency.
//
// Example:
//
//	s := service.NewService(router).
//		WithLogger(logger).
//		WithDatabase(pool).
//		WithDependency("engine", eng)
type Service struct {
	Config       config.Config
	Router       *gin.Engine
	Logger       *logharbour.Logger
	Database     any
	Dependencies Dependencies
}

// NewService constructs a Service around the given router.
func NewService(r *gin.Engine) *Service {
	return &Service{
		Router: r,
	}
}

// WithConfig injects the configuration source.
func (s *Service) WithConfig(c config.Config) *Service {
	s.Config = c
	return s
}

// WithLogger injects the logger.
func (s *Service) WithLogger(l *logharbour.Logger) *Service {
	s.Logger = l
	return s
}

// WithDatabase injects the database handle. It is stored as any so
// services can use a pool, a single connection or generated queries.
func (s *Service) WithDatabase(db any) *Service {
	s.Database = db
	return s
}

// WithDependency injects an arbitrary named dependency.
func (s *Service) WithDependency(key string, value any) *Service {
	if s.Dependencies == nil {
		s.Dependencies = make(Dependencies)
	}
	s.Dependencies[key] = value
	return s
}

// HandlerFunc is a request handler that also receives the Service.
type HandlerFunc func(*gin.Context, *Service)

// RegisterRoute registers a single route directly on the service's router.
func (s *Service) RegisterRoute(method, path string, handler HandlerFunc) {
	wrappedHandler := func(c *gin.Context) {
		handler(c, s)
	}
	switch method {
	case http.MethodGet:
		s.Router.GET(path, wrappedHandler)
	case http.MethodPost:
		s.Router.POST(path, wrappedHandler)
	case http.MethodPut:
		s.Router.PUT(path, wrappedHandler)
	case http.MethodDelete:
		s.Router.DELETE(path, wrappedHandler)
	default:
		log.Printf("Unsupported method: %s", method)
	}
}

// RouteGroup represents a group of routes sharing a path prefix.
type RouteGroup struct {
	Group *gin.RouterGroup
}

// CreateGroup creates a new route group with the given path prefix.
func (s *Service) CreateGroup(path string) *RouteGroup {
	return &RouteGroup{
		Group: s.Router.Group(path),
	}
}

// RegisterRoute registers a single route on the route group.
func (g *RouteGroup) RegisterRoute(method, path string, handler gin.HandlerFunc) {
	switch method {
	case http.MethodGet:
		g.Group.GET(path, handler)
	case http.MethodPost:
		g.Group.POST(path, handler)
	case http.MethodPut:
		g.Group.PUT(path, handler)
	case http.MethodDelete:
		g.Group.DELETE(path, handler)
	default:
		log.Printf("Unsupported method: %s", method)
	}
}

// CreateSubGroup creates a nested group within the current group.
func (g *RouteGroup) CreateSubGroup(path string) *RouteGroup {
	return &RouteGroup{
		Group: g.Group.Group(path),
	}
}
