package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/sift/config"
	"github.com/remiges-tech/sift/service"
)

type MockConfig struct{}

func (mc *MockConfig) LoadConfig(c any) error {
	return nil
}

func (mc *MockConfig) Check() error {
	return nil
}

func (mc *MockConfig) Get(key string) (string, error) {
	return "dummy", nil
}

func (mc *MockConfig) Watch(ctx context.Context, key string, events chan<- config.Event) error {
	return nil
}

func TestWithConfig(t *testing.T) {
	cfg := &MockConfig{}

	s := service.NewService(nil).WithConfig(cfg)

	assert.Same(t, cfg, s.Config)
}

func TestWithDependency(t *testing.T) {
	type engineStub struct{ name string }
	eng := &engineStub{name: "screening"}

	s := service.NewService(nil).WithDependency("engine", eng)

	got, ok := s.Dependencies["engine"]
	require.True(t, ok)
	assert.Same(t, eng, got)
}

func TestRegisterRoutePassesService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	s := service.NewService(router).WithDependency("engine", "the-engine")
	s.RegisterRoute(http.MethodGet, "/health", func(c *gin.Context, svc *service.Service) {
		c.String(http.StatusOK, "%v", svc.Dependencies["engine"])
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "the-engine", w.Body.String())
}

func TestRouteGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	s := service.NewService(router)
	batches := s.CreateGroup("/batches")
	batches.RegisterRoute(http.MethodPost, "", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	byID := batches.CreateSubGroup("/:id")
	byID.RegisterRoute(http.MethodGet, "/status", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/batches", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/b42/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b42", w.Body.String())
}
