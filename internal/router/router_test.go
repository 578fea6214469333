package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/phq9-intake/config"
	"github.com/oksasatya/phq9-intake/internal/container"
	"github.com/oksasatya/phq9-intake/internal/interface/middleware"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

func newEngine(debug bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWTAccessSecret: "a", JWTRefreshSecret: "r", DebugMetricsEnabled: debug}
	c := container.New(container.Infra{Config: cfg, Logger: helpers.NewNopLogger()})

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	reg := NewRegistry(engine)
	reg.Use(middleware.RealIP())
	InitModules(reg, c)
	reg.RegisterAll()
	return engine
}

func TestInitModulesRegistersRoutes(t *testing.T) {
	engine := newEngine(true)
	have := map[string]bool{}
	for _, ri := range engine.Routes() {
		have[ri.Method+" "+ri.Path] = true
	}
	want := []string{
		"POST /api/register",
		"POST /api/login",
		"POST /api/refresh",
		"POST /api/logout",
		"GET /api/profile",
		"POST /api/phq9",
		"GET /api/phq9/questions",
		"GET /api/phq9/history",
		"GET /api/phq9/latest",
		"GET /api/phq9/search",
		"POST /api/phq9/export",
		"GET /api/phq9/:id",
		"GET /api/debug/vars",
	}
	for _, route := range want {
		if !have[route] {
			t.Fatalf("route %q not registered", route)
		}
	}
}

func TestDebugRouteDisabled(t *testing.T) {
	for _, ri := range newEngine(false).Routes() {
		if ri.Path == "/api/debug/vars" {
			t.Fatalf("debug route registered while disabled")
		}
	}
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	engine := newEngine(true)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/phq9/questions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("questions: %d", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/phq9/history", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("history without token: %d", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: %d", w.Code)
	}
}
