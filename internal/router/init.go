package router

import (
	"github.com/oksasatya/phq9-intake/internal/container"
	handlers "github.com/oksasatya/phq9-intake/internal/interface/http"
	"github.com/oksasatya/phq9-intake/internal/router/modules"
)

// InitModules builds the handlers from c and registers every feature module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	auth := handlers.NewAuthHandler(c.UserService, c.Logger, cfg.CookieDomain, cfg.CookieSecure)
	user := handlers.NewUserHandler(c.UserService)
	phq9 := handlers.NewPHQ9Handler(c.AssessmentService, c.Logger)

	r.Add(modules.NewAuthModule(auth, c.JWT, c.Redis))
	r.Add(modules.NewUserModule(user, c.JWT, c.Redis))
	r.Add(modules.NewPHQ9Module(phq9, c.JWT, c.Redis))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}
