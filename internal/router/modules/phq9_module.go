package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/phq9-intake/internal/interface/http"
	"github.com/oksasatya/phq9-intake/internal/interface/middleware"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

// PHQ9Module routes:
// Public: POST /api/phq9 (session optional), GET /api/phq9/questions
// Protected: history, latest, search, export, and a single assessment by id
type PHQ9Module struct {
	Handler *handlers.PHQ9Handler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewPHQ9Module(h *handlers.PHQ9Handler, jwt *helpers.JWTManager, rdb *redis.Client) *PHQ9Module {
	return &PHQ9Module{Handler: h, JWT: jwt, RDB: rdb}
}

func (m *PHQ9Module) Register(rg *gin.RouterGroup) {
	submitLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/phq9", submitLimiter, middleware.OptionalAuth(m.RDB, m.JWT), m.Handler.Submit)
	rg.GET("/phq9/questions", m.Handler.Questions)

	auth := rg.Group("/phq9")
	auth.Use(
		middleware.Auth(m.RDB, m.JWT),
		middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/history", m.Handler.History)
		auth.GET("/latest", m.Handler.Latest)
		auth.GET("/search", m.Handler.Search)
		auth.POST("/export", m.Handler.Export)
		auth.GET("/:id", m.Handler.Get)
	}
}
