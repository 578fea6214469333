package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/pkg/response"
)

type UserHandler struct {
	Svc *application.UserService
}

func NewUserHandler(svc *application.UserService) *UserHandler {
	return &UserHandler{Svc: svc}
}

// GetProfile GET /api/profile (auth)
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user_id":    u.ID,
		"emailid":    u.Email,
		"username":   u.Username,
		"firstname":  u.FirstName,
		"lastname":   u.LastName,
		"age":        u.Age,
		"gender":     u.Gender,
		"industry":   u.Industry,
		"profession": u.Profession,
		"created_at": u.CreatedAt,
	}, "profile", nil)
}
