package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/internal/domain/phq9"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
	"github.com/oksasatya/phq9-intake/pkg/response"
)

type PHQ9Handler struct {
	Svc    *application.AssessmentService
	Logger *logrus.Logger
}

func NewPHQ9Handler(svc *application.AssessmentService, logger *logrus.Logger) *PHQ9Handler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &PHQ9Handler{Svc: svc, Logger: logger}
}

// submitError answers with the status body. Submission outcomes are
// always 200; clients read "status".
func submitError(c *gin.Context, msg string) {
	response.Status(c, http.StatusOK, gin.H{"status": "error", "message": msg})
}

// Submit POST /api/phq9
// A caller holding a valid session may only submit for itself.
func (h *PHQ9Handler) Submit(c *gin.Context) {
	var in application.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		submitError(c, "invalid request body")
		return
	}
	if uid := c.GetString(ctxUserID); uid != "" && in.UserID != "" && uid != in.UserID {
		response.Status(c, http.StatusForbidden, gin.H{"status": "error", "message": "cannot submit for another user"})
		return
	}

	res, err := h.Svc.Submit(c.Request.Context(), in)
	if msg, ok := application.IsValidation(err); ok {
		submitError(c, msg)
		return
	}
	switch {
	case err == nil:
		response.Status(c, http.StatusOK, gin.H{"status": "success", "assessment_id": res.AssessmentID})
	case errors.Is(err, application.ErrUserNotFound):
		submitError(c, "user not found")
	default:
		submitError(c, application.ErrPersistence.Error())
	}
}

// Questions GET /api/phq9/questions
func (h *PHQ9Handler) Questions(c *gin.Context) {
	response.Success(c, http.StatusOK, phq9.Form(), "phq9 questionnaire", nil)
}

// History GET /api/phq9/history?limit= (auth)
func (h *PHQ9Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit = application.ClampLimit(limit)
	items, err := h.Svc.History(c.Request.Context(), c.GetString(ctxUserID), limit)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load history", nil)
		return
	}
	response.Success(c, http.StatusOK, items, "history", gin.H{"limit": limit, "count": len(items)})
}

// Latest GET /api/phq9/latest (auth)
func (h *PHQ9Handler) Latest(c *gin.Context) {
	v, err := h.Svc.Latest(c.Request.Context(), c.GetString(ctxUserID))
	if errors.Is(err, application.ErrAssessmentNotFound) {
		response.Error[any](c, http.StatusNotFound, "no assessments yet", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load assessment", nil)
		return
	}
	response.Success(c, http.StatusOK, v, "latest assessment", nil)
}

// Get GET /api/phq9/:id (auth)
func (h *PHQ9Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid assessment id", nil)
		return
	}
	v, err := h.Svc.Get(c.Request.Context(), c.GetString(ctxUserID), id)
	if errors.Is(err, application.ErrAssessmentNotFound) {
		response.Error[any](c, http.StatusNotFound, "assessment not found", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load assessment", nil)
		return
	}
	response.Success(c, http.StatusOK, v, "assessment", nil)
}

// Search GET /api/phq9/search?q=&size= (auth)
func (h *PHQ9Handler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	items, err := h.Svc.Search(c.Request.Context(), c.GetString(ctxUserID), c.Query("q"), size)
	if errors.Is(err, application.ErrSearchUnavailable) {
		response.Error[any](c, http.StatusServiceUnavailable, "search unavailable", nil)
		return
	}
	if err != nil {
		h.Logger.WithError(err).Warn("search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, items, "search results", gin.H{"count": len(items)})
}

// Export POST /api/phq9/export (auth)
func (h *PHQ9Handler) Export(c *gin.Context) {
	res, err := h.Svc.Export(c.Request.Context(), c.GetString(ctxUserID))
	if errors.Is(err, application.ErrExportUnavailable) {
		response.Error[any](c, http.StatusServiceUnavailable, "export unavailable", nil)
		return
	}
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "export failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, res, "export created", nil)
}
