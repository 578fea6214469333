package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/phq9-intake/internal/application"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
	"github.com/oksasatya/phq9-intake/pkg/response"
)

// ctxUserID is set by the auth middleware.
const ctxUserID = "userID"

type AuthHandler struct {
	Svc     *application.UserService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.UserService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

// flexInt accepts a JSON number or a numeric string, as sent by HTML forms.
// Anything unparsable becomes -1 and fails validation.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		*f = -1
		return nil
	}
	*f = flexInt(n)
	return nil
}

type registerRequest struct {
	Email           string  `json:"emailid"`
	Username        string  `json:"username"`
	FirstName       string  `json:"firstname"`
	LastName        string  `json:"lastname"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	Age             flexInt `json:"age"`
	Gender          string  `json:"gender"`
	Industry        string  `json:"industry"`
	Profession      string  `json:"profession"`
}

type loginRequest struct {
	Email    string `json:"emailid"`
	Password string `json:"password"`
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	_, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Age:             int(req.Age),
		Gender:          req.Gender,
		Industry:        req.Industry,
		Profession:      req.Profession,
		Username:        req.Username,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if msg, ok := application.IsValidation(err); ok {
		response.Fail(c, http.StatusBadRequest, msg)
		return
	}
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
	case errors.Is(err, application.ErrEmailTaken):
		response.Fail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, application.ErrUsernameTaken):
		response.Fail(c, http.StatusBadRequest, "Username already taken")
	default:
		h.Logger.WithError(err).Error("register failed")
		response.Fail(c, http.StatusInternalServerError, "Registration failed")
	}
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, application.ErrInvalidCredentials) {
		response.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.Logger.WithError(err).Error("login failed")
		response.Fail(c, http.StatusInternalServerError, "Login failed")
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	c.JSON(http.StatusOK, gin.H{"user_id": u.ID, "username": u.Username})
}

// Refresh POST /api/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.Cookies.Clear(c)
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

// Logout POST /api/logout (auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(ctxUserID)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Warn("drop session failed")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
