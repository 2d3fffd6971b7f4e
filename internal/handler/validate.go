package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quizmaster/profile-kit/internal/forms"
	apperrors "github.com/quizmaster/profile-kit/pkg/errors"
	"github.com/quizmaster/profile-kit/pkg/policy"
)

type passwordRequest struct {
	Password string `json:"password"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// RegisterRoutes mounts the validation endpoints under rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	v := rg.Group("/validate")
	{
		v.POST("/password", h.ValidatePassword)
		v.POST("/username", h.ValidateUsername)
		v.POST("/email", h.ValidateEmail)

		f := v.Group("/forms")
		f.POST("/signup", h.validateForm("signup", func() interface{} { return &forms.Signup{} }))
		f.POST("/reset-password", h.validateForm("reset_password", func() interface{} { return &forms.ResetPassword{} }))
		f.POST("/settings", h.validateForm("settings", func() interface{} { return &forms.Settings{} }))
	}
}

// ValidatePassword returns the password verdict. A failed verdict is still a 200.
func (h *Handler) ValidatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Validation("invalid request body", err))
		return
	}
	verdict := policy.EvaluatePassword(req.Password)
	h.count("password", verdict.IsValid)
	c.JSON(http.StatusOK, NewSuccessResponse(verdict))
}

func (h *Handler) ValidateUsername(c *gin.Context) {
	var req usernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Validation("invalid request body", err))
		return
	}
	verdict := policy.EvaluateUsername(req.Username)
	h.count("username", verdict.IsValid)
	c.JSON(http.StatusOK, NewSuccessResponse(verdict))
}

func (h *Handler) ValidateEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.Validation("invalid request body", err))
		return
	}
	verdict := policy.EvaluateEmail(req.Email)
	h.count("email", verdict.IsValid)
	c.JSON(http.StatusOK, NewSuccessResponse(verdict))
}

func (h *Handler) validateForm(kind string, newForm func() interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		form := newForm()
		if err := c.ShouldBindJSON(form); err != nil {
			c.Error(apperrors.Validation("invalid request body", err))
			return
		}
		res, err := h.checker.Check(form)
		if err != nil {
			c.Error(apperrors.Internal(err))
			return
		}
		h.count(kind, res.Valid)
		c.JSON(http.StatusOK, NewSuccessResponse(res))
	}
}

func (h *Handler) count(kind string, valid bool) {
	if h.metrics != nil {
		h.metrics.Verdicts.WithLabelValues(kind, strconv.FormatBool(valid)).Inc()
	}
}
