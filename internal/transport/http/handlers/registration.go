package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// RegistrationHandler exposes the public signup toggle.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterPublicRoutes binds the unauthenticated status route so the signup
// form can hide itself when registration is closed.
func (h *RegistrationHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/registration", h.status)
}

// RegisterRoutes binds the admin toggle route.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.PUT("/registration",
		middleware.RequirePermission(ability.ActionManageRegistration, ability.SubjectRegistration),
		h.setOpen)
}

func (h *RegistrationHandler) status(c *gin.Context) {
	settings, err := h.registration.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "registration status lookup failed"))
		return
	}
	c.JSON(http.StatusOK, RegistrationStatusResponse{IsOpen: settings.IsOpen})
}

func (h *RegistrationHandler) setOpen(c *gin.Context) {
	var req RegistrationToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	settings, err := h.registration.SetOpen(c.Request.Context(), *req.IsOpen)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "registration toggle failed"))
		return
	}

	c.JSON(http.StatusOK, RegistrationStatusResponse{IsOpen: settings.IsOpen})
}
