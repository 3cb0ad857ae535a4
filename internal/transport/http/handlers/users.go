package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// maxImageUploadBytes caps profile and cover image uploads.
const maxImageUploadBytes = 5 << 20

// UserHandler exposes the account management endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds the authenticated account routes. The route gate
// runs before any payload is read; record-level ownership is re-checked in
// the service once the target is known.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(ability.ActionRead, ability.SubjectUser), h.list)
	r.GET("/:id", middleware.RequirePermission(ability.ActionRead, ability.SubjectUser), h.get)
	r.POST("", middleware.RequirePermission(ability.ActionCreate, ability.SubjectUser), h.create)
	r.PATCH("/:id", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectUser), h.update)
	r.DELETE("/:id", middleware.RequirePermission(ability.ActionDelete, ability.SubjectUser), h.remove)
	r.PUT("/:id/password", middleware.RequirePermission(ability.ActionUpdatePassword, ability.SubjectUser), h.updatePassword)
	r.POST("/:id/email", middleware.RequirePermission(ability.ActionUpdateEmail, ability.SubjectUser), h.requestEmailChange)
	r.POST("/:id/profile-image", middleware.RequirePermission(ability.ActionUploadProfileImage, ability.SubjectUser), h.uploadProfileImage)
}

// RegisterPublicRoutes binds the tokened routes that need no session.
func (h *UserHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/confirm-email-change", h.confirmEmailChange)
}

func (h *UserHandler) list(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	// Listing all accounts needs an unconditional read grant; owner-scoped
	// readers only ever see their own record.
	if !ab.CanOwn(ability.ActionRead, ability.SubjectUser, "") {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "insufficient permissions"))
		return
	}

	users, pageInfo, err := h.users.ListUsers(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list users failed"))
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, UserListResponse{Users: out, Pagination: pageInfo})
}

func (h *UserHandler) get(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), ab, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "lookup user failed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) create(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid user payload"))
		return
	}

	input := usecase.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.CreateUser(c.Request.Context(), ab, input)
	if err != nil {
		cases := append(append([]ErrorCase{}, permissionCases...),
			ErrorCase{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
			ErrorCase{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			ErrorCase{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		)
		RespondWithMappedError(c, err, cases, http.StatusBadRequest, "create user failed")
		return
	}

	c.JSON(http.StatusCreated, NewUserResponse(user))
}

func (h *UserHandler) update(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid update payload"))
		return
	}

	input := usecase.UpdateUserInput{Username: req.Username}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.UpdateUser(c.Request.Context(), ab, c.Param("id"), input)
	if err != nil {
		cases := append(userErrorCases(),
			ErrorCase{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
		)
		RespondWithMappedError(c, err, cases, http.StatusBadRequest, "update user failed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) remove(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), ab, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "delete user failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

func (h *UserHandler) updatePassword(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	err := h.users.UpdatePassword(c.Request.Context(), ab, usecase.UpdatePasswordInput{
		TargetUserID:    c.Param("id"),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		cases := append(userErrorCases(),
			ErrorCase{Err: usecase.ErrCurrentPasswordRequired, Status: http.StatusBadRequest, Message: "current password is required"},
			ErrorCase{Err: usecase.ErrCurrentPasswordInvalid, Status: http.StatusBadRequest, Message: "current password is incorrect"},
			ErrorCase{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "password update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

func (h *UserHandler) requestEmailChange(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid email payload"))
		return
	}

	err := h.users.RequestEmailChange(c.Request.Context(), ab, c.Param("id"), req.Email)
	if err != nil {
		cases := append(userErrorCases(),
			ErrorCase{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		)
		RespondWithMappedError(c, err, cases, http.StatusBadRequest, "email change request failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "confirmation email sent to the new address"})
}

func (h *UserHandler) confirmEmailChange(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	user, err := h.users.ConfirmEmailChange(c.Request.Context(), req.Token)
	if err != nil {
		cases := append(append([]ErrorCase{}, tokenCases...),
			ErrorCase{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "email change failed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) uploadProfileImage(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image file is required"))
		return
	}
	if file.Size > maxImageUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "image exceeds the size limit"))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image file unreadable"))
		return
	}
	defer src.Close()

	url, err := h.users.UploadProfileImage(c.Request.Context(), ab, c.Param("id"), src, file.Header.Get("Content-Type"))
	if err != nil {
		RespondWithMappedError(c, err, userErrorCases(), http.StatusInternalServerError, "profile image upload failed")
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

func userErrorCases() []ErrorCase {
	return append(append([]ErrorCase{}, permissionCases...),
		ErrorCase{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
	)
}

// pageFromQuery reads the page and limit query parameters.
func pageFromQuery(c *gin.Context) port.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return port.Page{Number: page, Size: size}.Normalize()
}
