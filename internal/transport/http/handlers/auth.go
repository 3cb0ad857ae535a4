package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// CookieSettings configures the session cookie issued on signin.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler exposes the signup, signin, and email verification endpoints.
type AuthHandler struct {
	auth   *usecase.AuthService
	users  *usecase.UserService
	cookie CookieSettings
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, users *usecase.UserService, cookie CookieSettings) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthHandler{auth: auth, users: users, cookie: cookie}
}

// RegisterRoutes binds the public authentication routes. The rate limit
// middlewares are applied to the credential-bearing endpoints only.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, signupLimit, signinLimit, resetLimit []gin.HandlerFunc) {
	r.POST("/signup", append(append([]gin.HandlerFunc{}, signupLimit...), h.signup)...)
	r.POST("/signin", append(append([]gin.HandlerFunc{}, signinLimit...), h.signin)...)
	r.POST("/verify-email", h.verifyEmail)
	r.POST("/resend-verification", append(append([]gin.HandlerFunc{}, resetLimit...), h.resendVerification)...)
	r.POST("/forgot-password", append(append([]gin.HandlerFunc{}, resetLimit...), h.forgotPassword)...)
	r.POST("/reset-password", h.resetPassword)
}

// RegisterSessionRoutes binds the routes that require an authenticated session.
func (h *AuthHandler) RegisterSessionRoutes(r *gin.RouterGroup) {
	r.POST("/signout", middleware.RequirePermission(ability.ActionLogout, ability.SubjectAuth), h.signout)
	r.GET("/me", h.me)
}

func (h *AuthHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), usecase.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRegistrationClosed, Status: http.StatusForbidden, Message: "registration is closed"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		}, http.StatusInternalServerError, "signup failed")
		return
	}

	c.JSON(http.StatusCreated, NewUserResponse(user))
}

func (h *AuthHandler) signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signin payload"))
		return
	}

	user, token, ttl, err := h.auth.Signin(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password"},
			{Err: usecase.ErrAccountNotVerified, Status: http.StatusForbidden, Message: "account email not verified"},
		}, http.StatusInternalServerError, "signin failed")
		return
	}

	h.setSessionCookie(c, token, ttl)
	c.JSON(http.StatusOK, SessionResponse{
		User:      NewUserResponse(user),
		ExpiresIn: int(ttl.Seconds()),
	})
}

func (h *AuthHandler) signout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

func (h *AuthHandler) me(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), ab, ab.Principal().UserID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusUnauthorized, Message: "account no longer exists"},
		}, http.StatusInternalServerError, "load account failed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, tokenCases, http.StatusInternalServerError, "email verification failed")
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

func (h *AuthHandler) resendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	// Unknown or already verified addresses get the same answer as known
	// ones so the endpoint cannot be used to probe accounts.
	if err := h.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "resend verification failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists, a verification email has been sent"})
}

func (h *AuthHandler) forgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "password reset request failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists, a reset email has been sent"})
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		cases := append(append([]ErrorCase{}, tokenCases...),
			ErrorCase{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet complexity requirements"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(ttl.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
