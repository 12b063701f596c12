package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type AuthServiceInterface interface {
	Signup(ctx context.Context, req dto.SignupRequest) (*models.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (string, error)
	ForgetPassword(ctx context.Context, email string) (string, error)
	VerifyOtp(ctx context.Context, claims *auth.OtpChallengeClaims, req dto.VerifyOtpRequest) (string, error)
	CheckResetGate(ctx context.Context, claims *auth.ResetGrantClaims) error
	ResetPassword(ctx context.Context, claims *auth.ResetGrantClaims, newPassword string) error
	RecordResetFailure(ctx context.Context, userID int)
	CurrentUser(ctx context.Context, userID int) (*models.PublicUser, error)
}

// Per-IP admission limits for the auth endpoints.
const (
	SignupRateLimit  = 3
	SignupRateWindow = 60 * time.Second
	LoginRateLimit   = 5
	LoginRateWindow  = 60 * time.Second
)

// ==============================================
// AUTH HANDLER
// ==============================================

type AuthHandler struct {
	service AuthServiceInterface
	tokens  *auth.TokenService
	limiter ratelimit.Store
}

func NewAuthHandler(service AuthServiceInterface, tokens *auth.TokenService, limiter ratelimit.Store) *AuthHandler {
	return &AuthHandler{service: service, tokens: tokens, limiter: limiter}
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/auth")
	group.POST("/signup", RateLimit(h.limiter, "signup", SignupRateLimit, SignupRateWindow), h.Signup)
	group.POST("/login", RateLimit(h.limiter, "login", LoginRateLimit, LoginRateWindow), h.Login)
	group.POST("/forget-password", h.ForgetPassword)
	group.POST("/verify-otp", RequireOtpToken(h.tokens), h.VerifyOtp)
	group.POST("/reset-password", RequireResetToken(h.tokens), h.ResetPassword)
	router.GET("/api/me", RequireSession(h.tokens), h.Me)
}

// Me returns the public view of the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.CurrentUser(c.Request.Context(), sessionUserID(c))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			notFound(c, "User not found")
			return
		}
		log.Printf("[HANDLER] current user lookup failed: %v", err)
		internalError(c, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ==============================================
// SIGNUP / LOGIN
// ==============================================

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameAlreadyExists):
			userAlreadyExists(c, "Username already exist")
		case errors.Is(err, models.ErrEmailAlreadyExists):
			userAlreadyExists(c, "Email already in use")
		default:
			log.Printf("[HANDLER] signup failed: %v", err)
			internalError(c, "Failed to create user")
		}
		return
	}

	c.JSON(http.StatusCreated, dto.MessageResponse{
		Message: user.Username + " user created successfully",
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}
	if req.Username == "" && req.Email == "" {
		badRequest(c, "", "Either email or username is required", "", nil)
		return
	}

	token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound):
			notFound(c, "User not found")
		case errors.Is(err, models.ErrRateLimited):
			tooManyRequests(c, "Rate Limit Exceeded", "too many failed login attempts")
		case errors.Is(err, models.ErrInvalidCredentials):
			unauthorized(c, "Invalid Credentials", "")
		default:
			log.Printf("[HANDLER] login failed: %v", err)
			internalError(c, "Failed to login")
		}
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{Token: token})
}

// ==============================================
// PASSWORD RESET FLOW
// ==============================================

func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req dto.ForgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}

	token, err := h.service.ForgetPassword(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			notFound(c, "User not found")
			return
		}
		log.Printf("[HANDLER] forget-password failed: %v", err)
		internalError(c, "Failed to start password reset")
		return
	}

	c.JSON(http.StatusOK, dto.ForgetPasswordResponse{OtpToken: token})
}

func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	claims := otpClaims(c)
	if claims == nil {
		unauthorized(c, "token error", "token invalid")
		return
	}

	var req dto.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindingError(c, err)
		return
	}

	token, err := h.service.VerifyOtp(c.Request.Context(), claims, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			forbidden(c, "Forbidden, not authorized to access other data")
		case errors.Is(err, models.ErrOTPInvalid):
			unauthorized(c, "Invalid OTP", "the provided OTP does not match")
		case errors.Is(err, models.ErrUserNotFound):
			notFound(c, "User not found")
		default:
			log.Printf("[HANDLER] verify-otp failed: %v", err)
			internalError(c, "Failed to verify OTP")
		}
		return
	}

	c.JSON(http.StatusOK, dto.VerifyOtpResponse{ResetToken: token})
}

// ResetPassword checks the attempt record before body validation: a
// used or blocked record answers first, and only then does a malformed
// body cost an attempt.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	claims := resetClaims(c)
	if claims == nil {
		unauthorized(c, "token error", "token invalid")
		return
	}

	ctx := c.Request.Context()
	if err := h.service.CheckResetGate(ctx, claims); err != nil {
		h.respondResetError(c, err)
		return
	}

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.service.RecordResetFailure(ctx, claims.UserID)
		handleBindingError(c, err)
		return
	}

	if err := h.service.ResetPassword(ctx, claims, req.NewPassword); err != nil {
		h.respondResetError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password reset successfully"})
}

func (h *AuthHandler) respondResetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrResetTokenUsed):
		badRequest(c, "", "Reset token already used", "this reset token was already used", nil)
	case errors.Is(err, models.ErrResetAttemptsExceeded):
		tooManyRequests(c, "Attempt Exceeded for resetting the password", "you have exceeded the maximum allowed attempts")
	case errors.Is(err, models.ErrPasswordReuse):
		badRequest(c, "PasswordReuseNotAllowed", "New password must be different from the old one", "", nil)
	case models.IsTokenError(err):
		unauthorized(c, "token error", tokenReason(err))
	case models.IsNotFoundError(err):
		notFound(c, "User not found")
	default:
		log.Printf("[HANDLER] reset-password failed: %v", err)
		internalError(c, "Failed to reset password")
	}
}
