package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
)

// Context keys set by the token guards below.
const (
	ctxUserIDKey      = "auth_user_id"
	ctxOtpClaimsKey   = "auth_otp_claims"
	ctxResetClaimsKey = "auth_reset_claims"
)

// ==============================================
// RATE LIMIT MIDDLEWARE
// ==============================================

// RateLimit rejects early with 429 once the client IP exhausts its
// window for the route. gin's ClientIP prefers the forwarded-for
// header over the socket address. Store errors fail closed.
func RateLimit(store ratelimit.Store, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.Key(prefix, c.ClientIP())

		allowed, err := store.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Printf("[RATELIMIT] store error for key=%s: %v", key, err)
			internalError(c, "Rate limiter unavailable")
			c.Abort()
			return
		}
		if !allowed {
			tooManyRequests(c, "Rate Limit Exceeded", "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ==============================================
// TOKEN GUARDS
// ==============================================

// RequireSession admits only requests bearing a valid session token
// and records the subject user id on the context.
func RequireSession(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "token error", "token is missing")
			c.Abort()
			return
		}

		userID, err := tokens.VerifySession(token)
		if err != nil {
			unauthorized(c, "token error", tokenReason(err))
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Next()
	}
}

// RequireOtpToken guards the OTP-verify step.
func RequireOtpToken(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "token error", "token is missing")
			c.Abort()
			return
		}

		claims, err := tokens.VerifyOtpChallenge(token)
		if err != nil {
			unauthorized(c, "token error", tokenReason(err))
			c.Abort()
			return
		}

		c.Set(ctxOtpClaimsKey, claims)
		c.Next()
	}
}

// RequireResetToken guards the final reset step.
func RequireResetToken(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "token error", "token is missing")
			c.Abort()
			return
		}

		claims, err := tokens.VerifyResetGrant(token)
		if err != nil {
			unauthorized(c, "token error", tokenReason(err))
			c.Abort()
			return
		}

		c.Set(ctxResetClaimsKey, claims)
		c.Next()
	}
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// tokenReason maps verification errors onto the reason strings clients
// match on.
func tokenReason(err error) string {
	if errors.Is(err, models.ErrTokenExpired) {
		return "token expired"
	}
	return "token invalid"
}

func sessionUserID(c *gin.Context) int {
	return c.GetInt(ctxUserIDKey)
}

func otpClaims(c *gin.Context) *auth.OtpChallengeClaims {
	claims, _ := c.Get(ctxOtpClaimsKey)
	out, _ := claims.(*auth.OtpChallengeClaims)
	return out
}

func resetClaims(c *gin.Context) *auth.ResetGrantClaims {
	claims, _ := c.Get(ctxResetClaimsKey)
	out, _ := claims.(*auth.ResetGrantClaims)
	return out
}
