package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskpilot/taskpilot/internal/models"
)

// ==============================================
// TOKEN KINDS
// ==============================================

// Kind discriminates the three token classes. A token is only ever
// accepted by the verifier for its own kind, even when the signature
// checks out: the session/otp/reset payloads nest field-wise, so a
// presence check alone cannot keep them apart.
type Kind string

const (
	KindSession      Kind = "session"
	KindOtpChallenge Kind = "otp_challenge"
	KindResetGrant   Kind = "reset_grant"
)

// Per-kind lifetimes. The OTP challenge is deliberately short since the
// code itself rides inside the token.
const (
	SessionTokenTTL = time.Hour
	OtpTokenTTL     = time.Minute
	ResetTokenTTL   = 10 * time.Minute
)

// ==============================================
// CLAIMS (one struct per kind)
// ==============================================

// SessionClaims is issued on login and consumed by every protected route.
type SessionClaims struct {
	Kind   Kind `json:"kind"`
	UserID int  `json:"user_id"`
	jwt.RegisteredClaims
}

// OtpChallengeClaims carries the emailed OTP through the verify step.
type OtpChallengeClaims struct {
	Kind   Kind   `json:"kind"`
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	OTP    string `json:"otp"`
	jwt.RegisteredClaims
}

// ResetGrantClaims authorizes the final password-reset submission.
type ResetGrantClaims struct {
	Kind   Kind   `json:"kind"`
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ==============================================
// TOKEN SERVICE
// ==============================================

// TokenService signs and verifies all three token kinds with one HS256
// secret. Tokens are bearer credentials; nothing is persisted server-side.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// ==============================================
// ISSUE
// ==============================================

// IssueSession generates a session token for a logged-in user.
// Returns the token and its lifetime in seconds.
func (s *TokenService) IssueSession(userID int) (string, int, error) {
	claims := &SessionClaims{
		Kind:             KindSession,
		UserID:           userID,
		RegisteredClaims: s.registered(SessionTokenTTL),
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, int(SessionTokenTTL.Seconds()), nil
}

// IssueOtpChallenge generates the short-lived token embedding the OTP
// dispatched to the user's email.
func (s *TokenService) IssueOtpChallenge(userID int, email, otp string) (string, error) {
	claims := &OtpChallengeClaims{
		Kind:             KindOtpChallenge,
		UserID:           userID,
		Email:            email,
		OTP:              otp,
		RegisteredClaims: s.registered(OtpTokenTTL),
	}
	return s.sign(claims)
}

// IssueResetGrant generates the token that authorizes the final
// password-reset step. Only produced after a successful OTP check.
func (s *TokenService) IssueResetGrant(userID int, email string) (string, error) {
	claims := &ResetGrantClaims{
		Kind:             KindResetGrant,
		UserID:           userID,
		Email:            email,
		RegisteredClaims: s.registered(ResetTokenTTL),
	}
	return s.sign(claims)
}

// ==============================================
// VERIFY
// ==============================================

// VerifySession validates a session token and returns the subject user id.
func (s *TokenService) VerifySession(tokenString string) (int, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return 0, err
	}
	if claims.Kind != KindSession || claims.UserID == 0 {
		return 0, models.ErrTokenInvalid
	}
	return claims.UserID, nil
}

// VerifyOtpChallenge validates an OTP-challenge token.
func (s *TokenService) VerifyOtpChallenge(tokenString string) (*OtpChallengeClaims, error) {
	claims := &OtpChallengeClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindOtpChallenge || claims.UserID == 0 || claims.Email == "" || claims.OTP == "" {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyResetGrant validates a reset-grant token.
func (s *TokenService) VerifyResetGrant(tokenString string) (*ResetGrantClaims, error) {
	claims := &ResetGrantClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Kind != KindResetGrant || claims.UserID == 0 || claims.Email == "" {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

func (s *TokenService) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func (s *TokenService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parse verifies the signature and expiry, mapping the jwt error space
// down to the two reasons callers surface: expired vs invalid.
func (s *TokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.ErrTokenExpired
		}
		return models.ErrTokenInvalid
	}

	if !token.Valid {
		return models.ErrTokenInvalid
	}
	return nil
}
