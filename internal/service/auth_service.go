package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/taskpilot/taskpilot/internal/api/dto"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/ratelimit"
	"github.com/taskpilot/taskpilot/internal/repository"
)

// ==============================================
// REPOSITORY INTERFACES (for testing)
// ==============================================

type UserRepositoryInterface interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
}

type ResetRepositoryInterface interface {
	CreateReset(ctx context.Context, reset *models.PasswordReset) error
	GetLatestByUserID(ctx context.Context, userID int) (*models.PasswordReset, error)
	IncrementAttempts(ctx context.Context, resetID int) error
	CompleteReset(ctx context.Context, resetID, userID int, passwordHash string) error
}

// ==============================================
// LOGIN THROTTLE (per-identity)
// ==============================================

// The per-identity login guard records every failed attempt and clears
// the window on success, unlike the per-IP limits which only count
// admitted requests.
const (
	LoginUserKeyPrefix = "login-user"
	LoginUserLimit     = 5
	LoginUserWindow    = 15 * time.Minute
)

// ==============================================
// AUTH SERVICE
// ==============================================

type AuthService struct {
	userRepo  UserRepositoryInterface
	resetRepo ResetRepositoryInterface
	tokens    *auth.TokenService
	mailer    Mailer
	limiter   ratelimit.Store
}

func NewAuthService(
	userRepo UserRepositoryInterface,
	resetRepo ResetRepositoryInterface,
	tokens *auth.TokenService,
	mailer Mailer,
	limiter ratelimit.Store,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		tokens:    tokens,
		mailer:    mailer,
		limiter:   limiter,
	}
}

// ==============================================
// SIGNUP
// ==============================================

func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest) (*models.User, error) {
	existing, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		log.Printf("[AUTH] signup attempt with existing username=%s", req.Username)
		return nil, models.ErrUsernameAlreadyExists
	}

	existing, err = s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		log.Printf("[AUTH] signup attempt with existing email=%s", req.Email)
		return nil, models.ErrEmailAlreadyExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AUTH] user created: username=%s user_id=%d", user.Username, user.ID)
	return user, nil
}

// ==============================================
// LOGIN
// ==============================================

// Login authenticates by username or email. Failed attempts occupy the
// identifier's sliding window; a success clears it.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (string, error) {
	var user *models.User
	var err error

	if req.Email != "" {
		user, err = s.userRepo.GetUserByEmail(ctx, req.Email)
	} else {
		user, err = s.userRepo.GetUserByUsername(ctx, req.Username)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AUTH] login: user not found, identifier=%s", req.Identifier())
			return "", models.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	key := ratelimit.Key(LoginUserKeyPrefix, req.Identifier())
	allowed, err := s.limiter.Allow(ctx, key, LoginUserLimit, LoginUserWindow)
	if err != nil {
		return "", fmt.Errorf("login rate check failed: %w", err)
	}
	if !allowed {
		return "", models.ErrRateLimited
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		log.Printf("[AUTH] failed login attempt: identifier=%s", req.Identifier())
		// failed attempts count toward the window even though the
		// admission check above already recorded this arrival
		if rerr := s.limiter.Record(ctx, key, LoginUserWindow); rerr != nil {
			log.Printf("[AUTH] failed to record login failure: %v", rerr)
		}
		return "", models.ErrInvalidCredentials
	}

	if cerr := s.limiter.Clear(ctx, key); cerr != nil {
		log.Printf("[AUTH] failed to clear login window: %v", cerr)
	}

	token, _, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

// CurrentUser returns the public view of the session's subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID int) (*models.PublicUser, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.ToPublic(), nil
}

// ==============================================
// PASSWORD RESET FLOW
// ==============================================

// ForgetPassword starts the reset handshake: generate an OTP, wrap it
// in a short-lived challenge token, and mail the code out-of-band.
func (s *AuthService) ForgetPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AUTH] forget-password: user not found, email=%s", email)
			return "", models.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	token, err := s.tokens.IssueOtpChallenge(user.ID, email, otp)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP token: %w", err)
	}

	if err := s.mailer.SendOTP(user.Email, user.Username, otp); err != nil {
		return "", fmt.Errorf("failed to send OTP email: %w", err)
	}

	log.Printf("[AUTH] OTP dispatched: email=%s", email)
	return token, nil
}

// VerifyOtp advances the flow from OtpIssued to OtpVerified: on a
// matching code it opens a fresh reset-attempt record and issues the
// reset grant.
func (s *AuthService) VerifyOtp(ctx context.Context, claims *auth.OtpChallengeClaims, req dto.VerifyOtpRequest) (string, error) {
	if req.Email != claims.Email {
		log.Printf("[AUTH] verify-otp: body email does not match token email=%s", claims.Email)
		return "", models.ErrForbidden
	}

	if req.Otp != claims.OTP {
		log.Printf("[AUTH] verify-otp: invalid OTP for email=%s", claims.Email)
		return "", models.ErrOTPInvalid
	}

	user, err := s.userRepo.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", models.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(models.ResetRecordTTL),
	}
	if err := s.resetRepo.CreateReset(ctx, reset); err != nil {
		return "", fmt.Errorf("failed to create reset record: %w", err)
	}

	token, err := s.tokens.IssueResetGrant(user.ID, claims.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	log.Printf("[AUTH] OTP verified: user_id=%d", user.ID)
	return token, nil
}

// ResetPassword consumes the grant. The most recent attempt record
// gates the submission: a used record is terminal, and four failed
// submissions block the grant outright regardless of token validity.
func (s *AuthService) ResetPassword(ctx context.Context, claims *auth.ResetGrantClaims, newPassword string) error {
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil || user.Email != claims.Email {
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("failed to get user: %w", err)
		}
		return models.ErrUserNotFound
	}

	reset, err := s.resetRepo.GetLatestByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrResetNotFound) {
			// a grant without a ledger record cannot come from the
			// normal flow
			return models.ErrTokenInvalid
		}
		return fmt.Errorf("failed to get reset record: %w", err)
	}

	if reset.Used {
		log.Printf("[AUTH] reset token already used: user_id=%d", user.ID)
		return models.ErrResetTokenUsed
	}
	if reset.Blocked() {
		log.Printf("[AUTH] reset attempts exceeded: user_id=%d attempts=%d", user.ID, reset.Attempts)
		return models.ErrResetAttemptsExceeded
	}
	if reset.IsExpired() {
		return models.ErrTokenExpired
	}

	// reuse check runs before the record is consumed
	if auth.CheckPassword(newPassword, user.PasswordHash) {
		if ierr := s.resetRepo.IncrementAttempts(ctx, reset.ID); ierr != nil {
			log.Printf("[AUTH] failed to record reset failure: %v", ierr)
		}
		return models.ErrPasswordReuse
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.resetRepo.CompleteReset(ctx, reset.ID, user.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to complete reset: %w", err)
	}

	log.Printf("[AUTH] password reset successful: user_id=%d", user.ID)
	return nil
}

// CheckResetGate inspects the grant's attempt record without consuming
// it. The endpoint calls this ahead of body validation so a used or
// blocked record answers before any attempt is charged.
func (s *AuthService) CheckResetGate(ctx context.Context, claims *auth.ResetGrantClaims) error {
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil || user.Email != claims.Email {
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("failed to get user: %w", err)
		}
		return models.ErrUserNotFound
	}

	reset, err := s.resetRepo.GetLatestByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrResetNotFound) {
			return models.ErrTokenInvalid
		}
		return fmt.Errorf("failed to get reset record: %w", err)
	}

	if reset.Used {
		return models.ErrResetTokenUsed
	}
	if reset.Blocked() {
		return models.ErrResetAttemptsExceeded
	}
	if reset.IsExpired() {
		return models.ErrTokenExpired
	}
	return nil
}

// RecordResetFailure persists one failed submission against the user's
// latest reset record. Used by the endpoint when the request body fails
// schema validation after the grant token already verified.
func (s *AuthService) RecordResetFailure(ctx context.Context, userID int) {
	reset, err := s.resetRepo.GetLatestByUserID(ctx, userID)
	if err != nil {
		return
	}
	if err := s.resetRepo.IncrementAttempts(ctx, reset.ID); err != nil {
		log.Printf("[AUTH] failed to record reset failure: %v", err)
	}
}
