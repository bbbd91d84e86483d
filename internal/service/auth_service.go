// internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/config"
	"taskdeck/internal/models"
	"taskdeck/internal/repository"
	"taskdeck/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user with this email or username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountLocked      = errors.New("account is locked")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid refresh token")
)

// AuthService handles registration, login, and refresh-token rotation.
type AuthService struct {
	users           repository.UserRepository
	tokenManager    *auth.TokenManager
	passwordManager *auth.PasswordManager
	securityLogger  *SecurityLogger
	securityConfig  config.SecurityConfig
	log             *slog.Logger
	now             func() time.Time
}

// NewAuthService creates a new authentication service with configurable security settings
func NewAuthService(
	users repository.UserRepository,
	tokenManager *auth.TokenManager,
	securityLogger *SecurityLogger,
	securityConfig config.SecurityConfig,
	log *slog.Logger,
) *AuthService {
	return &AuthService{
		users:           users,
		tokenManager:    tokenManager,
		passwordManager: auth.NewPasswordManager(),
		securityLogger:  securityLogger,
		securityConfig:  securityConfig,
		log:             log.With("component", "auth_service"),
		now:             time.Now,
	}
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Register creates a new user account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, ip string) (*models.User, *auth.TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if err := auth.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := auth.ValidateUsername(username); err != nil {
		return nil, nil, err
	}
	if err := s.passwordManager.ValidatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	// Check if user already exists
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := s.passwordManager.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.securityLogger.LogRegistered(ctx, user.ID, user.Email, ip)
	return user, pair, nil
}

// Login authenticates by email or username and returns a fresh token pair.
// Failed attempts count toward a lockout; a successful login resets them.
func (s *AuthService) Login(ctx context.Context, login, password, ip string) (*models.User, *auth.TokenPair, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.findByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.securityLogger.LogLoginFailed(ctx, login, "user not found", ip)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	now := s.now()
	if user.Locked(now) {
		return nil, nil, fmt.Errorf("%w until %s", ErrAccountLocked, user.LockedUntil.Format(time.RFC3339))
	}
	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}

	if err := s.passwordManager.ComparePassword(user.PasswordHash, password); err != nil {
		user.FailedLoginAttempts++
		locked := user.FailedLoginAttempts >= s.securityConfig.MaxLoginAttempts
		if locked {
			until := now.Add(s.securityConfig.LockoutDuration)
			user.LockedUntil = &until
			s.securityLogger.LogAccountLocked(ctx, user.ID,
				fmt.Sprintf("max login attempts (%d) exceeded", s.securityConfig.MaxLoginAttempts))
		}
		if saveErr := s.users.Save(ctx, user); saveErr != nil {
			s.log.Error("failed to record login attempt", "user_id", user.ID, "error", saveErr)
		}
		s.securityLogger.LogLoginFailed(ctx, login,
			fmt.Sprintf("invalid password (attempt %d of %d)", user.FailedLoginAttempts, s.securityConfig.MaxLoginAttempts), ip)

		if locked {
			return nil, nil, fmt.Errorf("%w after %d failed attempts", ErrAccountLocked, user.FailedLoginAttempts)
		}
		return nil, nil, ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.securityLogger.LogLoginSuccess(ctx, user.ID, ip)
	return user, pair, nil
}

// Refresh rotates a refresh token. The presented token must match the one
// stored for the user; anything else invalidates the request.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.tokenManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.OwnerID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		// A well-signed token that is not the stored one means a rotated
		// token is being replayed.
		s.securityLogger.LogSuspiciousActivity(ctx, user.ID, "mismatched refresh token presented")
		return nil, ErrInvalidToken
	}
	if user.RefreshTokenExpiresAt != nil && user.RefreshTokenExpiresAt.Before(s.now()) {
		return nil, ErrInvalidToken
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.securityLogger.LogTokenRefreshed(ctx, user.ID)
	return pair, nil
}

// Logout clears the stored refresh token. It never fails toward the caller;
// an already-invalid token has nothing left to revoke.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := s.tokenManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return
	}
	userID, err := claims.OwnerID()
	if err != nil {
		return
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return
	}

	user.RefreshToken = ""
	user.RefreshTokenExpiresAt = nil
	if err := s.users.Save(ctx, user); err != nil {
		s.log.Error("failed to clear refresh token", "user_id", userID, "error", err)
		return
	}
	s.securityLogger.LogLogout(ctx, userID)
}

// Me returns the account record for an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CleanupExpired drops expired refresh tokens and resets lapsed lockouts.
// Runs on a schedule, see cmd/server.
func (s *AuthService) CleanupExpired(ctx context.Context) error {
	now := s.now()

	tokens, err := s.users.ClearExpiredRefreshTokens(ctx, now)
	if err != nil {
		return err
	}
	locks, err := s.users.ResetExpiredLockouts(ctx, now)
	if err != nil {
		return err
	}

	if locks > 0 {
		s.securityLogger.LogAccountUnlocked(ctx, locks)
	}
	s.log.Info("security cleanup completed", "tokens_cleared", tokens, "lockouts_reset", locks)
	return nil
}

// findByLogin resolves the login field as an email when it contains '@',
// as a username otherwise.
func (s *AuthService) findByLogin(ctx context.Context, login string) (*models.User, error) {
	if strings.Contains(login, "@") {
		return s.users.FindByEmail(ctx, login)
	}
	return s.users.FindByUsername(ctx, login)
}

// issueTokens generates a token pair and persists the refresh half on the
// user row. The caller's pending field changes are saved along with it.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*auth.TokenPair, error) {
	pair, err := s.tokenManager.GenerateTokenPair(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	expires := s.now().Add(s.tokenManager.RefreshDuration())
	user.RefreshToken = pair.RefreshToken
	user.RefreshTokenExpiresAt = &expires

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}
