// internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/pkg/auth"
)

// AuthService turns credentials into token pairs and tokens back into
// acting users. Users themselves live in the board store.
type AuthService struct {
	board           *BoardService
	tokenManager    *auth.TokenManager
	passwordManager *auth.PasswordManager
	log             *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(board *BoardService, tokenManager *auth.TokenManager, passwordManager *auth.PasswordManager) *AuthService {
	return &AuthService{
		board:           board,
		tokenManager:    tokenManager,
		passwordManager: passwordManager,
		log:             board.log.With("component", "auth"),
	}
}

func unauthenticated(op, msg string) error {
	return apperror.New(apperror.KindUnauthenticated, op, "%s", msg)
}

// Register creates a user and signs them in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, *auth.TokenPair, error) {
	const op = "Register"
	hash, err := s.passwordManager.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, nil, apperror.NewValidation(op, "password", err.Error())
		}
		return nil, nil, apperror.Wrap(apperror.KindInternal, op, err)
	}

	user, err := s.board.RegisterUser(ctx, name, email, hash)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.tokenManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, op, err)
	}
	return user, pair, nil
}

// Login verifies credentials. Unknown emails and wrong passwords fail the
// same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *auth.TokenPair, error) {
	const op = "Login"
	if email == "" || password == "" {
		return nil, nil, apperror.NewValidation(op, "email", "email and password are required")
	}

	user, err := s.board.FindUserByEmail(ctx, email)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			s.log.Info("login failed", "reason", "unknown email")
			return nil, nil, unauthenticated(op, "invalid credentials")
		}
		return nil, nil, err
	}
	if err := s.passwordManager.ComparePassword(user.PasswordHash, password); err != nil {
		s.log.Info("login failed", "user", user.ID, "reason", "password mismatch")
		return nil, nil, unauthenticated(op, "invalid credentials")
	}

	pair, err := s.tokenManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.KindInternal, op, err)
	}
	s.log.Info("login succeeded", "user", user.ID)
	return user, pair, nil
}

// Refresh rotates a token pair. The user must still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	const op = "Refresh"
	claims, err := s.tokenManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, unauthenticated(op, "invalid refresh token")
	}
	if _, err := s.userFromClaims(ctx, claims); err != nil {
		return nil, unauthenticated(op, "invalid refresh token")
	}
	pair, err := s.tokenManager.Refresh(refreshToken)
	if err != nil {
		return nil, unauthenticated(op, "invalid refresh token")
	}
	return pair, nil
}

// Authenticate resolves an access token to the acting user id.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	const op = "Authenticate"
	claims, err := s.tokenManager.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return uuid.Nil, unauthenticated(op, "token has expired")
		}
		return uuid.Nil, unauthenticated(op, "invalid token")
	}
	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return uuid.Nil, unauthenticated(op, "unknown user")
	}
	return user.ID, nil
}

func (s *AuthService) userFromClaims(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return s.board.GetUser(ctx, id)
}
