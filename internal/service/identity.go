// internal/service/identity.go
package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
)

// RegisterUser creates a user. The email is stored normalized and must be
// unique across the system.
func (s *BoardService) RegisterUser(ctx context.Context, name, email string, passwordHash []byte) (*models.User, error) {
	const op = "RegisterUser"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewValidation(op, "name", "name is required")
	}
	email = models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.NewValidation(op, "email", "invalid email address")
	}
	if len(passwordHash) == 0 {
		return nil, apperror.NewValidation(op, "password", "password hash is required")
	}

	var user *models.User
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		user = &models.User{
			ID:           models.NewID(),
			Name:         name,
			Email:        email,
			PasswordHash: append([]byte(nil), passwordHash...),
			CreatedAt:    tx.now,
			UpdatedAt:    tx.now,
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user", user.ID)
	return user, nil
}

// FindUserByEmail looks a user up by case-insensitive email.
func (s *BoardService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, "FindUserByEmail", func(ctx context.Context, tx *boardTx) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return notFound("user", err)
		}
		user = u
		return nil
	})
	return user, err
}

// GetUser returns a user by id.
func (s *BoardService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, "GetUser", func(ctx context.Context, tx *boardTx) error {
		u, err := tx.user(ctx, id)
		user = u
		return err
	})
	return user, err
}
