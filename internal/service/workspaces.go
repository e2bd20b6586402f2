// internal/service/workspaces.go
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
)

// CreateWorkspace creates a workspace owned by actor.
func (s *BoardService) CreateWorkspace(ctx context.Context, actor uuid.UUID, name string) (*models.Workspace, error) {
	const op = "CreateWorkspace"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewValidation(op, "name", "name is required")
	}

	var ws *models.Workspace
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		if _, err := tx.user(ctx, actor); err != nil {
			return err
		}
		ws = &models.Workspace{
			ID:        models.NewID(),
			Name:      name,
			OwnerID:   actor,
			Members:   models.Members{{UserID: actor, Role: models.RoleOwner}},
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		}
		return tx.Workspaces().Create(ctx, ws)
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// ListWorkspaces returns the workspaces actor belongs to.
func (s *BoardService) ListWorkspaces(ctx context.Context, actor uuid.UUID) ([]*models.Workspace, error) {
	var out []*models.Workspace
	err := s.run(ctx, "ListWorkspaces", func(ctx context.Context, tx *boardTx) error {
		ws, err := tx.Workspaces().ListByMember(ctx, actor)
		out = ws
		return err
	})
	return out, err
}

// GetWorkspace returns a workspace actor belongs to.
func (s *BoardService) GetWorkspace(ctx context.Context, actor, id uuid.UUID) (*models.Workspace, error) {
	var out *models.Workspace
	err := s.run(ctx, "GetWorkspace", func(ctx context.Context, tx *boardTx) error {
		ws, err := tx.memberWorkspace(ctx, actor, id)
		out = ws
		return err
	})
	return out, err
}
