// internal/service/comments.go
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

const maxCommentLength = 10000

// AddComment posts a comment on a task.
func (s *BoardService) AddComment(ctx context.Context, actor, taskID uuid.UUID, content string) (*models.Comment, error) {
	const op = "AddComment"
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.NewValidation(op, "content", "content is required")
	}
	if len(content) > maxCommentLength {
		return nil, apperror.NewValidation(op, "content", "content is too long")
	}

	var comment *models.Comment
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		t, p, err := tx.writableTask(ctx, actor, taskID)
		if err != nil {
			return err
		}
		c := &models.Comment{
			ID:        models.NewID(),
			TaskID:    t.ID,
			ProjectID: p.ID,
			UserID:    actor,
			Content:   content,
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		}
		if err := tx.Comments().Create(ctx, c); err != nil {
			return err
		}
		comment = c
		return tx.commit(ctx, p, actor, taskRef(t), activity.CommentAdded, activity.Details{
			activity.KeyCommentID: c.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a task's comments oldest first.
func (s *BoardService) ListComments(ctx context.Context, actor, taskID uuid.UUID) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.run(ctx, "ListComments", func(ctx context.Context, tx *boardTx) error {
		t, err := tx.task(ctx, taskID)
		if err != nil {
			return err
		}
		if _, err := tx.memberProject(ctx, actor, t.ProjectID); err != nil {
			return err
		}
		comments, err = tx.Comments().ListByTask(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment removes a comment. Allowed for its author and the project
// owner.
func (s *BoardService) DeleteComment(ctx context.Context, actor, commentID uuid.UUID) error {
	return s.run(ctx, "DeleteComment", func(ctx context.Context, tx *boardTx) error {
		c, err := tx.Comments().Get(ctx, commentID)
		if err != nil {
			return notFound("comment", err)
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		if actor != c.UserID && actor != p.OwnerID {
			return apperror.NewForbidden("", "only the author or the project owner can delete a comment")
		}
		if err := tx.Comments().Delete(ctx, c); err != nil {
			return err
		}
		taskID := c.TaskID
		return tx.commit(ctx, p, actor, &taskID, activity.TaskUpdated,
			activity.Changes("comments").With(activity.KeyCommentID, c.ID.String()))
	})
}
