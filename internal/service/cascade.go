// internal/service/cascade.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/stats"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// cascadeErr marks a failed cascade step. Conflicts pass through so the
// whole operation is retried.
func cascadeErr(step string, err error) error {
	var appErr *apperror.Error
	if err == nil || errors.Is(err, repository.ErrConflict) || errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(apperror.KindCascadeFailed, "", fmt.Errorf("%s: %w", step, err))
}

// deleteTaskCascade removes t from its column, deletes its comments and the
// task itself, and updates the project stats. The caller commits p.
func (tx *boardTx) deleteTaskCascade(ctx context.Context, p *models.Project, t *models.Task) error {
	c, err := tx.column(ctx, t.ColumnID)
	if err != nil {
		return err
	}
	order, _, err := ordering.Remove(c.TaskOrder, t.ID)
	if err != nil {
		return err
	}
	c.TaskOrder = order
	if err := tx.Columns().Replace(ctx, c); err != nil {
		return cascadeErr("update column", err)
	}
	if _, err := tx.Comments().DeleteAllByTask(ctx, t.ID); err != nil {
		return cascadeErr("delete comments", err)
	}
	if err := tx.Tasks().Delete(ctx, t); err != nil {
		return cascadeErr("delete task", err)
	}
	return tx.applyTask(ctx, p, t, nil)
}

// deleteColumnCascade deletes every task of c with its comments, then c
// itself, and detaches c from p. It returns the number of deleted tasks.
func (tx *boardTx) deleteColumnCascade(ctx context.Context, p *models.Project, c *models.Column) (int, error) {
	tasks, err := tx.Tasks().ListByColumn(ctx, c.ID)
	if err != nil {
		return 0, cascadeErr("list tasks", err)
	}
	for _, t := range tasks {
		if _, err := tx.Comments().DeleteAllByTask(ctx, t.ID); err != nil {
			return 0, cascadeErr("delete comments", err)
		}
		stats.Apply(&p.TaskStats, t, nil)
	}
	if _, err := tx.Tasks().DeleteAllByColumn(ctx, c.ID); err != nil {
		return 0, cascadeErr("delete tasks", err)
	}
	if err := tx.Columns().Delete(ctx, c); err != nil {
		return 0, cascadeErr("delete column", err)
	}
	order, _, err := ordering.Remove(p.ColumnOrder, c.ID)
	if err != nil {
		return 0, err
	}
	p.ColumnOrder = order
	stats.DropColumn(&p.TaskStats, c.ID)
	if p.IsDoneColumn(c.ID) {
		p.DoneColumnID = nil
	}
	if err := tx.recountOverdue(ctx, p); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// deleteProjectCascade removes p and everything under it.
func (tx *boardTx) deleteProjectCascade(ctx context.Context, p *models.Project) error {
	steps := []struct {
		name string
		fn   func(context.Context, uuid.UUID) (int, error)
	}{
		{"delete activities", tx.Activities().DeleteAllByProject},
		{"delete comments", tx.Comments().DeleteAllByProject},
		{"delete tasks", tx.Tasks().DeleteAllByProject},
		{"delete columns", tx.Columns().DeleteAllByProject},
		{"delete labels", tx.Labels().DeleteAllByProject},
	}
	for _, step := range steps {
		if _, err := step.fn(ctx, p.ID); err != nil {
			return cascadeErr(step.name, err)
		}
	}
	if err := tx.Projects().Delete(ctx, p); err != nil {
		return cascadeErr("delete project", err)
	}
	tx.workspaces[p.WorkspaceID] = struct{}{}
	tx.deleted = append(tx.deleted, p.ID)
	return nil
}

// DeleteProject deletes the project with its columns, tasks, labels,
// comments and activity stream. Owner only.
func (s *BoardService) DeleteProject(ctx context.Context, actor, projectID uuid.UUID) error {
	return s.run(ctx, "DeleteProject", func(ctx context.Context, tx *boardTx) error {
		p, err := tx.memberProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != actor {
			return apperror.NewForbidden("", "only the project owner can delete the project")
		}
		return tx.deleteProjectCascade(ctx, p)
	})
}

// DeleteWorkspace deletes the workspace and every project in it. Owner
// only.
func (s *BoardService) DeleteWorkspace(ctx context.Context, actor, workspaceID uuid.UUID) error {
	return s.run(ctx, "DeleteWorkspace", func(ctx context.Context, tx *boardTx) error {
		ws, err := tx.memberWorkspace(ctx, actor, workspaceID)
		if err != nil {
			return err
		}
		if ws.OwnerID != actor {
			return apperror.NewForbidden("", "only the workspace owner can delete the workspace")
		}
		projects, err := tx.Projects().ListByWorkspace(ctx, ws.ID)
		if err != nil {
			return cascadeErr("list projects", err)
		}
		for _, p := range projects {
			if err := tx.deleteProjectCascade(ctx, p); err != nil {
				return err
			}
		}
		if err := tx.Workspaces().Delete(ctx, ws); err != nil {
			return cascadeErr("delete workspace", err)
		}
		s.log.Info("workspace deleted", "workspace", ws.ID, "projects", len(projects))
		return nil
	})
}

// DeleteUser removes a user account. The user leaves every workspace and
// project, is unassigned from every task, and their comments, activities
// and created tasks are re-attributed to models.DeletedUserID. Users who
// still own a workspace or project must transfer ownership first.
// Archived projects are included.
func (s *BoardService) DeleteUser(ctx context.Context, actor, userID uuid.UUID) error {
	return s.run(ctx, "DeleteUser", func(ctx context.Context, tx *boardTx) error {
		if actor != userID {
			return apperror.NewForbidden("", "users can only delete their own account")
		}
		user, err := tx.user(ctx, userID)
		if err != nil {
			return err
		}

		workspaces, err := tx.Workspaces().ListByMember(ctx, userID)
		if err != nil {
			return err
		}
		projects, err := tx.Projects().ListByMember(ctx, userID)
		if err != nil {
			return err
		}
		for _, ws := range workspaces {
			if ws.OwnerID == userID {
				return apperror.New(apperror.KindOwnerRemoval, "", "user owns workspace %s; transfer it first", ws.ID)
			}
		}
		for _, p := range projects {
			if p.OwnerID == userID {
				return apperror.New(apperror.KindOwnerRemoval, "", "user owns project %s; transfer it first", p.ID)
			}
		}

		for _, p := range projects {
			p.Members = p.Members.Without(userID)
			if err := tx.commit(ctx, p, models.DeletedUserID, nil, activity.MemberRemoved, activity.Member(userID, "")); err != nil {
				return cascadeErr("leave project", err)
			}
		}
		for _, ws := range workspaces {
			ws.Members = ws.Members.Without(userID)
			if err := tx.Workspaces().Replace(ctx, ws); err != nil {
				return cascadeErr("leave workspace", err)
			}
		}

		assigned, err := tx.Tasks().ListByAssignee(ctx, userID, repository.TaskFilter{})
		if err != nil {
			return cascadeErr("list assigned tasks", err)
		}
		for _, t := range assigned {
			rest, _, err := ordering.Remove(t.Assignees, userID)
			if err != nil {
				return cascadeErr("unassign task", err)
			}
			t.Assignees = rest
			if err := tx.Tasks().Replace(ctx, t); err != nil {
				return cascadeErr("unassign task", err)
			}
		}

		if _, err := tx.Tasks().ReassignCreator(ctx, userID, models.DeletedUserID); err != nil {
			return cascadeErr("tombstone tasks", err)
		}
		if _, err := tx.Comments().ReassignUser(ctx, userID, models.DeletedUserID); err != nil {
			return cascadeErr("tombstone comments", err)
		}
		if _, err := tx.Activities().ReassignUser(ctx, userID, models.DeletedUserID); err != nil {
			return cascadeErr("tombstone activities", err)
		}
		if err := tx.Users().Delete(ctx, user); err != nil {
			return cascadeErr("delete user", err)
		}
		s.log.Info("user deleted", "user", userID, "projects", len(projects), "workspaces", len(workspaces))
		return nil
	})
}
