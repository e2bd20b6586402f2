// internal/service/projects.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/internal/stats"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// ProjectInput carries the fields of a new project.
type ProjectInput struct {
	Name        string
	Description string
	Deadline    *time.Time
}

// ProjectUpdate replaces each non-nil field wholesale.
type ProjectUpdate struct {
	Name          *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
}

// ListProjects returns the overviews of every project in the workspace.
// Overviews are served from the cache when present; concurrent misses for
// one workspace share a single store read.
func (s *BoardService) ListProjects(ctx context.Context, actor, workspaceID uuid.UUID) ([]models.ProjectOverview, error) {
	err := s.run(ctx, "ListProjects", func(ctx context.Context, tx *boardTx) error {
		_, err := tx.memberWorkspace(ctx, actor, workspaceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	cached, version, ok, err := s.cache.GetOverviews(ctx, workspaceID)
	fill := err == nil
	if err != nil {
		s.log.Warn("overview cache read failed", "workspace", workspaceID, "error", err)
	} else if ok {
		return cached, nil
	}

	key := fmt.Sprintf("%s:%d", workspaceID, version)
	v, err, shared := s.loads.Do(key, func() (any, error) {
		return s.loadOverviews(context.WithoutCancel(ctx), workspaceID, version, fill)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("overview load shared", "workspace", workspaceID)
	}
	return cloneOverviews(v.([]models.ProjectOverview)), nil
}

// loadOverviews reads the overviews from the store and, when fill is set,
// caches them at version. A fill racing an invalidation lands under a
// version readers have moved past.
func (s *BoardService) loadOverviews(ctx context.Context, workspaceID uuid.UUID, version int64, fill bool) ([]models.ProjectOverview, error) {
	var out []models.ProjectOverview
	err := s.run(ctx, "ListProjects", func(ctx context.Context, tx *boardTx) error {
		projects, err := tx.Projects().ListByWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		out = make([]models.ProjectOverview, len(projects))
		for i, p := range projects {
			out[i] = p.Overview()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !fill {
		return out, nil
	}
	if err := s.cache.SetOverviews(ctx, workspaceID, version, out); err != nil {
		s.log.Warn("overview cache write failed", "workspace", workspaceID, "error", err)
	}
	return out, nil
}

func cloneOverviews(in []models.ProjectOverview) []models.ProjectOverview {
	out := make([]models.ProjectOverview, len(in))
	for i, o := range in {
		out[i] = o
		out[i].TaskStats = o.TaskStats.Clone()
		if o.Deadline != nil {
			d := *o.Deadline
			out[i].Deadline = &d
		}
	}
	return out
}

// CreateProject creates a project in the workspace with actor as owner and,
// when the policy is on, seeds the default columns.
func (s *BoardService) CreateProject(ctx context.Context, actor, workspaceID uuid.UUID, in ProjectInput) (*models.Project, error) {
	const op = "CreateProject"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.NewValidation(op, "name", "name is required")
	}

	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		if _, err := tx.memberWorkspace(ctx, actor, workspaceID); err != nil {
			return err
		}
		p := &models.Project{
			ID:          models.NewID(),
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			WorkspaceID: workspaceID,
			OwnerID:     actor,
			Members:     models.Members{{UserID: actor, Role: models.RoleOwner}},
			Status:      models.ProjectActive,
			Deadline:    in.Deadline,
			ColumnOrder: []uuid.UUID{},
			TaskStats:   models.NewTaskStats(),
			CreatedAt:   tx.now,
			UpdatedAt:   tx.now,
		}
		if s.opts.SeedDefaultColumns {
			for _, title := range s.opts.DefaultColumns {
				c := &models.Column{
					ID:        models.NewID(),
					Title:     title,
					ProjectID: p.ID,
					TaskOrder: []uuid.UUID{},
					CreatedAt: tx.now,
					UpdatedAt: tx.now,
				}
				if err := tx.Columns().Create(ctx, c); err != nil {
					return err
				}
				p.ColumnOrder = append(p.ColumnOrder, c.ID)
				stats.AddColumn(&p.TaskStats, c.ID)
			}
			if s.opts.DefaultDoneColumn && len(p.ColumnOrder) > 0 {
				done := p.ColumnOrder[len(p.ColumnOrder)-1]
				p.DoneColumnID = &done
			}
		}
		if err := tx.Projects().Create(ctx, p); err != nil {
			return err
		}
		tx.workspaces[workspaceID] = struct{}{}
		project = p
		return tx.emit(ctx, p.ID, actor, nil, activity.ProjectCreated, activity.Details{activity.KeyName: name})
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject returns the project with its columns and tasks in board order.
func (s *BoardService) GetProject(ctx context.Context, actor, projectID uuid.UUID) (*models.ProjectDetail, error) {
	var detail *models.ProjectDetail
	err := s.run(ctx, "GetProject", func(ctx context.Context, tx *boardTx) error {
		p, err := tx.memberProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		d, err := tx.board(ctx, p)
		detail = d
		return err
	})
	return detail, err
}

func (tx *boardTx) board(ctx context.Context, p *models.Project) (*models.ProjectDetail, error) {
	columns, err := tx.Columns().ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	labels, err := tx.Labels().ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	colByID := make(map[uuid.UUID]*models.Column, len(columns))
	for _, c := range columns {
		colByID[c.ID] = c
	}
	taskByID := make(map[uuid.UUID]*models.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	detail := &models.ProjectDetail{Project: p, Columns: []models.ColumnDetail{}, Labels: labels}
	for _, cid := range p.ColumnOrder {
		c, ok := colByID[cid]
		if !ok {
			continue
		}
		cd := models.ColumnDetail{Column: c, Tasks: []*models.Task{}}
		for _, tid := range c.TaskOrder {
			if t, ok := taskByID[tid]; ok {
				cd.Tasks = append(cd.Tasks, t)
			}
		}
		detail.Columns = append(detail.Columns, cd)
	}
	return detail, nil
}

// AuthorizeProject fails unless actor is a member of the project.
func (s *BoardService) AuthorizeProject(ctx context.Context, actor, projectID uuid.UUID) error {
	return s.run(ctx, "AuthorizeProject", func(ctx context.Context, tx *boardTx) error {
		_, err := tx.memberProject(ctx, actor, projectID)
		return err
	})
}

// UpdateProject edits name, description and deadline.
func (s *BoardService) UpdateProject(ctx context.Context, actor, projectID uuid.UUID, in ProjectUpdate) (*models.Project, error) {
	const op = "UpdateProject"
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperror.NewValidation(op, "name", "name must not be blank")
	}

	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		p, err := tx.writableProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		project = p

		var changes []string
		if in.Name != nil && strings.TrimSpace(*in.Name) != p.Name {
			p.Name = strings.TrimSpace(*in.Name)
			changes = append(changes, "name")
		}
		if in.Description != nil && *in.Description != p.Description {
			p.Description = *in.Description
			changes = append(changes, "description")
		}
		switch {
		case in.ClearDeadline && p.Deadline != nil:
			p.Deadline = nil
			changes = append(changes, "deadline")
		case in.Deadline != nil && (p.Deadline == nil || !p.Deadline.Equal(*in.Deadline)):
			d := in.Deadline.UTC()
			p.Deadline = &d
			changes = append(changes, "deadline")
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.commit(ctx, p, actor, nil, activity.ProjectUpdated, activity.Changes(changes...))
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ArchiveProject moves an active project to ARCHIVED.
func (s *BoardService) ArchiveProject(ctx context.Context, actor, projectID uuid.UUID) (*models.Project, error) {
	return s.transition(ctx, "ArchiveProject", actor, projectID, func(p *models.Project) error {
		if p.Status != models.ProjectActive {
			return apperror.NewValidation("", "status", "only active projects can be archived")
		}
		p.Status = models.ProjectArchived
		return nil
	})
}

// RestoreProject returns an archived or completed project to ACTIVE.
// Un-completing is reserved to the owner.
func (s *BoardService) RestoreProject(ctx context.Context, actor, projectID uuid.UUID) (*models.Project, error) {
	return s.transition(ctx, "RestoreProject", actor, projectID, func(p *models.Project) error {
		switch p.Status {
		case models.ProjectArchived:
		case models.ProjectCompleted:
			if p.OwnerID != actor {
				return apperror.NewForbidden("", "only the owner can reopen a completed project")
			}
		default:
			return apperror.NewValidation("", "status", "project is already active")
		}
		p.Status = models.ProjectActive
		return nil
	})
}

// CompleteProject marks an active or archived project COMPLETED.
func (s *BoardService) CompleteProject(ctx context.Context, actor, projectID uuid.UUID) (*models.Project, error) {
	return s.transition(ctx, "CompleteProject", actor, projectID, func(p *models.Project) error {
		if p.Status == models.ProjectCompleted {
			return apperror.NewValidation("", "status", "project is already completed")
		}
		p.Status = models.ProjectCompleted
		return nil
	})
}

func (s *BoardService) transition(ctx context.Context, op string, actor, projectID uuid.UUID, apply func(*models.Project) error) (*models.Project, error) {
	var project *models.Project
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		p, err := tx.memberProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		from := p.Status
		if err := apply(p); err != nil {
			return err
		}
		project = p
		action := activity.ProjectUpdated
		if p.Status == models.ProjectArchived {
			action = activity.ProjectArchived
		}
		details := activity.Changes("status").
			With(activity.KeyFrom, string(from)).
			With(activity.KeyTo, string(p.Status))
		return tx.commit(ctx, p, actor, nil, action, details)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// SetDoneColumn designates the done column, or clears it when columnID is
// nil, and recomputes the overdue count.
func (s *BoardService) SetDoneColumn(ctx context.Context, actor, projectID uuid.UUID, columnID *uuid.UUID) (*models.Project, error) {
	var project *models.Project
	err := s.run(ctx, "SetDoneColumn", func(ctx context.Context, tx *boardTx) error {
		p, err := tx.writableProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		details := activity.Changes("doneColumnId")
		if columnID != nil {
			if !ordering.Contains(p.ColumnOrder, *columnID) {
				return apperror.New(apperror.KindNotInList, "", "column %s is not part of the project", *columnID)
			}
			id := *columnID
			p.DoneColumnID = &id
			details = details.With(activity.KeyColumnID, id.String())
		} else {
			p.DoneColumnID = nil
		}
		if err := tx.recountOverdue(ctx, p); err != nil {
			return err
		}
		project = p
		return tx.commit(ctx, p, actor, nil, activity.ProjectUpdated, details)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
