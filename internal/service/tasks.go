// internal/service/tasks.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// TaskInput holds the fields accepted on task creation.
type TaskInput struct {
	Title       string
	Description string
	Assignees   []uuid.UUID
	Labels      []uuid.UUID
	DueDate     *time.Time
	Checklists  []models.Checklist
}

// TaskUpdate sets task fields wholesale. Nil fields are left untouched.
// The column is changed only through MoveTask.
type TaskUpdate struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Checklists   *[]models.Checklist
	Assignees    *[]uuid.UUID
	Labels       *[]uuid.UUID
}

func validateChecklists(op string, lists []models.Checklist) error {
	for _, cl := range lists {
		if strings.TrimSpace(cl.Title) == "" {
			return apperror.NewValidation(op, "checklists.title", "checklist title is required")
		}
		for _, item := range cl.Items {
			if strings.TrimSpace(item.Text) == "" {
				return apperror.NewValidation(op, "checklists.items.text", "checklist item text is required")
			}
		}
	}
	return nil
}

// checkAssignees requires a duplicate-free set of project members.
func checkAssignees(p *models.Project, ids []uuid.UUID) error {
	if len(ordering.Duplicates(ids)) > 0 {
		return apperror.NewValidation("", "assignees", "duplicate assignee")
	}
	for _, id := range ids {
		if !p.Members.Has(id) {
			return apperror.NewValidation("", "assignees", "user "+id.String()+" is not a project member")
		}
	}
	return nil
}

// checkLabels requires a duplicate-free set of labels owned by p.
func (tx *boardTx) checkLabels(ctx context.Context, p *models.Project, ids []uuid.UUID) error {
	if len(ordering.Duplicates(ids)) > 0 {
		return apperror.NewValidation("", "labels", "duplicate label")
	}
	for _, id := range ids {
		l, err := tx.label(ctx, id)
		if err != nil {
			return err
		}
		if l.ProjectID != p.ID {
			return apperror.NewValidation("", "labels", "label "+id.String()+" belongs to another project")
		}
	}
	return nil
}

// writableTask loads a task together with its project, which must be
// writable by actor.
func (tx *boardTx) writableTask(ctx context.Context, actor, taskID uuid.UUID) (*models.Task, *models.Project, error) {
	t, err := tx.task(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	p, err := tx.writableProject(ctx, actor, t.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// CreateTask appends a new task to the column.
func (s *BoardService) CreateTask(ctx context.Context, actor, columnID uuid.UUID, in TaskInput) (*models.Task, error) {
	const op = "CreateTask"
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.NewValidation(op, "title", "title is required")
	}
	if err := validateChecklists(op, in.Checklists); err != nil {
		return nil, err
	}

	var task *models.Task
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		c, err := tx.column(ctx, columnID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		if err := checkAssignees(p, in.Assignees); err != nil {
			return err
		}
		if err := tx.checkLabels(ctx, p, in.Labels); err != nil {
			return err
		}

		t := &models.Task{
			ID:          models.NewID(),
			Title:       title,
			Description: in.Description,
			ProjectID:   p.ID,
			ColumnID:    c.ID,
			CreatorID:   actor,
			Assignees:   append([]uuid.UUID{}, in.Assignees...),
			Labels:      append([]uuid.UUID{}, in.Labels...),
			Checklists:  models.CloneChecklists(in.Checklists),
			CreatedAt:   tx.now,
			UpdatedAt:   tx.now,
		}
		if in.DueDate != nil {
			d := in.DueDate.UTC()
			t.DueDate = &d
		}
		order, _, err := ordering.Insert(c.TaskOrder, t.ID, ordering.Append)
		if err != nil {
			return err
		}
		c.TaskOrder = order
		if err := tx.Columns().Replace(ctx, c); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, t); err != nil {
			return err
		}
		if err := tx.applyTask(ctx, p, nil, t); err != nil {
			return err
		}
		task = t
		return tx.commit(ctx, p, actor, taskRef(t), activity.TaskCreated, activity.Details{
			activity.KeyTitle:    t.Title,
			activity.KeyColumnID: c.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask returns a task of a project the actor belongs to.
func (s *BoardService) GetTask(ctx context.Context, actor, taskID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, "GetTask", func(ctx context.Context, tx *boardTx) error {
		t, err := tx.task(ctx, taskID)
		if err != nil {
			return err
		}
		if _, err := tx.memberProject(ctx, actor, t.ProjectID); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies in to the task and records one TASK_UPDATED listing
// the changed fields. An update that changes nothing writes nothing.
func (s *BoardService) UpdateTask(ctx context.Context, actor, taskID uuid.UUID, in TaskUpdate) (*models.Task, error) {
	const op = "UpdateTask"
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, apperror.NewValidation(op, "title", "title must not be blank")
	}
	if in.Checklists != nil {
		if err := validateChecklists(op, *in.Checklists); err != nil {
			return nil, err
		}
	}

	var task *models.Task
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		t, p, err := tx.writableTask(ctx, actor, taskID)
		if err != nil {
			return err
		}
		task = t
		before := t.Clone()

		var changes []string
		if in.Title != nil && strings.TrimSpace(*in.Title) != t.Title {
			t.Title = strings.TrimSpace(*in.Title)
			changes = append(changes, "title")
		}
		if in.Description != nil && *in.Description != t.Description {
			t.Description = *in.Description
			changes = append(changes, "description")
		}
		switch {
		case in.ClearDueDate && t.DueDate != nil:
			t.DueDate = nil
			changes = append(changes, "dueDate")
		case in.DueDate != nil && (t.DueDate == nil || !t.DueDate.Equal(*in.DueDate)):
			d := in.DueDate.UTC()
			t.DueDate = &d
			changes = append(changes, "dueDate")
		}
		if in.Checklists != nil {
			t.Checklists = models.CloneChecklists(*in.Checklists)
			changes = append(changes, "checklists")
		}
		if in.Assignees != nil {
			if err := checkAssignees(p, *in.Assignees); err != nil {
				return err
			}
			t.Assignees = append([]uuid.UUID{}, *in.Assignees...)
			changes = append(changes, "assignees")
		}
		if in.Labels != nil {
			if err := tx.checkLabels(ctx, p, *in.Labels); err != nil {
				return err
			}
			t.Labels = append([]uuid.UUID{}, *in.Labels...)
			changes = append(changes, "labels")
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Tasks().Replace(ctx, t); err != nil {
			return err
		}
		if err := tx.applyTask(ctx, p, before, t); err != nil {
			return err
		}
		return tx.commit(ctx, p, actor, taskRef(t), activity.TaskUpdated, activity.Changes(changes...))
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SetTaskAssignees replaces the assignee set.
func (s *BoardService) SetTaskAssignees(ctx context.Context, actor, taskID uuid.UUID, assignees []uuid.UUID) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, taskID, TaskUpdate{Assignees: &assignees})
}

// SetTaskLabels replaces the label set.
func (s *BoardService) SetTaskLabels(ctx context.Context, actor, taskID uuid.UUID, labels []uuid.UUID) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, taskID, TaskUpdate{Labels: &labels})
}

// MoveTask moves a task to index in the target column, which may be the
// task's own column. ordering.Append and indexes past the end place the
// task last.
func (s *BoardService) MoveTask(ctx context.Context, actor, taskID, targetColumnID uuid.UUID, index int) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, "MoveTask", func(ctx context.Context, tx *boardTx) error {
		t, p, err := tx.writableTask(ctx, actor, taskID)
		if err != nil {
			return err
		}
		dst, err := tx.column(ctx, targetColumnID)
		if err != nil {
			return err
		}
		task = t
		return tx.moveTask(ctx, actor, p, t, dst, index)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ReorderTask moves a task within its own column.
func (s *BoardService) ReorderTask(ctx context.Context, actor, columnID, taskID uuid.UUID, index int) ([]uuid.UUID, error) {
	var order []uuid.UUID
	err := s.run(ctx, "ReorderTask", func(ctx context.Context, tx *boardTx) error {
		c, err := tx.column(ctx, columnID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		t, err := tx.task(ctx, taskID)
		if err != nil {
			return err
		}
		if t.ColumnID != c.ID {
			return apperror.New(apperror.KindNotInList, "", "task %s is not in column %s", t.ID, c.ID)
		}
		if err := tx.moveTask(ctx, actor, p, t, c, index); err != nil {
			return err
		}
		order = c.TaskOrder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// moveTask rewrites the affected taskOrder lists and records TASK_MOVED.
// On return dst reflects the committed order.
func (tx *boardTx) moveTask(ctx context.Context, actor uuid.UUID, p *models.Project, t *models.Task, dst *models.Column, index int) error {
	if dst.ProjectID != t.ProjectID {
		return apperror.NewValidation("", "columnId", "target column belongs to another project")
	}

	if dst.ID == t.ColumnID {
		to, err := ordering.MoveIndex(index, len(dst.TaskOrder)-1)
		if err != nil {
			return err
		}
		order, from, at, err := ordering.Reorder(dst.TaskOrder, t.ID, to)
		if err != nil {
			return err
		}
		dst.TaskOrder = order
		if err := tx.Columns().Replace(ctx, dst); err != nil {
			return err
		}
		return tx.commit(ctx, p, actor, taskRef(t), activity.TaskMoved, activity.Moved(dst.ID, dst.ID, from, at))
	}

	src, err := tx.column(ctx, t.ColumnID)
	if err != nil {
		return err
	}
	srcOrder, dstOrder, from, to, err := ordering.Move(src.TaskOrder, dst.TaskOrder, t.ID, index)
	if err != nil {
		return err
	}
	src.TaskOrder, dst.TaskOrder = srcOrder, dstOrder
	if err := tx.Columns().Replace(ctx, src); err != nil {
		return err
	}
	if err := tx.Columns().Replace(ctx, dst); err != nil {
		return err
	}
	before := t.Clone()
	t.ColumnID = dst.ID
	if err := tx.Tasks().Replace(ctx, t); err != nil {
		return err
	}
	if err := tx.applyTask(ctx, p, before, t); err != nil {
		return err
	}
	return tx.commit(ctx, p, actor, taskRef(t), activity.TaskMoved, activity.Moved(src.ID, dst.ID, from, to))
}

// AssignTask adds one project member to the assignee set.
func (s *BoardService) AssignTask(ctx context.Context, actor, taskID, userID uuid.UUID) (*models.Task, error) {
	return s.editTaskSet(ctx, "AssignTask", actor, taskID, func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error) {
		if err := checkAssignees(p, []uuid.UUID{userID}); err != nil {
			return "", nil, err
		}
		set, _, err := ordering.Insert(t.Assignees, userID, ordering.Append)
		if err != nil {
			return "", nil, apperror.NewValidation("", "assignees", "user is already assigned")
		}
		t.Assignees = set
		return activity.TaskAssigned, activity.Details{activity.KeyUserID: userID.String()}, nil
	})
}

// UnassignTask removes a user from the assignee set.
func (s *BoardService) UnassignTask(ctx context.Context, actor, taskID, userID uuid.UUID) (*models.Task, error) {
	return s.editTaskSet(ctx, "UnassignTask", actor, taskID, func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error) {
		set, _, err := ordering.Remove(t.Assignees, userID)
		if err != nil {
			return "", nil, err
		}
		t.Assignees = set
		return activity.TaskUnassigned, activity.Details{activity.KeyUserID: userID.String()}, nil
	})
}

// LabelTask attaches a label of the same project.
func (s *BoardService) LabelTask(ctx context.Context, actor, taskID, labelID uuid.UUID) (*models.Task, error) {
	return s.editTaskSet(ctx, "LabelTask", actor, taskID, func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error) {
		if err := tx.checkLabels(ctx, p, []uuid.UUID{labelID}); err != nil {
			return "", nil, err
		}
		set, _, err := ordering.Insert(t.Labels, labelID, ordering.Append)
		if err != nil {
			return "", nil, apperror.NewValidation("", "labels", "label is already attached")
		}
		t.Labels = set
		return activity.TaskLabeled, activity.Details{activity.KeyLabelID: labelID.String()}, nil
	})
}

// UnlabelTask detaches a label.
func (s *BoardService) UnlabelTask(ctx context.Context, actor, taskID, labelID uuid.UUID) (*models.Task, error) {
	return s.editTaskSet(ctx, "UnlabelTask", actor, taskID, func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error) {
		set, _, err := ordering.Remove(t.Labels, labelID)
		if err != nil {
			return "", nil, err
		}
		t.Labels = set
		return activity.TaskUnlabeled, activity.Details{activity.KeyLabelID: labelID.String()}, nil
	})
}

// ToggleChecklistItem sets the done flag of one checklist item.
func (s *BoardService) ToggleChecklistItem(ctx context.Context, actor, taskID uuid.UUID, checklist, item int, done bool) (*models.Task, error) {
	return s.editTaskSet(ctx, "ToggleChecklistItem", actor, taskID, func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error) {
		if checklist < 0 || checklist >= len(t.Checklists) {
			return "", nil, apperror.New(apperror.KindIndexOutOfRange, "", "checklist %d outside [0, %d)", checklist, len(t.Checklists))
		}
		items := t.Checklists[checklist].Items
		if item < 0 || item >= len(items) {
			return "", nil, apperror.New(apperror.KindIndexOutOfRange, "", "item %d outside [0, %d)", item, len(items))
		}
		items[item].Done = done
		return activity.TaskUpdated, activity.Changes("checklists"), nil
	})
}

// editTaskSet runs a single-field task edit that leaves the stats alone.
func (s *BoardService) editTaskSet(ctx context.Context, op string, actor, taskID uuid.UUID,
	edit func(ctx context.Context, tx *boardTx, p *models.Project, t *models.Task) (activity.Action, activity.Details, error),
) (*models.Task, error) {
	var task *models.Task
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		t, p, err := tx.writableTask(ctx, actor, taskID)
		if err != nil {
			return err
		}
		action, details, err := edit(ctx, tx, p, t)
		if err != nil {
			return err
		}
		if err := tx.Tasks().Replace(ctx, t); err != nil {
			return err
		}
		task = t
		return tx.commit(ctx, p, actor, taskRef(t), action, details)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask deletes a task with its comments. Allowed for the project
// owner and the task creator.
func (s *BoardService) DeleteTask(ctx context.Context, actor, taskID uuid.UUID) error {
	return s.run(ctx, "DeleteTask", func(ctx context.Context, tx *boardTx) error {
		t, p, err := tx.writableTask(ctx, actor, taskID)
		if err != nil {
			return err
		}
		if actor != p.OwnerID && actor != t.CreatorID {
			return apperror.NewForbidden("", "only the project owner or the task creator can delete a task")
		}
		if err := tx.deleteTaskCascade(ctx, p, t); err != nil {
			return err
		}
		return tx.commit(ctx, p, actor, taskRef(t), activity.TaskDeleted, activity.Details{
			activity.KeyTitle:    t.Title,
			activity.KeyColumnID: t.ColumnID.String(),
		})
	})
}
