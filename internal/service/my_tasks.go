// internal/service/my_tasks.go
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/stats"
)

// MyTasksFilter narrows the "My Tasks" view. DueFrom is inclusive and
// DueTo exclusive. ThisWeek overrides both with the current Monday-based
// UTC week.
type MyTasksFilter struct {
	ProjectIDs  []uuid.UUID
	LabelID     *uuid.UUID
	DueFrom     *time.Time
	DueTo       *time.Time
	OverdueOnly bool
	ThisWeek    bool
}

func weekBounds(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// ListMyTasks returns the tasks assigned to userID, earliest due date
// first, undated tasks last, ties broken by creation time. Users can only
// list their own tasks.
func (s *BoardService) ListMyTasks(ctx context.Context, actor, userID uuid.UUID, f MyTasksFilter) ([]*models.Task, error) {
	const op = "ListMyTasks"
	if actor != userID {
		return nil, translate(op, apperror.NewForbidden("", "users can only list their own tasks"))
	}
	if f.DueFrom != nil && f.DueTo != nil && !f.DueFrom.Before(*f.DueTo) {
		return nil, apperror.NewValidation(op, "dueTo", "dueTo must be after dueFrom")
	}

	filter := repository.TaskFilter{ProjectIDs: f.ProjectIDs, LabelID: f.LabelID, DueFrom: f.DueFrom, DueTo: f.DueTo}
	var out []*models.Task
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		if f.ThisWeek {
			from, to := weekBounds(tx.now)
			filter.DueFrom, filter.DueTo = &from, &to
		}
		tasks, err := tx.Tasks().ListByAssignee(ctx, userID, filter)
		if err != nil {
			return err
		}

		projects := map[uuid.UUID]*models.Project{}
		out = out[:0]
		for _, t := range tasks {
			p, ok := projects[t.ProjectID]
			if !ok {
				p, err = tx.Projects().Get(ctx, t.ProjectID)
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
				projects[t.ProjectID] = p
			}
			if p == nil || !p.Members.Has(userID) {
				continue
			}
			if f.OverdueOnly && !stats.Overdue(t, p.DoneColumnID, tx.now) {
				continue
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if out == nil {
		out = []*models.Task{}
	}
	return out, nil
}
