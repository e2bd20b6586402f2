// internal/service/integrity.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/stats"
)

// IntegrityReport lists the board invariants a project currently violates.
type IntegrityReport struct {
	ProjectID  uuid.UUID        `json:"projectId"`
	Violations []string         `json:"violations"`
	StatsDrift []string         `json:"statsDrift"`
	Stored     models.TaskStats `json:"stored"`
	Expected   models.TaskStats `json:"expected"`
}

// OK reports whether no violation and no drift was found.
func (r *IntegrityReport) OK() bool {
	return len(r.Violations) == 0 && len(r.StatsDrift) == 0
}

func (r *IntegrityReport) addf(format string, args ...any) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

// CheckIntegrity inspects one project: ordering lists against live
// columns and tasks, label scoping, membership and the stored stats.
// Callers authorize separately.
func (s *BoardService) CheckIntegrity(ctx context.Context, projectID uuid.UUID) (*IntegrityReport, error) {
	var report *IntegrityReport
	err := s.run(ctx, "CheckIntegrity", func(ctx context.Context, tx *boardTx) error {
		p, err := tx.project(ctx, projectID)
		if err != nil {
			return err
		}
		columns, err := tx.Columns().ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		labels, err := tx.Labels().ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		r := &IntegrityReport{ProjectID: p.ID, Violations: []string{}, StatsDrift: []string{}}
		tx.checkMembers(ctx, r, p)
		checkBoard(r, p, columns, tasks, labels)

		r.Stored = p.TaskStats.Clone()
		r.Expected = stats.Compute(p.ColumnOrder, tasks, p.DoneColumnID, tx.now)
		if drift := stats.Drift(r.Stored, r.Expected); drift != nil {
			r.StatsDrift = drift
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (tx *boardTx) checkMembers(ctx context.Context, r *IntegrityReport, p *models.Project) {
	if p.Members.Owners() != 1 {
		r.addf("project has %d owners", p.Members.Owners())
	}
	if role, ok := p.Members.RoleOf(p.OwnerID); !ok || role != models.RoleOwner {
		r.addf("owner %s is not an OWNER member", p.OwnerID)
	}
	for _, m := range p.Members {
		if _, err := tx.Users().Get(ctx, m.UserID); errors.Is(err, repository.ErrNotFound) {
			r.addf("member %s does not exist", m.UserID)
		}
	}
	ws, err := tx.Workspaces().Get(ctx, p.WorkspaceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.addf("workspace %s does not exist", p.WorkspaceID)
	case err == nil && !ws.Members.Has(p.OwnerID):
		r.addf("owner %s is not a workspace member", p.OwnerID)
	}
}

func checkBoard(r *IntegrityReport, p *models.Project, columns []*models.Column, tasks []*models.Task, labels []*models.Label) {
	for _, id := range ordering.Duplicates(p.ColumnOrder) {
		r.addf("column %s listed more than once", id)
	}
	colByID := make(map[uuid.UUID]*models.Column, len(columns))
	for _, c := range columns {
		colByID[c.ID] = c
		if !ordering.Contains(p.ColumnOrder, c.ID) {
			r.addf("column %s missing from columnOrder", c.ID)
		}
	}
	for _, id := range p.ColumnOrder {
		if _, ok := colByID[id]; !ok {
			r.addf("columnOrder references missing column %s", id)
		}
	}
	if p.DoneColumnID != nil && !ordering.Contains(p.ColumnOrder, *p.DoneColumnID) {
		r.addf("done column %s is not on the board", *p.DoneColumnID)
	}

	taskByID := make(map[uuid.UUID]*models.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}
	seen := make(map[uuid.UUID]int, len(tasks))
	for _, c := range columns {
		for _, id := range ordering.Duplicates(c.TaskOrder) {
			r.addf("task %s listed more than once in column %s", id, c.ID)
		}
		for _, id := range c.TaskOrder {
			seen[id]++
			t, ok := taskByID[id]
			switch {
			case !ok:
				r.addf("column %s references missing task %s", c.ID, id)
			case t.ColumnID != c.ID:
				r.addf("task %s listed in column %s but points at %s", id, c.ID, t.ColumnID)
			}
		}
	}

	labelIDs := make(map[uuid.UUID]bool, len(labels))
	for _, l := range labels {
		labelIDs[l.ID] = true
	}
	for _, t := range tasks {
		if n := seen[t.ID]; n != 1 {
			r.addf("task %s appears in %d column lists", t.ID, n)
		}
		for _, id := range t.Labels {
			if !labelIDs[id] {
				r.addf("task %s references foreign or missing label %s", t.ID, id)
			}
		}
		for _, id := range t.Assignees {
			if !p.Members.Has(id) {
				r.addf("task %s assigned to non-member %s", t.ID, id)
			}
		}
	}
}

// RecomputeTaskStats replaces the stored stats with a full derivation
// from live tasks. It reports whether the stored value changed.
func (s *BoardService) RecomputeTaskStats(ctx context.Context, projectID uuid.UUID) (bool, error) {
	changed := false
	err := s.run(ctx, "RecomputeTaskStats", func(ctx context.Context, tx *boardTx) error {
		changed = false
		p, err := tx.project(ctx, projectID)
		if err != nil {
			return err
		}
		tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		expected := stats.Compute(p.ColumnOrder, tasks, p.DoneColumnID, tx.now)
		if p.TaskStats.Equal(expected) {
			return nil
		}
		s.log.Warn("task stats drift repaired", "project", p.ID, "fields", stats.Drift(p.TaskStats, expected))
		p.TaskStats = expected
		changed = true
		tx.workspaces[p.WorkspaceID] = struct{}{}
		return tx.Projects().Replace(ctx, p)
	})
	return changed, err
}

// ProjectIDs lists every project id in the store, for maintenance jobs.
func (s *BoardService) ProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.run(ctx, "ProjectIDs", func(ctx context.Context, tx *boardTx) error {
		var err error
		ids, err = tx.Projects().ListIDs(ctx)
		return err
	})
	return ids, err
}

// RefreshOverdue recomputes the overdue figure of every project, one unit
// per project, and returns how many were updated.
func (s *BoardService) RefreshOverdue(ctx context.Context) (int, error) {
	ids, err := s.ProjectIDs(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		changed := false
		err := s.run(ctx, "RefreshOverdue", func(ctx context.Context, tx *boardTx) error {
			changed = false
			p, err := tx.Projects().Get(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
			if err != nil {
				return err
			}
			before := p.TaskStats.Overdue
			stats.RecomputeOverdue(&p.TaskStats, tasks, p.DoneColumnID, tx.now)
			if p.TaskStats.Overdue == before {
				return nil
			}
			changed = true
			tx.workspaces[p.WorkspaceID] = struct{}{}
			return tx.Projects().Replace(ctx, p)
		})
		if err != nil {
			s.log.Warn("overdue refresh failed", "project", id, "error", err)
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}
