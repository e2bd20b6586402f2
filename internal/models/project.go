// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectArchived  ProjectStatus = "ARCHIVED"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

// TaskStats is the per-project counter block kept in sync with live tasks.
type TaskStats struct {
	Total    int               `json:"total"`
	ByColumn map[uuid.UUID]int `json:"byColumn"`
	Overdue  int               `json:"overdue"`
}

// NewTaskStats returns zeroed stats.
func NewTaskStats() TaskStats {
	return TaskStats{ByColumn: map[uuid.UUID]int{}}
}

// Clone returns an independent copy.
func (s TaskStats) Clone() TaskStats {
	c := TaskStats{Total: s.Total, Overdue: s.Overdue, ByColumn: make(map[uuid.UUID]int, len(s.ByColumn))}
	for k, v := range s.ByColumn {
		c.ByColumn[k] = v
	}
	return c
}

// Equal compares two stats blocks; zero column counts are ignored.
func (s TaskStats) Equal(o TaskStats) bool {
	if s.Total != o.Total || s.Overdue != o.Overdue {
		return false
	}
	for k, v := range s.ByColumn {
		if o.ByColumn[k] != v {
			return false
		}
	}
	for k, v := range o.ByColumn {
		if s.ByColumn[k] != v {
			return false
		}
	}
	return true
}

// Project is a board inside a workspace.
type Project struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	WorkspaceID  uuid.UUID     `json:"workspaceId"`
	OwnerID      uuid.UUID     `json:"ownerId"`
	Members      Members       `json:"members"`
	Status       ProjectStatus `json:"status"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
	ColumnOrder  []uuid.UUID   `json:"columnOrder"`
	DoneColumnID *uuid.UUID    `json:"doneColumnId,omitempty"`
	TaskStats    TaskStats     `json:"taskStats"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// IsDoneColumn reports whether columnID is the designated done column.
func (p *Project) IsDoneColumn(columnID uuid.UUID) bool {
	return p.DoneColumnID != nil && *p.DoneColumnID == columnID
}

func (p *Project) DocumentID() uuid.UUID   { return p.ID }
func (p *Project) Revision() time.Time     { return p.UpdatedAt }
func (p *Project) SetRevision(t time.Time) { p.UpdatedAt = t }
func (p *Project) Clone() *Project {
	c := *p
	c.Members = p.Members.Clone()
	c.ColumnOrder = cloneIDs(p.ColumnOrder)
	c.TaskStats = p.TaskStats.Clone()
	c.Deadline = cloneTime(p.Deadline)
	if p.DoneColumnID != nil {
		id := *p.DoneColumnID
		c.DoneColumnID = &id
	}
	return &c
}

// NewID returns a time-ordered (version 7) id. Ids minted by one process
// sort in creation order, which breaks createdAt ties in listings.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return append(make([]uuid.UUID, 0, len(ids)), ids...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
