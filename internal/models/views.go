// internal/models/views.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectOverview is the list projection of a project.
type ProjectOverview struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Status      ProjectStatus `json:"status"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	MemberCount int           `json:"memberCount"`
	TaskStats   TaskStats     `json:"taskStats"`
}

// Overview projects p.
func (p *Project) Overview() ProjectOverview {
	return ProjectOverview{
		ID:          p.ID,
		Name:        p.Name,
		Status:      p.Status,
		Deadline:    cloneTime(p.Deadline),
		MemberCount: len(p.Members),
		TaskStats:   p.TaskStats.Clone(),
	}
}

// ColumnDetail is a column with its tasks in board order.
type ColumnDetail struct {
	Column *Column `json:"column"`
	Tasks  []*Task `json:"tasks"`
}

// ProjectDetail bundles a project with its ordered board.
type ProjectDetail struct {
	Project *Project       `json:"project"`
	Columns []ColumnDetail `json:"columns"`
	Labels  []*Label       `json:"labels"`
}
