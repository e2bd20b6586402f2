// internal/models/board.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// Column is an ordered stage of a project.
type Column struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	ProjectID uuid.UUID   `json:"projectId"`
	TaskOrder []uuid.UUID `json:"taskOrder"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (c *Column) DocumentID() uuid.UUID   { return c.ID }
func (c *Column) Revision() time.Time     { return c.UpdatedAt }
func (c *Column) SetRevision(t time.Time) { c.UpdatedAt = t }
func (c *Column) Clone() *Column {
	v := *c
	v.TaskOrder = cloneIDs(c.TaskOrder)
	return &v
}

// ChecklistItem is a single checkable line.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Checklist is an embedded, titled list of items.
type Checklist struct {
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

// Task is the unit of work; it sits in exactly one column.
type Task struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ProjectID   uuid.UUID   `json:"projectId"`
	ColumnID    uuid.UUID   `json:"columnId"`
	CreatorID   uuid.UUID   `json:"creatorId"`
	Assignees   []uuid.UUID `json:"assignees"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Labels      []uuid.UUID `json:"labels"`
	Checklists  []Checklist `json:"checklists"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// IsOverdue reports whether the task is past due at now. Column placement
// is not considered here.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

func (t *Task) DocumentID() uuid.UUID    { return t.ID }
func (t *Task) Revision() time.Time      { return t.UpdatedAt }
func (t *Task) SetRevision(ts time.Time) { t.UpdatedAt = ts }
func (t *Task) Clone() *Task {
	v := *t
	v.Assignees = cloneIDs(t.Assignees)
	v.Labels = cloneIDs(t.Labels)
	v.DueDate = cloneTime(t.DueDate)
	v.Checklists = CloneChecklists(t.Checklists)
	return &v
}

// CloneChecklists deep-copies a checklist slice.
func CloneChecklists(in []Checklist) []Checklist {
	out := make([]Checklist, len(in))
	for i, cl := range in {
		out[i] = Checklist{Title: cl.Title, Items: append([]ChecklistItem{}, cl.Items...)}
	}
	return out
}

// Label is a project-scoped colored tag.
type Label struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"projectId"`
	Text      string    `json:"text"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l *Label) DocumentID() uuid.UUID   { return l.ID }
func (l *Label) Revision() time.Time     { return l.UpdatedAt }
func (l *Label) SetRevision(t time.Time) { l.UpdatedAt = t }
func (l *Label) Clone() *Label {
	v := *l
	return &v
}

// Comment is a user's note on a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"taskId"`
	ProjectID uuid.UUID `json:"projectId"`
	UserID    uuid.UUID `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) DocumentID() uuid.UUID   { return c.ID }
func (c *Comment) Revision() time.Time     { return c.UpdatedAt }
func (c *Comment) SetRevision(t time.Time) { c.UpdatedAt = t }
func (c *Comment) Clone() *Comment {
	v := *c
	return &v
}

// Activity is an append-only audit record scoped to a project. Seq is
// assigned per project and strictly increases.
type Activity struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"projectId"`
	TaskID    *uuid.UUID       `json:"taskId,omitempty"`
	UserID    uuid.UUID        `json:"userId"`
	Action    activity.Action  `json:"action"`
	Details   activity.Details `json:"details"`
	Seq       int64            `json:"seq"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func (a *Activity) DocumentID() uuid.UUID   { return a.ID }
func (a *Activity) Revision() time.Time     { return a.UpdatedAt }
func (a *Activity) SetRevision(t time.Time) { a.UpdatedAt = t }
func (a *Activity) Clone() *Activity {
	v := *a
	if a.TaskID != nil {
		id := *a.TaskID
		v.TaskID = &id
	}
	v.Details = a.Details.Clone()
	return &v
}
