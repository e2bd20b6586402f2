// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("optimistic concurrency conflict")
	ErrDuplicateKey = errors.New("duplicate key violation")
)

// Store opens units of work.
type Store interface {
	// WithinUnit runs fn inside one unit of work. Writes made through the
	// Unit take effect together when fn returns nil and not at all
	// otherwise. A cancelled ctx aborts before commit.
	WithinUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
	Close() error
}

// Unit exposes the per-entity repositories bound to one unit of work.
type Unit interface {
	Users() UserRepository
	Workspaces() WorkspaceRepository
	Projects() ProjectRepository
	Columns() ColumnRepository
	Tasks() TaskRepository
	Labels() LabelRepository
	Comments() CommentRepository
	Activities() ActivityRepository
}

// Replace is optimistic on every repository: the document's Revision must
// equal the stored one, otherwise ErrConflict. On success the store writes
// a strictly newer revision back into the document. Delete is optimistic
// the same way.

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Replace(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, u *models.User) error
}

type WorkspaceRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error)
	Create(ctx context.Context, w *models.Workspace) error
	Replace(ctx context.Context, w *models.Workspace) error
	Delete(ctx context.Context, w *models.Workspace) error
}

type ProjectRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Create(ctx context.Context, p *models.Project) error
	Replace(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, p *models.Project) error
	DeleteAllByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error)
}

type ColumnRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Column, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Column, error)
	Create(ctx context.Context, c *models.Column) error
	Replace(ctx context.Context, c *models.Column) error
	Delete(ctx context.Context, c *models.Column) error
	DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error)
}

// TaskFilter narrows task lookups. Zero values do not filter.
type TaskFilter struct {
	ProjectIDs []uuid.UUID
	LabelID    *uuid.UUID
	DueFrom    *time.Time // inclusive
	DueTo      *time.Time // exclusive
}

type TaskRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
	ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error)
	ListByDueRange(ctx context.Context, from, to time.Time) ([]*models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Replace(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, t *models.Task) error
	DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error)
	DeleteAllByColumn(ctx context.Context, columnID uuid.UUID) (int, error)
	// ReassignCreator rewrites the creator of every task created by from.
	ReassignCreator(ctx context.Context, from, to uuid.UUID) (int, error)
}

type LabelRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Label, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Label, error)
	Create(ctx context.Context, l *models.Label) error
	Replace(ctx context.Context, l *models.Label) error
	Delete(ctx context.Context, l *models.Label) error
	DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error)
}

type CommentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) error
	Delete(ctx context.Context, c *models.Comment) error
	DeleteAllByTask(ctx context.Context, taskID uuid.UUID) (int, error)
	DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error)
	// ReassignUser rewrites the author of every comment by from to to.
	ReassignUser(ctx context.Context, from, to uuid.UUID) (int, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, a *models.Activity) error
	// ListByProject returns activities newest first. beforeSeq > 0 limits
	// the page to activities with a smaller seq.
	ListByProject(ctx context.Context, projectID uuid.UUID, beforeSeq int64, limit int) ([]*models.Activity, error)
	// Last returns the newest activity of the project, or ErrNotFound.
	Last(ctx context.Context, projectID uuid.UUID) (*models.Activity, error)
	DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error)
	ReassignUser(ctx context.Context, from, to uuid.UUID) (int, error)
}

// NextRevision returns the token a replaced document receives: now, or one
// millisecond past the previous token when the clock has not advanced.
func NextRevision(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(time.Millisecond)
	if floor := prev.Add(time.Millisecond); now.Before(floor) {
		return floor
	}
	return now
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// matches applies the filter to a task already selected by assignee.
func (f TaskFilter) matches(t *models.Task) bool {
	if len(f.ProjectIDs) > 0 && !containsID(f.ProjectIDs, t.ProjectID) {
		return false
	}
	if f.LabelID != nil && !containsID(t.Labels, *f.LabelID) {
		return false
	}
	if f.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueFrom)) {
		return false
	}
	if f.DueTo != nil && (t.DueDate == nil || !t.DueDate.Before(*f.DueTo)) {
		return false
	}
	return true
}
