// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/repository"
	"github.com/gurkanbulca/kanboard/internal/stats"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// OverviewCache caches the project overviews of a workspace. Entries are
// versioned per workspace: GetOverviews reports the version it looked
// under, a miss is filled at that version, and InvalidateWorkspace moves to
// a new one.
type OverviewCache interface {
	GetOverviews(ctx context.Context, workspaceID uuid.UUID) ([]models.ProjectOverview, int64, bool, error)
	SetOverviews(ctx context.Context, workspaceID uuid.UUID, version int64, overviews []models.ProjectOverview) error
	InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error
}

type nopCache struct{}

func (nopCache) GetOverviews(context.Context, uuid.UUID) ([]models.ProjectOverview, int64, bool, error) {
	return nil, 0, false, nil
}

func (nopCache) SetOverviews(context.Context, uuid.UUID, int64, []models.ProjectOverview) error {
	return nil
}

func (nopCache) InvalidateWorkspace(context.Context, uuid.UUID) error { return nil }

// BoardService is the façade through which every board mutation flows.
// Each public operation runs in one unit of work and is retried on
// optimistic conflicts up to MaxRetries times.
type BoardService struct {
	store repository.Store
	opts  Options
	log   *slog.Logger
	cache OverviewCache
	loads singleflight.Group
}

func NewBoardService(store repository.Store, opts Options) *BoardService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.DefaultActivityLimit < 1 {
		opts.DefaultActivityLimit = 50
	}
	if opts.MaxActivityLimit < opts.DefaultActivityLimit {
		opts.MaxActivityLimit = opts.DefaultActivityLimit
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = nopCache{}
	}
	return &BoardService{store: store, opts: opts, log: logger.With("component", "board"), cache: cache}
}

func (s *BoardService) now() time.Time {
	return s.opts.Clock().UTC().Truncate(time.Millisecond)
}

// boardTx is the per-attempt view of a unit of work.
type boardTx struct {
	repository.Unit
	now        time.Time
	workspaces map[uuid.UUID]struct{}
	deleted    []uuid.UUID
}

// run executes fn in a unit of work, retrying on optimistic conflicts.
func (s *BoardService) run(ctx context.Context, op string, fn func(ctx context.Context, tx *boardTx) error) error {
	for attempt := 1; ; attempt++ {
		tx := &boardTx{now: s.now(), workspaces: map[uuid.UUID]struct{}{}}
		err := s.store.WithinUnit(ctx, func(ctx context.Context, u repository.Unit) error {
			tx.Unit = u
			return fn(ctx, tx)
		})
		if err == nil {
			s.afterCommit(ctx, op, tx)
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return translate(op, err)
		}
		if attempt >= s.opts.MaxRetries {
			s.log.Warn("optimistic retries exhausted", "op", op, "attempts", attempt)
			return apperror.Wrap(apperror.KindConflict, op, err)
		}
		s.log.Debug("retrying after conflict", "op", op, "attempt", attempt)
	}
}

func (s *BoardService) afterCommit(ctx context.Context, op string, tx *boardTx) {
	for id := range tx.workspaces {
		if err := s.cache.InvalidateWorkspace(ctx, id); err != nil {
			s.log.Warn("overview cache invalidation failed", "op", op, "workspace", id, "error", err)
		}
	}
	for _, id := range tx.deleted {
		s.log.Info("project deleted", "action", activity.ProjectDeleted, "project", id)
	}
}

// translate maps store errors onto board error kinds.
func translate(op string, err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		if appErr.Op == "" {
			appErr.Op = op
		}
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return &apperror.Error{Kind: apperror.KindNotFound, Op: op, Err: err}
	case errors.Is(err, repository.ErrDuplicateKey):
		return &apperror.Error{Kind: apperror.KindDuplicateEmail, Op: op, Field: "email", Message: "email already registered", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperror.Wrap(apperror.KindInternal, op, err)
	}
}

func notFound(entity string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &apperror.Error{Kind: apperror.KindNotFound, Message: entity + " not found", Err: err}
	}
	return err
}

func (tx *boardTx) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := tx.Users().Get(ctx, id)
	return u, notFound("user", err)
}

func (tx *boardTx) workspace(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	w, err := tx.Workspaces().Get(ctx, id)
	return w, notFound("workspace", err)
}

func (tx *boardTx) project(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := tx.Projects().Get(ctx, id)
	return p, notFound("project", err)
}

func (tx *boardTx) column(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	c, err := tx.Columns().Get(ctx, id)
	return c, notFound("column", err)
}

func (tx *boardTx) task(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := tx.Tasks().Get(ctx, id)
	return t, notFound("task", err)
}

func (tx *boardTx) label(ctx context.Context, id uuid.UUID) (*models.Label, error) {
	l, err := tx.Labels().Get(ctx, id)
	return l, notFound("label", err)
}

// memberProject loads a project the actor belongs to.
func (tx *boardTx) memberProject(ctx context.Context, actor, id uuid.UUID) (*models.Project, error) {
	p, err := tx.project(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Members.Has(actor) {
		return nil, apperror.NewForbidden("", "not a member of this project")
	}
	return p, nil
}

// writableProject additionally rejects archived projects.
func (tx *boardTx) writableProject(ctx context.Context, actor, id uuid.UUID) (*models.Project, error) {
	p, err := tx.memberProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.ProjectArchived {
		return nil, apperror.New(apperror.KindProjectArchived, "", "project %s is archived", p.ID)
	}
	return p, nil
}

func (tx *boardTx) memberWorkspace(ctx context.Context, actor, id uuid.UUID) (*models.Workspace, error) {
	w, err := tx.workspace(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Members.Has(actor) {
		return nil, apperror.NewForbidden("", "not a member of this workspace")
	}
	return w, nil
}

// commit persists the project document and appends one activity. Every
// board mutation goes through here, which makes the project document the
// serialization point for the board and its activity stream.
func (tx *boardTx) commit(ctx context.Context, p *models.Project, actor uuid.UUID, taskID *uuid.UUID, action activity.Action, details activity.Details) error {
	if err := tx.Projects().Replace(ctx, p); err != nil {
		return err
	}
	tx.workspaces[p.WorkspaceID] = struct{}{}
	return tx.emit(ctx, p.ID, actor, taskID, action, details)
}

func (tx *boardTx) emit(ctx context.Context, projectID, actor uuid.UUID, taskID *uuid.UUID, action activity.Action, details activity.Details) error {
	seq, created := int64(1), tx.now
	last, err := tx.Activities().Last(ctx, projectID)
	switch {
	case err == nil:
		seq = last.Seq + 1
		if last.CreatedAt.After(created) {
			created = last.CreatedAt
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("load last activity: %w", err)
	}
	if details == nil {
		details = activity.Details{}
	}
	a := &models.Activity{
		ID:        models.NewID(),
		ProjectID: projectID,
		TaskID:    taskID,
		UserID:    actor,
		Action:    action,
		Details:   details,
		Seq:       seq,
		CreatedAt: created,
		UpdatedAt: created,
	}
	return tx.Activities().Create(ctx, a)
}

// applyTask folds one task transition into p's counters. The unit must
// already hold the task write.
func (tx *boardTx) applyTask(ctx context.Context, p *models.Project, before, after *models.Task) error {
	stats.Apply(&p.TaskStats, before, after)
	return tx.recountOverdue(ctx, p)
}

// recountOverdue refreshes the overdue figure from the unit's view of the
// project's tasks.
func (tx *boardTx) recountOverdue(ctx context.Context, p *models.Project) error {
	tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list project tasks: %w", err)
	}
	stats.RecomputeOverdue(&p.TaskStats, tasks, p.DoneColumnID, tx.now)
	return nil
}

func taskRef(t *models.Task) *uuid.UUID {
	id := t.ID
	return &id
}
