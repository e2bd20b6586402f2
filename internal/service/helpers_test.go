// internal/service/helpers_test.go
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/repository"
)

// testClock is a settable clock shared by the store and the service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestHelpers wires a board service over an in-memory store.
type TestHelpers struct {
	t     *testing.T
	ctx   context.Context
	store *repository.MemoryStore
	svc   *BoardService
	clock *testClock
}

// NewTestHelpers creates a new test helper instance
func NewTestHelpers(t *testing.T, mutate ...func(*Options)) *TestHelpers {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore(repository.WithMemoryClock(clock.Now))
	opts := DefaultOptions()
	opts.Clock = clock.Now
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, m := range mutate {
		m(&opts)
	}
	return &TestHelpers{t: t, ctx: context.Background(), store: store, svc: NewBoardService(store, opts), clock: clock}
}

// wrapStore rebuilds the service over wrap(store) with the same options.
// Reads through h.read still go to the underlying memory store.
func (h *TestHelpers) wrapStore(wrap func(repository.Store) repository.Store) {
	h.svc = NewBoardService(wrap(h.store), h.svc.opts)
}

// CreateTestUser registers a user with a throwaway hash.
func (h *TestHelpers) CreateTestUser(name string) *models.User {
	h.t.Helper()
	u, err := h.svc.RegisterUser(h.ctx, name, name+"@example.com", []byte("hash"))
	require.NoError(h.t, err)
	return u
}

// CreateWorkspace creates a workspace owned by owner with extra members.
func (h *TestHelpers) CreateWorkspace(owner *models.User, members ...*models.User) *models.Workspace {
	h.t.Helper()
	ws, err := h.svc.CreateWorkspace(h.ctx, owner.ID, "Workspace of "+owner.Name)
	require.NoError(h.t, err)
	for _, m := range members {
		_, err := h.svc.AddMember(h.ctx, owner.ID, WorkspaceScope(ws.ID), m.Email, models.RoleMember)
		require.NoError(h.t, err)
	}
	return ws
}

// CreateProject creates a project with the default columns and adds
// members to it.
func (h *TestHelpers) CreateProject(owner *models.User, ws *models.Workspace, members ...*models.User) *models.Project {
	h.t.Helper()
	p, err := h.svc.CreateProject(h.ctx, owner.ID, ws.ID, ProjectInput{Name: "Board"})
	require.NoError(h.t, err)
	for _, m := range members {
		_, err := h.svc.AddMember(h.ctx, owner.ID, ProjectScope(p.ID), m.Email, models.RoleMember)
		require.NoError(h.t, err)
	}
	return h.Project(p.ID)
}

// CreateTask creates a titled task in the column.
func (h *TestHelpers) CreateTask(actor *models.User, columnID uuid.UUID, title string) *models.Task {
	h.t.Helper()
	task, err := h.svc.CreateTask(h.ctx, actor.ID, columnID, TaskInput{Title: title})
	require.NoError(h.t, err)
	return task
}

// Project reads the committed project document.
func (h *TestHelpers) Project(id uuid.UUID) *models.Project {
	h.t.Helper()
	var p *models.Project
	h.read(func(ctx context.Context, u repository.Unit) (err error) {
		p, err = u.Projects().Get(ctx, id)
		return err
	})
	return p
}

// Column reads the committed column document.
func (h *TestHelpers) Column(id uuid.UUID) *models.Column {
	h.t.Helper()
	var c *models.Column
	h.read(func(ctx context.Context, u repository.Unit) (err error) {
		c, err = u.Columns().Get(ctx, id)
		return err
	})
	return c
}

// Task reads the committed task document.
func (h *TestHelpers) Task(id uuid.UUID) *models.Task {
	h.t.Helper()
	var task *models.Task
	h.read(func(ctx context.Context, u repository.Unit) (err error) {
		task, err = u.Tasks().Get(ctx, id)
		return err
	})
	return task
}

// Activities returns a project's full stream, oldest first.
func (h *TestHelpers) Activities(projectID uuid.UUID) []*models.Activity {
	h.t.Helper()
	var items []*models.Activity
	h.read(func(ctx context.Context, u repository.Unit) (err error) {
		items, err = u.Activities().ListByProject(ctx, projectID, 0, 0)
		return err
	})
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// ColumnIDs returns the project's columns in board order.
func (h *TestHelpers) ColumnIDs(projectID uuid.UUID) []uuid.UUID {
	return h.Project(projectID).ColumnOrder
}

// RequireIntegrity fails the test when the project violates a board
// invariant.
func (h *TestHelpers) RequireIntegrity(projectID uuid.UUID) {
	h.t.Helper()
	report, err := h.svc.CheckIntegrity(h.ctx, projectID)
	require.NoError(h.t, err)
	require.Empty(h.t, report.Violations)
	require.Empty(h.t, report.StatsDrift, "stored %+v expected %+v", report.Stored, report.Expected)
}

func (h *TestHelpers) read(fn func(ctx context.Context, u repository.Unit) error) {
	h.t.Helper()
	require.NoError(h.t, h.store.WithinUnit(h.ctx, fn))
}
