// internal/repository/memory.go
package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/models"
)

type document[T any] interface {
	DocumentID() uuid.UUID
	Revision() time.Time
	SetRevision(time.Time)
	Clone() T
}

type collection[T document[T]] struct {
	name    string
	docs    map[uuid.UUID]T
	created func(T) time.Time
}

func newCollection[T document[T]](name string, created func(T) time.Time) *collection[T] {
	return &collection[T]{name: name, docs: make(map[uuid.UUID]T), created: created}
}

// MemoryStore is an in-process Store. Reads see committed state plus the
// unit's own writes; commit validates the revision of every written
// document under the store lock and applies all writes or none.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	users      *collection[*models.User]
	workspaces *collection[*models.Workspace]
	projects   *collection[*models.Project]
	columns    *collection[*models.Column]
	tasks      *collection[*models.Task]
	labels     *collection[*models.Label]
	comments   *collection[*models.Comment]
	activities *collection[*models.Activity]
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock used for revision tokens.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:        time.Now,
		users:      newCollection("users", func(u *models.User) time.Time { return u.CreatedAt }),
		workspaces: newCollection("workspaces", func(w *models.Workspace) time.Time { return w.CreatedAt }),
		projects:   newCollection("projects", func(p *models.Project) time.Time { return p.CreatedAt }),
		columns:    newCollection("columns", func(c *models.Column) time.Time { return c.CreatedAt }),
		tasks:      newCollection("tasks", func(t *models.Task) time.Time { return t.CreatedAt }),
		labels:     newCollection("labels", func(l *models.Label) time.Time { return l.CreatedAt }),
		comments:   newCollection("comments", func(c *models.Comment) time.Time { return c.CreatedAt }),
		activities: newCollection("activities", func(a *models.Activity) time.Time { return a.CreatedAt }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) WithinUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := &memUnit{
		store:      s,
		users:      newPending(s, s.users),
		workspaces: newPending(s, s.workspaces),
		projects:   newPending(s, s.projects),
		columns:    newPending(s, s.columns),
		tasks:      newPending(s, s.tasks),
		labels:     newPending(s, s.labels),
		comments:   newPending(s, s.comments),
		activities: newPending(s, s.activities),
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.commit()
}

type memUnit struct {
	store *MemoryStore

	users      *pending[*models.User]
	workspaces *pending[*models.Workspace]
	projects   *pending[*models.Project]
	columns    *pending[*models.Column]
	tasks      *pending[*models.Task]
	labels     *pending[*models.Label]
	comments   *pending[*models.Comment]
	activities *pending[*models.Activity]
}

func (u *memUnit) Users() UserRepository           { return memUsers{u.users} }
func (u *memUnit) Workspaces() WorkspaceRepository { return memWorkspaces{u.workspaces} }
func (u *memUnit) Projects() ProjectRepository     { return memProjects{u.projects} }
func (u *memUnit) Columns() ColumnRepository       { return memColumns{u.columns} }
func (u *memUnit) Tasks() TaskRepository           { return memTasks{u.tasks} }
func (u *memUnit) Labels() LabelRepository         { return memLabels{u.labels} }
func (u *memUnit) Comments() CommentRepository     { return memComments{u.comments} }
func (u *memUnit) Activities() ActivityRepository  { return memActivities{u.activities} }

type pendingSet interface {
	validate() error
	apply()
}

func (u *memUnit) commit() error {
	sets := []pendingSet{u.users, u.workspaces, u.projects, u.columns, u.tasks, u.labels, u.comments, u.activities}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, p := range sets {
		if err := p.validate(); err != nil {
			return err
		}
	}
	if err := u.validateEmails(); err != nil {
		return err
	}
	for _, p := range sets {
		p.apply()
	}
	return nil
}

// validateEmails enforces the unique users.email index against the state
// the commit would produce. Caller holds the write lock.
func (u *memUnit) validateEmails() error {
	if len(u.users.writes) == 0 {
		return nil
	}
	seen := make(map[string]uuid.UUID)
	for id, usr := range u.store.users.docs {
		if _, touched := u.users.writes[id]; touched {
			continue
		}
		seen[models.NormalizeEmail(usr.Email)] = id
	}
	for _, id := range u.users.order {
		w := u.users.writes[id]
		if w == nil || w.deleted {
			continue
		}
		key := models.NormalizeEmail(w.doc.Email)
		if other, ok := seen[key]; ok && other != id {
			return fmt.Errorf("users.email %q: %w", key, ErrDuplicateKey)
		}
		seen[key] = id
	}
	return nil
}

type write[T any] struct {
	doc     T
	deleted bool
	create  bool
	checked bool
	base    time.Time
}

type pending[T document[T]] struct {
	store  *MemoryStore
	coll   *collection[T]
	writes map[uuid.UUID]*write[T]
	order  []uuid.UUID
}

func newPending[T document[T]](s *MemoryStore, c *collection[T]) *pending[T] {
	return &pending[T]{store: s, coll: c, writes: make(map[uuid.UUID]*write[T])}
}

func (p *pending[T]) record(id uuid.UUID, w *write[T]) {
	if _, ok := p.writes[id]; !ok {
		p.order = append(p.order, id)
	}
	p.writes[id] = w
}

// lookup returns the unit's view of id without cloning.
func (p *pending[T]) lookup(id uuid.UUID) (T, bool) {
	if w, ok := p.writes[id]; ok {
		if w.deleted {
			var zero T
			return zero, false
		}
		return w.doc, true
	}
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()
	d, ok := p.coll.docs[id]
	return d, ok
}

// view returns every document the unit can see, unsorted and uncloned.
func (p *pending[T]) view(match func(T) bool) []T {
	var out []T
	p.store.mu.RLock()
	for id, d := range p.coll.docs {
		if _, touched := p.writes[id]; touched {
			continue
		}
		if match(d) {
			out = append(out, d)
		}
	}
	p.store.mu.RUnlock()
	for _, id := range p.order {
		w := p.writes[id]
		if w == nil || w.deleted {
			continue
		}
		if match(w.doc) {
			out = append(out, w.doc)
		}
	}
	return out
}

func (p *pending[T]) find(match func(T) bool) []T {
	docs := p.view(match)
	sort.Slice(docs, func(i, j int) bool {
		ci, cj := p.coll.created(docs[i]), p.coll.created(docs[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		a, b := docs[i].DocumentID(), docs[j].DocumentID()
		return bytes.Compare(a[:], b[:]) < 0
	})
	out := make([]T, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

func (p *pending[T]) Get(_ context.Context, id uuid.UUID) (T, error) {
	d, ok := p.lookup(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", p.coll.name, id, ErrNotFound)
	}
	return d.Clone(), nil
}

func (p *pending[T]) Create(_ context.Context, doc T) error {
	id := doc.DocumentID()
	if _, ok := p.lookup(id); ok {
		return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrDuplicateKey)
	}
	if w, ok := p.writes[id]; ok && w.deleted {
		// deleted then recreated in the same unit behaves like a replace
		p.record(id, &write[T]{doc: doc.Clone(), checked: w.checked, base: w.base})
		return nil
	}
	p.record(id, &write[T]{doc: doc.Clone(), create: true})
	return nil
}

func (p *pending[T]) Replace(_ context.Context, doc T) error {
	id := doc.DocumentID()
	current, ok := p.lookup(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrNotFound)
	}
	if !current.Revision().Equal(doc.Revision()) {
		return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrConflict)
	}
	next := NextRevision(doc.Revision(), p.store.now())
	doc.SetRevision(next)

	w := &write[T]{doc: doc.Clone(), checked: true, base: current.Revision()}
	if prev, ok := p.writes[id]; ok {
		w.create, w.checked, w.base = prev.create, prev.checked, prev.base
	}
	p.record(id, w)
	return nil
}

func (p *pending[T]) Delete(_ context.Context, doc T) error {
	id := doc.DocumentID()
	current, ok := p.lookup(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrNotFound)
	}
	if !current.Revision().Equal(doc.Revision()) {
		return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrConflict)
	}
	p.markDeleted(id, current)
	return nil
}

func (p *pending[T]) markDeleted(id uuid.UUID, current T) {
	prev, ok := p.writes[id]
	switch {
	case ok && prev.create:
		delete(p.writes, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	case ok:
		p.record(id, &write[T]{doc: current, deleted: true, checked: prev.checked, base: prev.base})
	default:
		p.record(id, &write[T]{doc: current, deleted: true, checked: true, base: current.Revision()})
	}
}

// deleteWhere deletes every matching document. Each delete is checked
// against the revision the unit saw, like Delete.
func (p *pending[T]) deleteWhere(match func(T) bool) int {
	docs := p.view(match)
	for _, d := range docs {
		p.markDeleted(d.DocumentID(), d)
	}
	return len(docs)
}

// rewriteWhere applies change to every matching document as a replace
// checked against the revision the unit saw.
func (p *pending[T]) rewriteWhere(match func(T) bool, change func(T)) int {
	docs := p.view(match)
	for _, d := range docs {
		id := d.DocumentID()
		c := d.Clone()
		change(c)
		c.SetRevision(NextRevision(d.Revision(), p.store.now()))
		w := &write[T]{doc: c, checked: true, base: d.Revision()}
		if prev, ok := p.writes[id]; ok {
			w.create, w.checked, w.base = prev.create, prev.checked, prev.base
		}
		p.record(id, w)
	}
	return len(docs)
}

// Caller holds the write lock.
func (p *pending[T]) validate() error {
	for _, id := range p.order {
		w := p.writes[id]
		committed, exists := p.coll.docs[id]
		switch {
		case w.create:
			if exists {
				return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrDuplicateKey)
			}
		case w.checked:
			if !exists || !committed.Revision().Equal(w.base) {
				return fmt.Errorf("%s %s: %w", p.coll.name, id, ErrConflict)
			}
		}
	}
	return nil
}

// Caller holds the write lock.
func (p *pending[T]) apply() {
	for _, id := range p.order {
		w := p.writes[id]
		if w.deleted {
			delete(p.coll.docs, id)
			continue
		}
		p.coll.docs[id] = w.doc
	}
}

type memUsers struct{ *pending[*models.User] }

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	key := models.NormalizeEmail(email)
	found := r.find(func(u *models.User) bool { return models.NormalizeEmail(u.Email) == key })
	if len(found) == 0 {
		return nil, fmt.Errorf("users email %q: %w", key, ErrNotFound)
	}
	return found[0], nil
}

func (r memUsers) Create(ctx context.Context, u *models.User) error {
	if _, err := r.GetByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("users.email %q: %w", models.NormalizeEmail(u.Email), ErrDuplicateKey)
	}
	return r.pending.Create(ctx, u)
}

type memWorkspaces struct{ *pending[*models.Workspace] }

func (r memWorkspaces) ListByMember(_ context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	return r.find(func(w *models.Workspace) bool { return w.Members.Has(userID) }), nil
}

type memProjects struct{ *pending[*models.Project] }

func (r memProjects) ListByWorkspace(_ context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	return r.find(func(p *models.Project) bool { return p.WorkspaceID == workspaceID }), nil
}

func (r memProjects) ListByMember(_ context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return r.find(func(p *models.Project) bool { return p.Members.Has(userID) }), nil
}

func (r memProjects) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	all := r.find(func(*models.Project) bool { return true })
	ids := make([]uuid.UUID, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}
	return ids, nil
}

func (r memProjects) DeleteAllByWorkspace(_ context.Context, workspaceID uuid.UUID) (int, error) {
	return r.deleteWhere(func(p *models.Project) bool { return p.WorkspaceID == workspaceID }), nil
}

type memColumns struct{ *pending[*models.Column] }

func (r memColumns) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Column, error) {
	return r.find(func(c *models.Column) bool { return c.ProjectID == projectID }), nil
}

func (r memColumns) DeleteAllByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(func(c *models.Column) bool { return c.ProjectID == projectID }), nil
}

type memTasks struct{ *pending[*models.Task] }

func (r memTasks) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	return r.find(func(t *models.Task) bool { return t.ProjectID == projectID }), nil
}

func (r memTasks) ListByColumn(_ context.Context, columnID uuid.UUID) ([]*models.Task, error) {
	return r.find(func(t *models.Task) bool { return t.ColumnID == columnID }), nil
}

func (r memTasks) ListByAssignee(_ context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	return r.find(func(t *models.Task) bool {
		return containsID(t.Assignees, userID) && filter.matches(t)
	}), nil
}

func (r memTasks) ListByDueRange(_ context.Context, from, to time.Time) ([]*models.Task, error) {
	return r.find(func(t *models.Task) bool {
		return t.DueDate != nil && !t.DueDate.Before(from) && t.DueDate.Before(to)
	}), nil
}

func (r memTasks) DeleteAllByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(func(t *models.Task) bool { return t.ProjectID == projectID }), nil
}

func (r memTasks) DeleteAllByColumn(_ context.Context, columnID uuid.UUID) (int, error) {
	return r.deleteWhere(func(t *models.Task) bool { return t.ColumnID == columnID }), nil
}

func (r memTasks) ReassignCreator(_ context.Context, from, to uuid.UUID) (int, error) {
	return r.rewriteWhere(
		func(t *models.Task) bool { return t.CreatorID == from },
		func(t *models.Task) { t.CreatorID = to },
	), nil
}

type memLabels struct{ *pending[*models.Label] }

func (r memLabels) ListByProject(_ context.Context, projectID uuid.UUID) ([]*models.Label, error) {
	return r.find(func(l *models.Label) bool { return l.ProjectID == projectID }), nil
}

func (r memLabels) DeleteAllByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(func(l *models.Label) bool { return l.ProjectID == projectID }), nil
}

type memComments struct{ *pending[*models.Comment] }

func (r memComments) ListByTask(_ context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	return r.find(func(c *models.Comment) bool { return c.TaskID == taskID }), nil
}

func (r memComments) DeleteAllByTask(_ context.Context, taskID uuid.UUID) (int, error) {
	return r.deleteWhere(func(c *models.Comment) bool { return c.TaskID == taskID }), nil
}

func (r memComments) DeleteAllByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(func(c *models.Comment) bool { return c.ProjectID == projectID }), nil
}

func (r memComments) ReassignUser(_ context.Context, from, to uuid.UUID) (int, error) {
	return r.rewriteWhere(
		func(c *models.Comment) bool { return c.UserID == from },
		func(c *models.Comment) { c.UserID = to },
	), nil
}

type memActivities struct{ *pending[*models.Activity] }

func (r memActivities) ListByProject(_ context.Context, projectID uuid.UUID, beforeSeq int64, limit int) ([]*models.Activity, error) {
	docs := r.find(func(a *models.Activity) bool {
		return a.ProjectID == projectID && (beforeSeq <= 0 || a.Seq < beforeSeq)
	})
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Seq > docs[j].Seq })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r memActivities) Last(ctx context.Context, projectID uuid.UUID) (*models.Activity, error) {
	docs, _ := r.ListByProject(ctx, projectID, 0, 1)
	if len(docs) == 0 {
		return nil, fmt.Errorf("activities of project %s: %w", projectID, ErrNotFound)
	}
	return docs[0], nil
}

func (r memActivities) DeleteAllByProject(_ context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(func(a *models.Activity) bool { return a.ProjectID == projectID }), nil
}

func (r memActivities) ReassignUser(_ context.Context, from, to uuid.UUID) (int, error) {
	return r.rewriteWhere(
		func(a *models.Activity) bool { return a.UserID == from },
		func(a *models.Activity) { a.UserID = to },
	), nil
}
