// internal/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gurkanbulca/kanboard/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// table maps a document kind onto a jsonb table with extracted index
// columns.
type table[T document[T]] struct {
	name    string
	newDoc  func() T
	created func(T) time.Time
	index   func(T) map[string]any
}

var (
	usersTable = &table[*models.User]{
		name:    "users",
		newDoc:  func() *models.User { return &models.User{} },
		created: func(u *models.User) time.Time { return u.CreatedAt },
		index: func(u *models.User) map[string]any {
			return map[string]any{"email": models.NormalizeEmail(u.Email)}
		},
	}
	workspacesTable = &table[*models.Workspace]{
		name:    "workspaces",
		newDoc:  func() *models.Workspace { return &models.Workspace{} },
		created: func(w *models.Workspace) time.Time { return w.CreatedAt },
		index: func(w *models.Workspace) map[string]any {
			return map[string]any{"member_ids": memberArray(w.Members)}
		},
	}
	projectsTable = &table[*models.Project]{
		name:    "projects",
		newDoc:  func() *models.Project { return &models.Project{} },
		created: func(p *models.Project) time.Time { return p.CreatedAt },
		index: func(p *models.Project) map[string]any {
			return map[string]any{
				"workspace_id": p.WorkspaceID.String(),
				"member_ids":   memberArray(p.Members),
			}
		},
	}
	columnsTable = &table[*models.Column]{
		name:    "columns",
		newDoc:  func() *models.Column { return &models.Column{} },
		created: func(c *models.Column) time.Time { return c.CreatedAt },
		index: func(c *models.Column) map[string]any {
			return map[string]any{"project_id": c.ProjectID.String()}
		},
	}
	tasksTable = &table[*models.Task]{
		name:    "tasks",
		newDoc:  func() *models.Task { return &models.Task{} },
		created: func(t *models.Task) time.Time { return t.CreatedAt },
		index: func(t *models.Task) map[string]any {
			var due any
			if t.DueDate != nil {
				due = t.DueDate.UTC()
			}
			return map[string]any{
				"project_id": t.ProjectID.String(),
				"column_id":  t.ColumnID.String(),
				"creator_id": t.CreatorID.String(),
				"assignees":  idArray(t.Assignees),
				"label_ids":  idArray(t.Labels),
				"due_date":   due,
			}
		},
	}
	labelsTable = &table[*models.Label]{
		name:    "labels",
		newDoc:  func() *models.Label { return &models.Label{} },
		created: func(l *models.Label) time.Time { return l.CreatedAt },
		index: func(l *models.Label) map[string]any {
			return map[string]any{"project_id": l.ProjectID.String()}
		},
	}
	commentsTable = &table[*models.Comment]{
		name:    "comments",
		newDoc:  func() *models.Comment { return &models.Comment{} },
		created: func(c *models.Comment) time.Time { return c.CreatedAt },
		index: func(c *models.Comment) map[string]any {
			return map[string]any{
				"task_id":    c.TaskID.String(),
				"project_id": c.ProjectID.String(),
				"user_id":    c.UserID.String(),
			}
		},
	}
	activitiesTable = &table[*models.Activity]{
		name:    "activities",
		newDoc:  func() *models.Activity { return &models.Activity{} },
		created: func(a *models.Activity) time.Time { return a.CreatedAt },
		index: func(a *models.Activity) map[string]any {
			return map[string]any{
				"project_id": a.ProjectID.String(),
				"user_id":    a.UserID.String(),
				"seq":        a.Seq,
			}
		},
	}
)

func idArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}

func memberArray(ms models.Members) any {
	ids := make([]uuid.UUID, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	return idArray(ids)
}

// PostgresStore keeps every collection as a jsonb table. A unit is one
// REPEATABLE READ transaction, so reads inside a unit share a snapshot.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock used for revision tokens.
func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) { s.now = now }
}

func NewPostgresStore(db *sqlx.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) WithinUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPgError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &pgUnit{tx: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", mapPgError(err))
	}
	return nil
}

// mapPgError translates driver errors into store sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pqErr.Constraint, ErrDuplicateKey)
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", pqErr.Message, ErrConflict)
		}
	}
	return err
}

type pgUnit struct {
	tx  *sqlx.Tx
	now func() time.Time
}

func (u *pgUnit) Users() UserRepository           { return pgUsers{pgRepo[*models.User]{u, usersTable}} }
func (u *pgUnit) Workspaces() WorkspaceRepository { return pgWorkspaces{pgRepo[*models.Workspace]{u, workspacesTable}} }
func (u *pgUnit) Projects() ProjectRepository     { return pgProjects{pgRepo[*models.Project]{u, projectsTable}} }
func (u *pgUnit) Columns() ColumnRepository       { return pgColumns{pgRepo[*models.Column]{u, columnsTable}} }
func (u *pgUnit) Tasks() TaskRepository           { return pgTasks{pgRepo[*models.Task]{u, tasksTable}} }
func (u *pgUnit) Labels() LabelRepository         { return pgLabels{pgRepo[*models.Label]{u, labelsTable}} }
func (u *pgUnit) Comments() CommentRepository     { return pgComments{pgRepo[*models.Comment]{u, commentsTable}} }
func (u *pgUnit) Activities() ActivityRepository  { return pgActivities{pgRepo[*models.Activity]{u, activitiesTable}} }

type pgRepo[T document[T]] struct {
	u *pgUnit
	t *table[T]
}

type docRow struct {
	Doc       []byte    `db:"doc"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r pgRepo[T]) decode(row docRow) (T, error) {
	doc := r.t.newDoc()
	if err := json.Unmarshal(row.Doc, doc); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", r.t.name, err)
	}
	// the column is authoritative for the revision token
	doc.SetRevision(row.UpdatedAt.UTC())
	return doc, nil
}

func (r pgRepo[T]) selectDocs() sq.SelectBuilder {
	return psql.Select("doc", "updated_at").From(r.t.name)
}

func (r pgRepo[T]) one(ctx context.Context, q sq.SelectBuilder) (T, error) {
	var zero T
	query, args, err := q.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build %s query: %w", r.t.name, err)
	}
	var row docRow
	if err := r.u.tx.GetContext(ctx, &row, query, args...); err != nil {
		return zero, fmt.Errorf("get %s: %w", r.t.name, mapPgError(err))
	}
	return r.decode(row)
}

func (r pgRepo[T]) many(ctx context.Context, q sq.SelectBuilder) ([]T, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", r.t.name, err)
	}
	var rows []docRow
	if err := r.u.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", r.t.name, mapPgError(err))
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		doc, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r pgRepo[T]) list(ctx context.Context, where sq.Sqlizer) ([]T, error) {
	return r.many(ctx, r.selectDocs().Where(where).OrderBy("created_at", "id"))
}

func (r pgRepo[T]) exec(ctx context.Context, b interface {
	ToSql() (string, []interface{}, error)
}) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s statement: %w", r.t.name, err)
	}
	res, err := r.u.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec %s: %w", r.t.name, mapPgError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected %s: %w", r.t.name, err)
	}
	return n, nil
}

func (r pgRepo[T]) values(doc T) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.t.name, err)
	}
	vals := r.t.index(doc)
	vals["doc"] = string(raw)
	vals["updated_at"] = doc.Revision().UTC()
	return vals, nil
}

func (r pgRepo[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	return r.one(ctx, r.selectDocs().Where(sq.Eq{"id": id.String()}))
}

func (r pgRepo[T]) Create(ctx context.Context, doc T) error {
	vals, err := r.values(doc)
	if err != nil {
		return err
	}
	vals["id"] = doc.DocumentID().String()
	vals["created_at"] = r.t.created(doc).UTC()
	_, err = r.exec(ctx, psql.Insert(r.t.name).SetMap(vals))
	return err
}

func (r pgRepo[T]) Replace(ctx context.Context, doc T) error {
	base := doc.Revision()
	doc.SetRevision(NextRevision(base, r.u.now()))
	vals, err := r.values(doc)
	if err != nil {
		doc.SetRevision(base)
		return err
	}
	n, err := r.exec(ctx, psql.Update(r.t.name).SetMap(vals).
		Where(sq.Eq{"id": doc.DocumentID().String(), "updated_at": base.UTC()}))
	if err != nil {
		doc.SetRevision(base)
		return err
	}
	if n == 0 {
		doc.SetRevision(base)
		return fmt.Errorf("%s %s: %w", r.t.name, doc.DocumentID(), ErrConflict)
	}
	return nil
}

func (r pgRepo[T]) Delete(ctx context.Context, doc T) error {
	n, err := r.exec(ctx, psql.Delete(r.t.name).
		Where(sq.Eq{"id": doc.DocumentID().String(), "updated_at": doc.Revision().UTC()}))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.t.name, doc.DocumentID(), ErrConflict)
	}
	return nil
}

func (r pgRepo[T]) deleteWhere(ctx context.Context, where sq.Sqlizer) (int, error) {
	n, err := r.exec(ctx, psql.Delete(r.t.name).Where(where))
	return int(n), err
}

// reassign rewrites a user reference column and its embedded document
// field in one statement.
func (r pgRepo[T]) reassign(ctx context.Context, column, field string, from, to uuid.UUID) (int, error) {
	now := r.u.now().UTC().Truncate(time.Millisecond)
	n, err := r.exec(ctx, psql.Update(r.t.name).
		Set(column, to.String()).
		Set("doc", sq.Expr(fmt.Sprintf("jsonb_set(doc, '{%s}', to_jsonb(?::text))", field), to.String())).
		Set("updated_at", sq.Expr("GREATEST(?::timestamptz, updated_at + interval '1 millisecond')", now)).
		Where(sq.Eq{column: from.String()}))
	return int(n), err
}

type pgUsers struct{ pgRepo[*models.User] }

func (r pgUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, r.selectDocs().Where(sq.Eq{"email": models.NormalizeEmail(email)}))
}

type pgWorkspaces struct{ pgRepo[*models.Workspace] }

func (r pgWorkspaces) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	return r.list(ctx, sq.Expr("? = ANY(member_ids)", userID.String()))
}

type pgProjects struct{ pgRepo[*models.Project] }

func (r pgProjects) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	return r.list(ctx, sq.Eq{"workspace_id": workspaceID.String()})
}

func (r pgProjects) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return r.list(ctx, sq.Expr("? = ANY(member_ids)", userID.String()))
}

func (r pgProjects) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	query, args, err := psql.Select("id").From(r.t.name).OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build projects query: %w", err)
	}
	var ids []uuid.UUID
	if err := r.u.tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("query project ids: %w", mapPgError(err))
	}
	return ids, nil
}

func (r pgProjects) DeleteAllByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"workspace_id": workspaceID.String()})
}

type pgColumns struct{ pgRepo[*models.Column] }

func (r pgColumns) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Column, error) {
	return r.list(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgColumns) DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"project_id": projectID.String()})
}

type pgTasks struct{ pgRepo[*models.Task] }

func (r pgTasks) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgTasks) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, sq.Eq{"column_id": columnID.String()})
}

func (r pgTasks) ListByAssignee(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	where := sq.And{sq.Expr("? = ANY(assignees)", userID.String())}
	if len(filter.ProjectIDs) > 0 {
		ids := make([]string, len(filter.ProjectIDs))
		for i, id := range filter.ProjectIDs {
			ids[i] = id.String()
		}
		where = append(where, sq.Eq{"project_id": ids})
	}
	if filter.LabelID != nil {
		where = append(where, sq.Expr("? = ANY(label_ids)", filter.LabelID.String()))
	}
	if filter.DueFrom != nil {
		where = append(where, sq.GtOrEq{"due_date": filter.DueFrom.UTC()})
	}
	if filter.DueTo != nil {
		where = append(where, sq.Lt{"due_date": filter.DueTo.UTC()})
	}
	return r.list(ctx, where)
}

func (r pgTasks) ListByDueRange(ctx context.Context, from, to time.Time) ([]*models.Task, error) {
	return r.list(ctx, sq.And{
		sq.GtOrEq{"due_date": from.UTC()},
		sq.Lt{"due_date": to.UTC()},
	})
}

func (r pgTasks) DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgTasks) DeleteAllByColumn(ctx context.Context, columnID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"column_id": columnID.String()})
}

func (r pgTasks) ReassignCreator(ctx context.Context, from, to uuid.UUID) (int, error) {
	return r.reassign(ctx, "creator_id", "creatorId", from, to)
}

type pgLabels struct{ pgRepo[*models.Label] }

func (r pgLabels) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Label, error) {
	return r.list(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgLabels) DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"project_id": projectID.String()})
}

type pgComments struct{ pgRepo[*models.Comment] }

func (r pgComments) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	return r.list(ctx, sq.Eq{"task_id": taskID.String()})
}

func (r pgComments) DeleteAllByTask(ctx context.Context, taskID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"task_id": taskID.String()})
}

func (r pgComments) DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgComments) ReassignUser(ctx context.Context, from, to uuid.UUID) (int, error) {
	return r.reassign(ctx, "user_id", "userId", from, to)
}

type pgActivities struct{ pgRepo[*models.Activity] }

func (r pgActivities) ListByProject(ctx context.Context, projectID uuid.UUID, beforeSeq int64, limit int) ([]*models.Activity, error) {
	q := r.selectDocs().Where(sq.Eq{"project_id": projectID.String()}).OrderBy("seq DESC")
	if beforeSeq > 0 {
		q = q.Where(sq.Lt{"seq": beforeSeq})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.many(ctx, q)
}

func (r pgActivities) Last(ctx context.Context, projectID uuid.UUID) (*models.Activity, error) {
	return r.one(ctx, r.selectDocs().Where(sq.Eq{"project_id": projectID.String()}).OrderBy("seq DESC").Limit(1))
}

func (r pgActivities) DeleteAllByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"project_id": projectID.String()})
}

func (r pgActivities) ReassignUser(ctx context.Context, from, to uuid.UUID) (int, error) {
	return r.reassign(ctx, "user_id", "userId", from, to)
}
