// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	dialectsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/jmoiron/sqlx"
)

func documentColumns() (id, doc, createdAt, updatedAt *schema.Column) {
	return &schema.Column{Name: "id", Type: field.TypeUUID},
		&schema.Column{Name: "doc", Type: field.TypeJSON},
		&schema.Column{Name: "created_at", Type: field.TypeTime},
		&schema.Column{Name: "updated_at", Type: field.TypeTime}
}

func uuidColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeUUID}
}

func uuidArrayColumn(name string) *schema.Column {
	return &schema.Column{
		Name:       name,
		Type:       field.TypeOther,
		SchemaType: map[string]string{dialect.Postgres: "uuid[]"},
	}
}

func index(table string, unique bool, cols ...*schema.Column) *schema.Index {
	name := table
	for _, c := range cols {
		name += "_" + c.Name
	}
	return &schema.Index{Name: name, Unique: unique, Columns: cols}
}

func ginIndex(table string, col *schema.Column) *schema.Index {
	idx := index(table, false, col)
	idx.Annotation = entsql.IndexType("GIN")
	return idx
}

// documentTable builds a jsonb document table with extra index columns.
func documentTable(name string, extra ...*schema.Column) *schema.Table {
	id, doc, createdAt, updatedAt := documentColumns()
	cols := append([]*schema.Column{id, doc, createdAt, updatedAt}, extra...)
	return &schema.Table{
		Name:       name,
		Columns:    cols,
		PrimaryKey: []*schema.Column{id},
	}
}

// Tables returns the document store layout: one table per collection with
// the lookup columns the repositories query on.
func Tables() []*schema.Table {
	email := &schema.Column{Name: "email", Type: field.TypeString, Size: 320}
	users := documentTable("users", email)
	users.Indexes = []*schema.Index{index("users", true, email)}

	wsMembers := uuidArrayColumn("member_ids")
	workspaces := documentTable("workspaces", wsMembers)
	workspaces.Indexes = []*schema.Index{ginIndex("workspaces", wsMembers)}

	pWorkspace := uuidColumn("workspace_id")
	pMembers := uuidArrayColumn("member_ids")
	projects := documentTable("projects", pWorkspace, pMembers)
	projects.Indexes = []*schema.Index{
		index("projects", false, pWorkspace),
		ginIndex("projects", pMembers),
	}

	cProject := uuidColumn("project_id")
	columns := documentTable("columns", cProject)
	columns.Indexes = []*schema.Index{index("columns", false, cProject)}

	tProject := uuidColumn("project_id")
	tColumn := uuidColumn("column_id")
	tCreator := uuidColumn("creator_id")
	tAssignees := uuidArrayColumn("assignees")
	tLabels := uuidArrayColumn("label_ids")
	tDue := &schema.Column{Name: "due_date", Type: field.TypeTime, Nullable: true}
	tasks := documentTable("tasks", tProject, tColumn, tCreator, tAssignees, tLabels, tDue)
	tasks.Indexes = []*schema.Index{
		index("tasks", false, tProject),
		index("tasks", false, tColumn),
		index("tasks", false, tCreator),
		ginIndex("tasks", tAssignees),
		index("tasks", false, tDue),
	}

	lProject := uuidColumn("project_id")
	labels := documentTable("labels", lProject)
	labels.Indexes = []*schema.Index{index("labels", false, lProject)}

	cmTask := uuidColumn("task_id")
	cmProject := uuidColumn("project_id")
	cmUser := uuidColumn("user_id")
	comments := documentTable("comments", cmTask, cmProject, cmUser)
	comments.Indexes = []*schema.Index{
		index("comments", false, cmTask),
		index("comments", false, cmProject),
		index("comments", false, cmUser),
	}

	aProject := uuidColumn("project_id")
	aUser := uuidColumn("user_id")
	aSeq := &schema.Column{Name: "seq", Type: field.TypeInt64}
	activities := documentTable("activities", aProject, aUser, aSeq)
	activities.Indexes = []*schema.Index{
		index("activities", true, aProject, aSeq),
		index("activities", false, aUser),
	}

	return []*schema.Table{users, workspaces, projects, columns, tasks, labels, comments, activities}
}

// Migrate creates or upgrades the tables through ent's schema migrator.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	drv := dialectsql.OpenDB(dialect.Postgres, db.DB)
	m, err := schema.NewMigrate(drv, schema.WithDropIndex(true), schema.WithDropColumn(true))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables()...); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
