// internal/service/tasks_test.go
package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

func TestBoardService_CreateTask(t *testing.T) {
	b := newBoard(t)
	member := b.CreateTestUser("bob")
	outsider := b.CreateTestUser("eve")
	_, err := b.svc.AddMember(b.ctx, b.owner.ID, WorkspaceScope(b.ws.ID), member.Email, "")
	require.NoError(t, err)
	_, err = b.svc.AddMember(b.ctx, b.owner.ID, ProjectScope(b.project.ID), member.Email, "")
	require.NoError(t, err)
	label, err := b.svc.CreateLabel(b.ctx, b.owner.ID, b.project.ID, "bug", "#aa0000")
	require.NoError(t, err)

	other := b.CreateProject(b.owner, b.ws)
	foreign, err := b.svc.CreateLabel(b.ctx, b.owner.ID, other.ID, "bug", "#aa0000")
	require.NoError(t, err)

	tests := []struct {
		name     string
		actor    uuid.UUID
		input    TaskInput
		wantKind apperror.Kind
		field    string
	}{
		{
			name:  "full input",
			actor: b.owner.ID,
			input: TaskInput{
				Title:      "Write docs",
				Assignees:  []uuid.UUID{member.ID},
				Labels:     []uuid.UUID{label.ID},
				Checklists: []models.Checklist{{Title: "steps", Items: []models.ChecklistItem{{Text: "draft"}}}},
			},
		},
		{name: "member creates", actor: member.ID, input: TaskInput{Title: "Mine"}},
		{name: "blank title", actor: b.owner.ID, input: TaskInput{Title: "  "}, wantKind: apperror.KindValidation, field: "title"},
		{name: "non member", actor: outsider.ID, input: TaskInput{Title: "x"}, wantKind: apperror.KindForbidden},
		{
			name:     "assignee outside project",
			actor:    b.owner.ID,
			input:    TaskInput{Title: "x", Assignees: []uuid.UUID{outsider.ID}},
			wantKind: apperror.KindValidation,
			field:    "assignees",
		},
		{
			name:     "duplicate assignee",
			actor:    b.owner.ID,
			input:    TaskInput{Title: "x", Assignees: []uuid.UUID{member.ID, member.ID}},
			wantKind: apperror.KindValidation,
			field:    "assignees",
		},
		{
			name:     "label of another project",
			actor:    b.owner.ID,
			input:    TaskInput{Title: "x", Labels: []uuid.UUID{foreign.ID}},
			wantKind: apperror.KindValidation,
			field:    "labels",
		},
		{
			name:     "untitled checklist",
			actor:    b.owner.ID,
			input:    TaskInput{Title: "x", Checklists: []models.Checklist{{Title: ""}}},
			wantKind: apperror.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := b.svc.CreateTask(b.ctx, tt.actor, b.todo, tt.input)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				if tt.field != "" {
					assert.Equal(t, tt.field, apperror.FieldOf(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.actor, task.CreatorID)
			assert.Equal(t, b.todo, task.ColumnID)
			assert.Equal(t, b.project.ID, task.ProjectID)
			order := b.Column(b.todo).TaskOrder
			assert.Equal(t, task.ID, order[len(order)-1], "new tasks are appended")
		})
	}
	b.RequireIntegrity(b.project.ID)
}

func TestBoardService_UpdateTask(t *testing.T) {
	b := newBoard(t)
	task := b.CreateTask(b.owner, b.todo, "Draft")
	before := len(b.Activities(b.project.ID))

	title := "Final"
	due := b.clock.Now().Add(-time.Hour)
	updated, err := b.svc.UpdateTask(b.ctx, b.owner.ID, task.ID, TaskUpdate{Title: &title, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, 1, b.Project(b.project.ID).TaskStats.Overdue)

	stream := b.Activities(b.project.ID)
	require.Len(t, stream, before+1)
	last := stream[len(stream)-1]
	assert.Equal(t, activity.TaskUpdated, last.Action)
	assert.Equal(t, []string{"title", "dueDate"}, last.Details[activity.KeyChanges])

	_, err = b.svc.UpdateTask(b.ctx, b.owner.ID, task.ID, TaskUpdate{ClearDueDate: true})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Project(b.project.ID).TaskStats.Overdue)

	// no-op update writes nothing
	count := len(b.Activities(b.project.ID))
	_, err = b.svc.UpdateTask(b.ctx, b.owner.ID, task.ID, TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Len(t, b.Activities(b.project.ID), count)

	blank := " "
	_, err = b.svc.UpdateTask(b.ctx, b.owner.ID, task.ID, TaskUpdate{Title: &blank})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	b.RequireIntegrity(b.project.ID)
}

func TestBoardService_MoveTaskBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		wantOrder func(a, c, d uuid.UUID) []uuid.UUID
	}{
		{"same column to front", 0, func(a, c, d uuid.UUID) []uuid.UUID { return []uuid.UUID{d, a, c} }},
		{"same column append", ordering.Append, func(a, c, d uuid.UUID) []uuid.UUID { return []uuid.UUID{a, c, d} }},
		{"same column past end", 99, func(a, c, d uuid.UUID) []uuid.UUID { return []uuid.UUID{a, c, d} }},
		{"same column middle", 1, func(a, c, d uuid.UUID) []uuid.UUID { return []uuid.UUID{a, d, c} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBoard(t)
			a := b.CreateTask(b.owner, b.todo, "A")
			c := b.CreateTask(b.owner, b.todo, "C")
			d := b.CreateTask(b.owner, b.todo, "D")

			_, err := b.svc.MoveTask(b.ctx, b.owner.ID, d.ID, b.todo, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder(a.ID, c.ID, d.ID), b.Column(b.todo).TaskOrder)
			b.RequireIntegrity(b.project.ID)
		})
	}

	t.Run("negative index", func(t *testing.T) {
		b := newBoard(t)
		a := b.CreateTask(b.owner, b.todo, "A")
		_, err := b.svc.MoveTask(b.ctx, b.owner.ID, a.ID, b.doing, -5)
		assert.Equal(t, apperror.KindIndexOutOfRange, apperror.KindOf(err))
	})

	t.Run("into empty column at zero", func(t *testing.T) {
		b := newBoard(t)
		a := b.CreateTask(b.owner, b.todo, "A")
		_, err := b.svc.MoveTask(b.ctx, b.owner.ID, a.ID, b.done, 0)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, b.Column(b.done).TaskOrder)
	})

	t.Run("column of another project", func(t *testing.T) {
		b := newBoard(t)
		a := b.CreateTask(b.owner, b.todo, "A")
		other := b.CreateProject(b.owner, b.ws)
		_, err := b.svc.MoveTask(b.ctx, b.owner.ID, a.ID, other.ColumnOrder[0], 0)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Equal(t, []uuid.UUID{a.ID}, b.Column(b.todo).TaskOrder)
	})
}

func TestBoardService_MoveTaskRoundTrip(t *testing.T) {
	b := newBoard(t)
	tasks := []*models.Task{
		b.CreateTask(b.owner, b.todo, "A"),
		b.CreateTask(b.owner, b.todo, "B"),
		b.CreateTask(b.owner, b.todo, "C"),
	}
	b.CreateTask(b.owner, b.doing, "X")
	todoBefore := b.Column(b.todo).TaskOrder
	doingBefore := b.Column(b.doing).TaskOrder
	statsBefore := b.Project(b.project.ID).TaskStats

	mover := tasks[1]
	_, err := b.svc.MoveTask(b.ctx, b.owner.ID, mover.ID, b.doing, 1)
	require.NoError(t, err)
	_, err = b.svc.MoveTask(b.ctx, b.owner.ID, mover.ID, b.todo, 1)
	require.NoError(t, err)

	assert.Equal(t, todoBefore, b.Column(b.todo).TaskOrder)
	assert.Equal(t, doingBefore, b.Column(b.doing).TaskOrder)
	assert.True(t, statsBefore.Equal(b.Project(b.project.ID).TaskStats))
}

func TestBoardService_ReorderTaskNotInColumn(t *testing.T) {
	b := newBoard(t)
	a := b.CreateTask(b.owner, b.todo, "A")
	_, err := b.svc.ReorderTask(b.ctx, b.owner.ID, b.doing, a.ID, 0)
	assert.Equal(t, apperror.KindNotInList, apperror.KindOf(err))
}

func TestBoardService_AssignUnassignRoundTrip(t *testing.T) {
	b := newBoard(t)
	bob := b.CreateTestUser("bob")
	_, err := b.svc.AddMember(b.ctx, b.owner.ID, WorkspaceScope(b.ws.ID), bob.Email, "")
	require.NoError(t, err)
	_, err = b.svc.AddMember(b.ctx, b.owner.ID, ProjectScope(b.project.ID), bob.Email, "")
	require.NoError(t, err)

	task, err := b.svc.CreateTask(b.ctx, b.owner.ID, b.todo, TaskInput{Title: "A", Assignees: []uuid.UUID{b.owner.ID}})
	require.NoError(t, err)
	original := task.Assignees

	_, err = b.svc.AssignTask(b.ctx, b.owner.ID, task.ID, bob.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{b.owner.ID, bob.ID}, b.Task(task.ID).Assignees)

	_, err = b.svc.AssignTask(b.ctx, b.owner.ID, task.ID, bob.ID)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), "double assignment")

	_, err = b.svc.UnassignTask(b.ctx, b.owner.ID, task.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, original, b.Task(task.ID).Assignees)

	_, err = b.svc.UnassignTask(b.ctx, b.owner.ID, task.ID, bob.ID)
	assert.Equal(t, apperror.KindNotInList, apperror.KindOf(err))

	stream := actions(b.Activities(b.project.ID))
	assert.Equal(t, []activity.Action{activity.TaskAssigned, activity.TaskUnassigned}, stream[len(stream)-2:])
}

func TestBoardService_LabelTask(t *testing.T) {
	b := newBoard(t)
	task := b.CreateTask(b.owner, b.todo, "A")
	label, err := b.svc.CreateLabel(b.ctx, b.owner.ID, b.project.ID, "ui", "#00ff00")
	require.NoError(t, err)

	_, err = b.svc.LabelTask(b.ctx, b.owner.ID, task.ID, label.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{label.ID}, b.Task(task.ID).Labels)

	_, err = b.svc.LabelTask(b.ctx, b.owner.ID, task.ID, uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = b.svc.UnlabelTask(b.ctx, b.owner.ID, task.ID, label.ID)
	require.NoError(t, err)
	assert.Empty(t, b.Task(task.ID).Labels)

	_, err = b.svc.SetTaskLabels(b.ctx, b.owner.ID, task.ID, []uuid.UUID{label.ID})
	require.NoError(t, err)
	require.NoError(t, b.svc.DeleteLabel(b.ctx, b.owner.ID, label.ID))
	assert.Empty(t, b.Task(task.ID).Labels, "deleting a label detaches it")
	b.RequireIntegrity(b.project.ID)
}

func TestBoardService_ToggleChecklistItem(t *testing.T) {
	b := newBoard(t)
	task, err := b.svc.CreateTask(b.ctx, b.owner.ID, b.todo, TaskInput{
		Title:      "A",
		Checklists: []models.Checklist{{Title: "steps", Items: []models.ChecklistItem{{Text: "one"}, {Text: "two"}}}},
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		checklist int
		item      int
		wantKind  apperror.Kind
	}{
		{"valid", 0, 1, ""},
		{"checklist out of range", 1, 0, apperror.KindIndexOutOfRange},
		{"item out of range", 0, 2, apperror.KindIndexOutOfRange},
		{"negative item", 0, -1, apperror.KindIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.svc.ToggleChecklistItem(b.ctx, b.owner.ID, task.ID, tt.checklist, tt.item, true)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Checklists[0].Items[1].Done)
			assert.False(t, got.Checklists[0].Items[0].Done)
		})
	}
}

func TestBoardService_DeleteTask(t *testing.T) {
	b := newBoard(t)
	bob := b.CreateTestUser("bob")
	carol := b.CreateTestUser("carol")
	for _, u := range []*models.User{bob, carol} {
		_, err := b.svc.AddMember(b.ctx, b.owner.ID, WorkspaceScope(b.ws.ID), u.Email, "")
		require.NoError(t, err)
		_, err = b.svc.AddMember(b.ctx, b.owner.ID, ProjectScope(b.project.ID), u.Email, "")
		require.NoError(t, err)
	}
	task := b.CreateTask(bob, b.todo, "bob's")
	_, err := b.svc.AddComment(b.ctx, carol.ID, task.ID, "hi")
	require.NoError(t, err)

	err = b.svc.DeleteTask(b.ctx, carol.ID, task.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	require.NoError(t, b.svc.DeleteTask(b.ctx, bob.ID, task.ID))
	assert.Empty(t, b.Column(b.todo).TaskOrder)
	assert.Equal(t, 0, b.Project(b.project.ID).TaskStats.Total)

	stream := b.Activities(b.project.ID)
	assert.Equal(t, activity.TaskDeleted, stream[len(stream)-1].Action)

	_, err = b.svc.GetTask(b.ctx, bob.ID, task.ID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	b.RequireIntegrity(b.project.ID)
}
