// internal/service/my_tasks_test.go
package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
)

func TestWeekBounds(t *testing.T) {
	// 2026-05-01 is a Friday
	from, to := weekBounds(time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), to)

	from, _ = weekBounds(time.Date(2026, 5, 3, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC), from, "sunday closes the week")
}

func TestBoardService_ListMyTasks(t *testing.T) {
	b := newBoard(t)
	other := b.CreateProject(b.owner, b.ws)
	now := b.clock.Now()
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	mk := func(column uuid.UUID, title string, due *time.Time) *models.Task {
		task, err := b.svc.CreateTask(b.ctx, b.owner.ID, column, TaskInput{
			Title:     title,
			Assignees: []uuid.UUID{b.owner.ID},
			DueDate:   due,
		})
		require.NoError(t, err)
		b.clock.Advance(time.Second)
		return task
	}
	undated := mk(b.todo, "undated", nil)
	overdue := mk(b.todo, "overdue", at(-24*time.Hour))
	soon := mk(b.doing, "soon", at(24*time.Hour))
	later := mk(other.ColumnOrder[0], "later", at(10*24*time.Hour))
	finished := mk(b.done, "finished", at(-48*time.Hour))
	b.CreateTask(b.owner, b.todo, "unassigned")

	_, err := b.svc.SetDoneColumn(b.ctx, b.owner.ID, b.project.ID, &b.done)
	require.NoError(t, err)

	ids := func(tasks []*models.Task) []uuid.UUID {
		out := make([]uuid.UUID, len(tasks))
		for i, task := range tasks {
			out[i] = task.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter MyTasksFilter
		want   []uuid.UUID
	}{
		{"all by due date", MyTasksFilter{}, []uuid.UUID{finished.ID, overdue.ID, soon.ID, later.ID, undated.ID}},
		{"project subset", MyTasksFilter{ProjectIDs: []uuid.UUID{other.ID}}, []uuid.UUID{later.ID}},
		{"overdue only", MyTasksFilter{OverdueOnly: true}, []uuid.UUID{overdue.ID}},
		{"due range", MyTasksFilter{DueFrom: at(-30 * time.Hour), DueTo: at(48 * time.Hour)}, []uuid.UUID{overdue.ID, soon.ID}},
		{"this week", MyTasksFilter{ThisWeek: true}, []uuid.UUID{finished.ID, overdue.ID, soon.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.svc.ListMyTasks(b.ctx, b.owner.ID, b.owner.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	bob := b.CreateTestUser("bob")
	_, err = b.svc.ListMyTasks(b.ctx, bob.ID, b.owner.ID, MyTasksFilter{})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	none, err := b.svc.ListMyTasks(b.ctx, bob.ID, bob.ID, MyTasksFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = b.svc.ListMyTasks(b.ctx, b.owner.ID, b.owner.ID, MyTasksFilter{DueFrom: at(time.Hour), DueTo: at(0)})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
