// internal/service/activities_test.go
package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
)

func TestBoardService_ListActivitiesPaging(t *testing.T) {
	b := newBoard(t, func(o *Options) {
		o.DefaultActivityLimit = 2
		o.MaxActivityLimit = 3
	})
	for i := 0; i < 4; i++ {
		b.CreateTask(b.owner, b.todo, "task")
	}
	// PROJECT_CREATED plus four TASK_CREATED
	all := b.Activities(b.project.ID)
	require.Len(t, all, 5)

	var seen []*models.Activity
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5, "paging must terminate")
		page, err := b.svc.ListActivities(b.ctx, b.owner.ID, b.project.ID, cursor, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Items), 2)
		seen = append(seen, page.Items...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i-1].Seq, seen[i].Seq, "newest first")
		assert.False(t, seen[i-1].CreatedAt.Before(seen[i].CreatedAt))
	}

	page, err := b.svc.ListActivities(b.ctx, b.owner.ID, b.project.ID, "", 50)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3, "limit is capped")
}

func TestBoardService_ListActivitiesErrors(t *testing.T) {
	b := newBoard(t)
	_, err := b.svc.ListActivities(b.ctx, b.owner.ID, b.project.ID, "not-a-cursor", 10)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, "cursor", apperror.FieldOf(err))

	outsider := b.CreateTestUser("eve")
	_, err = b.svc.ListActivities(b.ctx, outsider.ID, b.project.ID, "", 10)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestCursorRoundTrip(t *testing.T) {
	seq, err := decodeCursor(encodeCursor(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	for _, bad := range []string{"", "!!", encodeCursor(0)} {
		_, err := decodeCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestBoardService_ActivityTimestampsMonotonic(t *testing.T) {
	b := newBoard(t)
	b.CreateTask(b.owner, b.todo, "A")
	// a clock step backwards must not reorder the stream
	b.clock.Advance(-5 * time.Minute)
	b.CreateTask(b.owner, b.todo, "B")

	stream := b.Activities(b.project.ID)
	for i := 1; i < len(stream); i++ {
		assert.False(t, stream[i].CreatedAt.Before(stream[i-1].CreatedAt))
		assert.Equal(t, stream[i-1].Seq+1, stream[i].Seq)
	}
}
