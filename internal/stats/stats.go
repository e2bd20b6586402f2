// internal/stats/stats.go
package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/models"
)

// Overdue reports whether t counts toward the overdue figure at now: it has
// a due date before now and does not sit in the done column.
func Overdue(t *models.Task, doneColumnID *uuid.UUID, now time.Time) bool {
	if t == nil || !t.IsOverdue(now) {
		return false
	}
	return doneColumnID == nil || t.ColumnID != *doneColumnID
}

// Compute derives stats from scratch. Every column in columnOrder gets an
// entry, even when empty.
func Compute(columnOrder []uuid.UUID, tasks []*models.Task, doneColumnID *uuid.UUID, now time.Time) models.TaskStats {
	s := models.NewTaskStats()
	for _, id := range columnOrder {
		s.ByColumn[id] = 0
	}
	for _, t := range tasks {
		s.Total++
		s.ByColumn[t.ColumnID]++
		if Overdue(t, doneColumnID, now) {
			s.Overdue++
		}
	}
	return s
}

// Apply adjusts the total and per-column counts for a single task
// transition. before is nil for an insert, after is nil for a delete; both
// set covers moves. Overdue is left alone: whether before counted depends
// on the instant it was last recounted, so callers refresh it with
// RecomputeOverdue.
func Apply(s *models.TaskStats, before, after *models.Task) {
	if s.ByColumn == nil {
		s.ByColumn = map[uuid.UUID]int{}
	}
	if before != nil {
		s.Total--
		s.ByColumn[before.ColumnID]--
	}
	if after != nil {
		s.Total++
		s.ByColumn[after.ColumnID]++
	}
}

// RecomputeOverdue refreshes only the overdue figure.
func RecomputeOverdue(s *models.TaskStats, tasks []*models.Task, doneColumnID *uuid.UUID, now time.Time) {
	n := 0
	for _, t := range tasks {
		if Overdue(t, doneColumnID, now) {
			n++
		}
	}
	s.Overdue = n
}

// AddColumn registers an empty column.
func AddColumn(s *models.TaskStats, columnID uuid.UUID) {
	if s.ByColumn == nil {
		s.ByColumn = map[uuid.UUID]int{}
	}
	if _, ok := s.ByColumn[columnID]; !ok {
		s.ByColumn[columnID] = 0
	}
}

// DropColumn forgets a column. Its tasks must already have been applied as
// deletes.
func DropColumn(s *models.TaskStats, columnID uuid.UUID) {
	delete(s.ByColumn, columnID)
}

// Drift lists the fields where current disagrees with expected.
func Drift(current, expected models.TaskStats) []string {
	var fields []string
	if current.Total != expected.Total {
		fields = append(fields, "total")
	}
	if !sameColumns(current.ByColumn, expected.ByColumn) {
		fields = append(fields, "byColumn")
	}
	if current.Overdue != expected.Overdue {
		fields = append(fields, "overdue")
	}
	return fields
}

func sameColumns(a, b map[uuid.UUID]int) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
