// pkg/activity/actions.go
package activity

import (
	"fmt"
	"strings"
)

// Action is a canonical activity name.
type Action string

// Action constants for the project activity stream
const (
	ProjectCreated       Action = "PROJECT_CREATED"
	ProjectUpdated       Action = "PROJECT_UPDATED"
	ProjectArchived      Action = "PROJECT_ARCHIVED"
	ProjectDeleted       Action = "PROJECT_DELETED"
	ColumnCreated        Action = "COLUMN_CREATED"
	ColumnRenamed        Action = "COLUMN_RENAMED"
	ColumnReordered      Action = "COLUMN_REORDERED"
	ColumnDeleted        Action = "COLUMN_DELETED"
	TaskCreated          Action = "TASK_CREATED"
	TaskUpdated          Action = "TASK_UPDATED"
	TaskMoved            Action = "TASK_MOVED"
	TaskAssigned         Action = "TASK_ASSIGNED"
	TaskUnassigned       Action = "TASK_UNASSIGNED"
	TaskLabeled          Action = "TASK_LABELED"
	TaskUnlabeled        Action = "TASK_UNLABELED"
	TaskDeleted          Action = "TASK_DELETED"
	CommentAdded         Action = "COMMENT_ADDED"
	MemberAdded          Action = "MEMBER_ADDED"
	MemberRemoved        Action = "MEMBER_REMOVED"
	OwnershipTransferred Action = "OWNERSHIP_TRANSFERRED"
)

var allActions = []Action{
	ProjectCreated,
	ProjectUpdated,
	ProjectArchived,
	ProjectDeleted,
	ColumnCreated,
	ColumnRenamed,
	ColumnReordered,
	ColumnDeleted,
	TaskCreated,
	TaskUpdated,
	TaskMoved,
	TaskAssigned,
	TaskUnassigned,
	TaskLabeled,
	TaskUnlabeled,
	TaskDeleted,
	CommentAdded,
	MemberAdded,
	MemberRemoved,
	OwnershipTransferred,
}

// ParseAction converts a string to an Action. Matching is case-insensitive.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range allActions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown activity action: %s", s)
}

// ValidActions returns all valid action strings
func ValidActions() []string {
	out := make([]string, len(allActions))
	for i, a := range allActions {
		out[i] = string(a)
	}
	return out
}

// IsValidAction checks if the action string is valid
func IsValidAction(s string) bool {
	_, err := ParseAction(s)
	return err == nil
}

// TaskScoped reports whether the action is recorded against a task.
func (a Action) TaskScoped() bool {
	return strings.HasPrefix(string(a), "TASK_") || a == CommentAdded
}

func (a Action) String() string { return string(a) }
