// pkg/activity/details.go
package activity

import "github.com/google/uuid"

// Detail keys shared across actions.
const (
	KeyName         = "name"
	KeyTitle        = "title"
	KeyFrom         = "from"
	KeyTo           = "to"
	KeyFromColumnID = "fromColumnId"
	KeyToColumnID   = "toColumnId"
	KeyFromIndex    = "fromIndex"
	KeyToIndex      = "toIndex"
	KeyColumnID     = "columnId"
	KeyUserID       = "userId"
	KeyLabelID      = "labelId"
	KeyCommentID    = "commentId"
	KeyRole         = "role"
	KeyStatus       = "status"
	KeyChanges      = "changes"
	KeyTaskCount    = "taskCount"
	KeyPrevOwnerID  = "previousOwnerId"
	KeyNewOwnerID   = "newOwnerId"
)

// Details is the action-specific payload of an activity.
type Details map[string]any

// Clone returns a shallow copy; values are treated as immutable.
func (d Details) Clone() Details {
	if d == nil {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// With returns d with key set, allocating if needed.
func (d Details) With(key string, value any) Details {
	if d == nil {
		d = Details{}
	}
	d[key] = value
	return d
}

// Moved builds TASK_MOVED details.
func Moved(fromColumn, toColumn uuid.UUID, fromIndex, toIndex int) Details {
	return Details{
		KeyFromColumnID: fromColumn.String(),
		KeyToColumnID:   toColumn.String(),
		KeyFromIndex:    fromIndex,
		KeyToIndex:      toIndex,
	}
}

// Reordered builds COLUMN_REORDERED details.
func Reordered(columnID uuid.UUID, fromIndex, toIndex int) Details {
	return Details{
		KeyColumnID:  columnID.String(),
		KeyFromIndex: fromIndex,
		KeyToIndex:   toIndex,
	}
}

// Renamed builds COLUMN_RENAMED details.
func Renamed(from, to string) Details {
	return Details{KeyFrom: from, KeyTo: to}
}

// Member builds MEMBER_ADDED and MEMBER_REMOVED details.
func Member(userID uuid.UUID, role string) Details {
	d := Details{KeyUserID: userID.String()}
	if role != "" {
		d[KeyRole] = role
	}
	return d
}

// Ownership builds OWNERSHIP_TRANSFERRED details.
func Ownership(prev, next uuid.UUID) Details {
	return Details{KeyPrevOwnerID: prev.String(), KeyNewOwnerID: next.String()}
}

// Changes builds *_UPDATED details listing the changed field names.
func Changes(fields ...string) Details {
	return Details{KeyChanges: append([]string{}, fields...)}
}
