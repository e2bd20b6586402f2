// internal/service/activities.go
package service

import (
	"context"
	"encoding/base64"
	"strconv"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
)

// ActivityPage is one page of a project's activity stream, newest first.
// NextCursor is empty on the last page.
type ActivityPage struct {
	Items      []*models.Activity `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

const cursorPrefix = "seq:"

func encodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(seq, 10)))
}

func decodeCursor(cursor string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(raw) <= len(cursorPrefix) || string(raw[:len(cursorPrefix)]) != cursorPrefix {
		return 0, apperror.NewValidation("", "cursor", "malformed cursor")
	}
	seq, err := strconv.ParseInt(string(raw[len(cursorPrefix):]), 10, 64)
	if err != nil || seq < 1 {
		return 0, apperror.NewValidation("", "cursor", "malformed cursor")
	}
	return seq, nil
}

// ListActivities pages through a project's activity stream. An empty
// cursor starts at the newest entry; limit <= 0 selects the default page
// size and larger values are capped.
func (s *BoardService) ListActivities(ctx context.Context, actor, projectID uuid.UUID, cursor string, limit int) (*ActivityPage, error) {
	before := int64(0)
	if cursor != "" {
		seq, err := decodeCursor(cursor)
		if err != nil {
			return nil, translate("ListActivities", err)
		}
		before = seq
	}
	switch {
	case limit <= 0:
		limit = s.opts.DefaultActivityLimit
	case limit > s.opts.MaxActivityLimit:
		limit = s.opts.MaxActivityLimit
	}

	page := &ActivityPage{}
	err := s.run(ctx, "ListActivities", func(ctx context.Context, tx *boardTx) error {
		if _, err := tx.memberProject(ctx, actor, projectID); err != nil {
			return err
		}
		items, err := tx.Activities().ListByProject(ctx, projectID, before, limit+1)
		if err != nil {
			return err
		}
		page.Items, page.NextCursor = items, ""
		if len(items) > limit {
			page.Items = items[:limit]
			page.NextCursor = encodeCursor(items[limit-1].Seq)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
