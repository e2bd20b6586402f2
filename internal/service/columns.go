// internal/service/columns.go
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/internal/stats"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// CreateColumn inserts a new empty column at index, or appends it when
// index is ordering.Append.
func (s *BoardService) CreateColumn(ctx context.Context, actor, projectID uuid.UUID, title string, index int) (*models.Column, error) {
	const op = "CreateColumn"
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.NewValidation(op, "title", "title is required")
	}

	var column *models.Column
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		p, err := tx.writableProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		c := &models.Column{
			ID:        models.NewID(),
			Title:     title,
			ProjectID: p.ID,
			TaskOrder: []uuid.UUID{},
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		}
		order, at, err := ordering.Insert(p.ColumnOrder, c.ID, index)
		if err != nil {
			return err
		}
		if err := tx.Columns().Create(ctx, c); err != nil {
			return err
		}
		p.ColumnOrder = order
		stats.AddColumn(&p.TaskStats, c.ID)
		column = c
		return tx.commit(ctx, p, actor, nil, activity.ColumnCreated, activity.Details{
			activity.KeyColumnID: c.ID.String(),
			activity.KeyTitle:    title,
			activity.KeyToIndex:  at,
		})
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// RenameColumn changes a column title.
func (s *BoardService) RenameColumn(ctx context.Context, actor, columnID uuid.UUID, title string) (*models.Column, error) {
	const op = "RenameColumn"
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.NewValidation(op, "title", "title is required")
	}

	var column *models.Column
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		c, err := tx.column(ctx, columnID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		from := c.Title
		c.Title = title
		if err := tx.Columns().Replace(ctx, c); err != nil {
			return err
		}
		column = c
		return tx.commit(ctx, p, actor, nil, activity.ColumnRenamed,
			activity.Renamed(from, title).With(activity.KeyColumnID, c.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

// ReorderColumn moves a column to index, clamped to the column list. A
// COLUMN_REORDERED activity is recorded even when the position does not
// change.
func (s *BoardService) ReorderColumn(ctx context.Context, actor, columnID uuid.UUID, index int) ([]uuid.UUID, error) {
	var order []uuid.UUID
	err := s.run(ctx, "ReorderColumn", func(ctx context.Context, tx *boardTx) error {
		c, err := tx.column(ctx, columnID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		next, from, to, err := ordering.Reorder(p.ColumnOrder, c.ID, index)
		if err != nil {
			return err
		}
		p.ColumnOrder = next
		order = next
		return tx.commit(ctx, p, actor, nil, activity.ColumnReordered, activity.Reordered(c.ID, from, to))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DeleteColumn deletes a column together with its tasks and their
// comments. Only the project owner may delete columns.
func (s *BoardService) DeleteColumn(ctx context.Context, actor, columnID uuid.UUID) error {
	return s.run(ctx, "DeleteColumn", func(ctx context.Context, tx *boardTx) error {
		c, err := tx.column(ctx, columnID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, c.ProjectID)
		if err != nil {
			return err
		}
		if p.OwnerID != actor {
			return apperror.NewForbidden("", "only the project owner can delete columns")
		}
		removed, err := tx.deleteColumnCascade(ctx, p, c)
		if err != nil {
			return err
		}
		return tx.commit(ctx, p, actor, nil, activity.ColumnDeleted, activity.Details{
			activity.KeyColumnID:  c.ID.String(),
			activity.KeyTitle:     c.Title,
			activity.KeyTaskCount: removed,
		})
	})
}
