// internal/service/labels.go
package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// LabelUpdate edits a label; nil fields are left untouched.
type LabelUpdate struct {
	Text  *string
	Color *string
}

func validateLabel(op, text, color string) error {
	if text == "" {
		return apperror.NewValidation(op, "text", "text is required")
	}
	if !colorPattern.MatchString(color) {
		return apperror.NewValidation(op, "color", "color must be #RRGGBB")
	}
	return nil
}

// uniqueLabelText rejects a text already used by another label of the
// project, ignoring case.
func (tx *boardTx) uniqueLabelText(ctx context.Context, projectID, self uuid.UUID, text string) error {
	labels, err := tx.Labels().ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, l := range labels {
		if l.ID != self && strings.EqualFold(l.Text, text) {
			return apperror.NewValidation("", "text", "label "+text+" already exists")
		}
	}
	return nil
}

// ListLabels returns the project's labels in creation order.
func (s *BoardService) ListLabels(ctx context.Context, actor, projectID uuid.UUID) ([]*models.Label, error) {
	var labels []*models.Label
	err := s.run(ctx, "ListLabels", func(ctx context.Context, tx *boardTx) error {
		if _, err := tx.memberProject(ctx, actor, projectID); err != nil {
			return err
		}
		var err error
		labels, err = tx.Labels().ListByProject(ctx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// CreateLabel adds a label to the project.
func (s *BoardService) CreateLabel(ctx context.Context, actor, projectID uuid.UUID, text, color string) (*models.Label, error) {
	const op = "CreateLabel"
	text = strings.TrimSpace(text)
	if err := validateLabel(op, text, color); err != nil {
		return nil, err
	}

	var label *models.Label
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		p, err := tx.writableProject(ctx, actor, projectID)
		if err != nil {
			return err
		}
		if err := tx.uniqueLabelText(ctx, p.ID, uuid.Nil, text); err != nil {
			return err
		}
		l := &models.Label{
			ID:        models.NewID(),
			ProjectID: p.ID,
			Text:      text,
			Color:     strings.ToUpper(color),
			CreatedAt: tx.now,
			UpdatedAt: tx.now,
		}
		if err := tx.Labels().Create(ctx, l); err != nil {
			return err
		}
		label = l
		return tx.commit(ctx, p, actor, nil, activity.ProjectUpdated,
			activity.Changes("labels").With(activity.KeyLabelID, l.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

// UpdateLabel changes a label's text or color.
func (s *BoardService) UpdateLabel(ctx context.Context, actor, labelID uuid.UUID, in LabelUpdate) (*models.Label, error) {
	const op = "UpdateLabel"
	var label *models.Label
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		l, err := tx.label(ctx, labelID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, l.ProjectID)
		if err != nil {
			return err
		}
		text, color := l.Text, l.Color
		if in.Text != nil {
			text = strings.TrimSpace(*in.Text)
		}
		if in.Color != nil {
			color = *in.Color
		}
		if err := validateLabel(op, text, color); err != nil {
			return err
		}
		label = l
		if text == l.Text && strings.EqualFold(color, l.Color) {
			return nil
		}
		if err := tx.uniqueLabelText(ctx, p.ID, l.ID, text); err != nil {
			return err
		}
		l.Text, l.Color = text, strings.ToUpper(color)
		if err := tx.Labels().Replace(ctx, l); err != nil {
			return err
		}
		return tx.commit(ctx, p, actor, nil, activity.ProjectUpdated,
			activity.Changes("labels").With(activity.KeyLabelID, l.ID.String()))
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

// DeleteLabel deletes a label and detaches it from every task of the
// project. Owner only.
func (s *BoardService) DeleteLabel(ctx context.Context, actor, labelID uuid.UUID) error {
	return s.run(ctx, "DeleteLabel", func(ctx context.Context, tx *boardTx) error {
		l, err := tx.label(ctx, labelID)
		if err != nil {
			return err
		}
		p, err := tx.writableProject(ctx, actor, l.ProjectID)
		if err != nil {
			return err
		}
		if p.OwnerID != actor {
			return apperror.NewForbidden("", "only the project owner can delete labels")
		}
		tasks, err := tx.Tasks().ListByProject(ctx, p.ID)
		if err != nil {
			return cascadeErr("list tasks", err)
		}
		for _, t := range tasks {
			rest, _, err := ordering.Remove(t.Labels, l.ID)
			if err != nil {
				continue
			}
			t.Labels = rest
			if err := tx.Tasks().Replace(ctx, t); err != nil {
				return cascadeErr("detach label", err)
			}
		}
		if err := tx.Labels().Delete(ctx, l); err != nil {
			return cascadeErr("delete label", err)
		}
		details := activity.Changes("labels").
			With(activity.KeyLabelID, l.ID.String()).
			With(activity.KeyName, l.Text)
		return tx.commit(ctx, p, actor, nil, activity.ProjectUpdated, details)
	})
}
