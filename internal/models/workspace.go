// internal/models/workspace.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the top-level container of projects.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Members   Members   `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w *Workspace) DocumentID() uuid.UUID   { return w.ID }
func (w *Workspace) Revision() time.Time     { return w.UpdatedAt }
func (w *Workspace) SetRevision(t time.Time) { w.UpdatedAt = t }
func (w *Workspace) Clone() *Workspace {
	c := *w
	c.Members = w.Members.Clone()
	return &c
}
