// internal/models/user.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeletedUserID is the sentinel written into comments and activities whose
// author no longer exists.
var DeletedUserID = uuid.Nil

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail returns the form used for the unique email index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) DocumentID() uuid.UUID   { return u.ID }
func (u *User) Revision() time.Time     { return u.UpdatedAt }
func (u *User) SetRevision(t time.Time) { u.UpdatedAt = t }
func (u *User) Clone() *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}
