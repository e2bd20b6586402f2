// internal/models/member.go
package models

import "github.com/google/uuid"

// Role is a member's role inside a workspace or project.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// Member pairs a user with a role. Embedded in Workspace and Project.
type Member struct {
	UserID uuid.UUID `json:"userId"`
	Role   Role      `json:"role"`
}

// Members is a member list keyed by user id.
type Members []Member

// Find returns the index of userID, or -1.
func (ms Members) Find(userID uuid.UUID) int {
	for i, m := range ms {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// Has reports whether userID is a member.
func (ms Members) Has(userID uuid.UUID) bool {
	return ms.Find(userID) >= 0
}

// RoleOf returns the role of userID and whether it is a member.
func (ms Members) RoleOf(userID uuid.UUID) (Role, bool) {
	if i := ms.Find(userID); i >= 0 {
		return ms[i].Role, true
	}
	return "", false
}

// Without returns a copy of ms without userID.
func (ms Members) Without(userID uuid.UUID) Members {
	out := make(Members, 0, len(ms))
	for _, m := range ms {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}

// Owners counts members with RoleOwner.
func (ms Members) Owners() int {
	n := 0
	for _, m := range ms {
		if m.Role == RoleOwner {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (ms Members) Clone() Members {
	if ms == nil {
		return nil
	}
	return append(Members(nil), ms...)
}
