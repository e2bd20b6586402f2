// internal/service/members.go
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
	"github.com/gurkanbulca/kanboard/internal/models"
	"github.com/gurkanbulca/kanboard/internal/ordering"
	"github.com/gurkanbulca/kanboard/pkg/activity"
)

// ScopeKind names the entity that owns a member list.
type ScopeKind string

const (
	ScopeWorkspace ScopeKind = "workspace"
	ScopeProject   ScopeKind = "project"
)

// Scope addresses a member list.
type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID
}

func WorkspaceScope(id uuid.UUID) Scope { return Scope{Kind: ScopeWorkspace, ID: id} }
func ProjectScope(id uuid.UUID) Scope   { return Scope{Kind: ScopeProject, ID: id} }

// AddMember adds the user registered under email to the scope. Only the
// owner manages members, and ownership moves only through
// TransferOwnership. Project members must already belong to the
// workspace.
func (s *BoardService) AddMember(ctx context.Context, actor uuid.UUID, scope Scope, email string, role models.Role) (models.Members, error) {
	const op = "AddMember"
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, apperror.NewValidation(op, "role", "unknown role")
	}
	if role == models.RoleOwner {
		return nil, apperror.NewValidation(op, "role", "use ownership transfer to assign an owner")
	}

	var members models.Members
	err := s.run(ctx, op, func(ctx context.Context, tx *boardTx) error {
		user, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return notFound("user", err)
		}
		member := models.Member{UserID: user.ID, Role: role}

		switch scope.Kind {
		case ScopeWorkspace:
			ws, err := tx.workspace(ctx, scope.ID)
			if err != nil {
				return err
			}
			if ws.OwnerID != actor {
				return apperror.NewForbidden("", "only the workspace owner manages members")
			}
			if ws.Members.Has(user.ID) {
				return apperror.NewValidation("", "email", "user is already a member")
			}
			ws.Members = append(ws.Members, member)
			if err := tx.Workspaces().Replace(ctx, ws); err != nil {
				return err
			}
			members = ws.Members
			return nil

		case ScopeProject:
			p, err := tx.project(ctx, scope.ID)
			if err != nil {
				return err
			}
			if p.OwnerID != actor {
				return apperror.NewForbidden("", "only the project owner manages members")
			}
			if p.Members.Has(user.ID) {
				return apperror.NewValidation("", "email", "user is already a member")
			}
			ws, err := tx.workspace(ctx, p.WorkspaceID)
			if err != nil {
				return err
			}
			if !ws.Members.Has(user.ID) {
				return apperror.NewValidation("", "email", "user must be a member of the workspace first")
			}
			p.Members = append(p.Members, member)
			members = p.Members
			return tx.commit(ctx, p, actor, nil, activity.MemberAdded, activity.Member(user.ID, string(role)))
		}
		return apperror.NewValidation("", "scope", "unknown scope")
	})
	if err != nil {
		return nil, err
	}
	return members.Clone(), nil
}

// RemoveMember drops userID from the scope. The owner may remove anyone
// but themselves; any member may remove themselves. Leaving a workspace
// also leaves its projects, and removed project members are unassigned
// from that project's tasks. Archived projects are repaired too: their
// tasks may not reference non-members.
func (s *BoardService) RemoveMember(ctx context.Context, actor uuid.UUID, scope Scope, userID uuid.UUID) error {
	return s.run(ctx, "RemoveMember", func(ctx context.Context, tx *boardTx) error {
		switch scope.Kind {
		case ScopeWorkspace:
			ws, err := tx.workspace(ctx, scope.ID)
			if err != nil {
				return err
			}
			if err := checkRemoval(ws.OwnerID, ws.Members, actor, userID); err != nil {
				return err
			}
			projects, err := tx.Projects().ListByWorkspace(ctx, ws.ID)
			if err != nil {
				return err
			}
			for _, p := range projects {
				if !p.Members.Has(userID) {
					continue
				}
				if p.OwnerID == userID {
					return apperror.New(apperror.KindOwnerRemoval, "", "user owns project %s; transfer it first", p.ID)
				}
				if err := tx.dropProjectMember(ctx, p, actor, userID); err != nil {
					return err
				}
			}
			ws.Members = ws.Members.Without(userID)
			return tx.Workspaces().Replace(ctx, ws)

		case ScopeProject:
			p, err := tx.project(ctx, scope.ID)
			if err != nil {
				return err
			}
			if err := checkRemoval(p.OwnerID, p.Members, actor, userID); err != nil {
				return err
			}
			return tx.dropProjectMember(ctx, p, actor, userID)
		}
		return apperror.NewValidation("", "scope", "unknown scope")
	})
}

func checkRemoval(ownerID uuid.UUID, members models.Members, actor, userID uuid.UUID) error {
	if actor != ownerID && actor != userID {
		return apperror.NewForbidden("", "only the owner manages members")
	}
	if userID == ownerID {
		return apperror.New(apperror.KindOwnerRemoval, "", "the owner cannot be removed; transfer ownership first")
	}
	if !members.Has(userID) {
		return apperror.New(apperror.KindNotInList, "", "user %s is not a member", userID)
	}
	return nil
}

func (tx *boardTx) dropProjectMember(ctx context.Context, p *models.Project, actor, userID uuid.UUID) error {
	if err := tx.unassignEverywhere(ctx, p.ID, userID); err != nil {
		return err
	}
	p.Members = p.Members.Without(userID)
	return tx.commit(ctx, p, actor, nil, activity.MemberRemoved, activity.Member(userID, ""))
}

// unassignEverywhere removes userID from every task assignee set in the
// project.
func (tx *boardTx) unassignEverywhere(ctx context.Context, projectID, userID uuid.UUID) error {
	tasks, err := tx.Tasks().ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		rest, _, err := ordering.Remove(t.Assignees, userID)
		if err != nil {
			continue
		}
		t.Assignees = rest
		if err := tx.Tasks().Replace(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// TransferOwnership hands the scope to newOwnerID, who must already be a
// member. The previous owner stays on as a member.
func (s *BoardService) TransferOwnership(ctx context.Context, actor uuid.UUID, scope Scope, newOwnerID uuid.UUID) error {
	return s.run(ctx, "TransferOwnership", func(ctx context.Context, tx *boardTx) error {
		switch scope.Kind {
		case ScopeWorkspace:
			ws, err := tx.workspace(ctx, scope.ID)
			if err != nil {
				return err
			}
			members, err := flipOwner(ws.OwnerID, ws.Members, actor, newOwnerID)
			if err != nil {
				return err
			}
			ws.OwnerID, ws.Members = newOwnerID, members
			return tx.Workspaces().Replace(ctx, ws)

		case ScopeProject:
			p, err := tx.project(ctx, scope.ID)
			if err != nil {
				return err
			}
			members, err := flipOwner(p.OwnerID, p.Members, actor, newOwnerID)
			if err != nil {
				return err
			}
			prev := p.OwnerID
			p.OwnerID, p.Members = newOwnerID, members
			return tx.commit(ctx, p, actor, nil, activity.OwnershipTransferred, activity.Ownership(prev, newOwnerID))
		}
		return apperror.NewValidation("", "scope", "unknown scope")
	})
}

func flipOwner(ownerID uuid.UUID, members models.Members, actor, newOwnerID uuid.UUID) (models.Members, error) {
	if actor != ownerID {
		return nil, apperror.NewForbidden("", "only the owner can transfer ownership")
	}
	if newOwnerID == ownerID {
		return nil, apperror.NewValidation("", "userId", "user is already the owner")
	}
	if !members.Has(newOwnerID) {
		return nil, apperror.NewValidation("", "userId", "new owner must already be a member")
	}
	out := members.Clone()
	for i := range out {
		switch out[i].UserID {
		case ownerID:
			out[i].Role = models.RoleMember
		case newOwnerID:
			out[i].Role = models.RoleOwner
		}
	}
	return out, nil
}
